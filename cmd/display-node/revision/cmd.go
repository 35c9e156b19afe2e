// Package revision provides operator subcommands that read and move
// per-school schedule revisions directly against the key-value store, for
// recovery and for CMS deployments that signal changes out of process.
package revision

import (
	"context"

	registry "github.com/azzam1122112-dot/school-display/display-node/revision"
	"github.com/azzam1122112-dot/school-display/display-node/store"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var cmdFlags = struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	School        int64
	Rev           int64
	Reason        string
}{}

func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "redis-addr",
			Usage:       "host:port of the Redis instance holding the revision counters",
			Destination: &cmdFlags.RedisAddr,
			Value:       "127.0.0.1:6379",
			EnvVars:     []string{"REDIS_ADDR"},
		},
		&cli.StringFlag{
			Name:        "redis-password",
			Usage:       "Password for the Redis instance, empty for none",
			Destination: &cmdFlags.RedisPassword,
			EnvVars:     []string{"REDIS_PASSWORD"},
		},
		&cli.IntFlag{
			Name:        "redis-db",
			Usage:       "Logical Redis database number",
			Destination: &cmdFlags.RedisDB,
			EnvVars:     []string{"REDIS_DB"},
		},
		&cli.Int64Flag{
			Name:        "school",
			Usage:       "Numeric school id the revision belongs to",
			Destination: &cmdFlags.School,
			Required:    true,
		},
	}
}

// Commands for inspecting and moving schedule revisions.
var Commands = []*cli.Command{
	{
		Name:  "revision",
		Usage: "commands for inspecting and moving per-school schedule revisions",
		Subcommands: []*cli.Command{
			{
				Name:   "get",
				Usage:  "print the current schedule revision of a school",
				Flags:  storeFlags(),
				Action: cliActionGet,
			},
			{
				Name:  "bump",
				Usage: "increment the schedule revision of a school and publish the invalidation",
				Flags: append(storeFlags(), &cli.StringFlag{
					Name:        "reason",
					Usage:       "Reason tag recorded in the bump log line",
					Destination: &cmdFlags.Reason,
					Value:       "operator",
				}),
				Action: cliActionBump,
			},
			{
				Name:  "set",
				Usage: "force the schedule revision of a school to an exact value, skipping the debounce",
				Flags: append(storeFlags(), &cli.Int64Flag{
					Name:        "rev",
					Usage:       "Revision value to install",
					Destination: &cmdFlags.Rev,
					Required:    true,
				}),
				Action: cliActionSet,
			},
		},
	},
}

func connect(ctx context.Context) (*store.Store, *registry.Registry, error) {
	st, err := store.New(ctx, &store.Config{
		Addr:     cmdFlags.RedisAddr,
		Password: cmdFlags.RedisPassword,
		DB:       cmdFlags.RedisDB,
	})
	if err != nil {
		return nil, nil, err
	}
	return st, registry.NewRegistry(st), nil
}

func cliActionGet(cliCtx *cli.Context) error {
	st, reg, err := connect(cliCtx.Context)
	if err != nil {
		return err
	}
	defer closeStore(st)

	rev, err := reg.Current(cliCtx.Context, cmdFlags.School)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"school": cmdFlags.School, "revision": rev}).Info("Current schedule revision")
	return nil
}

func cliActionBump(cliCtx *cli.Context) error {
	st, reg, err := connect(cliCtx.Context)
	if err != nil {
		return err
	}
	defer closeStore(st)

	rev, bumped, err := reg.Bump(cliCtx.Context, cmdFlags.School, cmdFlags.Reason)
	if err != nil {
		return err
	}
	if !bumped {
		log.WithFields(log.Fields{"school": cmdFlags.School, "revision": rev}).
			Warn("Bump coalesced into a recent one, devices already refetching")
		return nil
	}
	log.WithFields(log.Fields{"school": cmdFlags.School, "revision": rev}).Info("Schedule revision bumped")
	return nil
}

func cliActionSet(cliCtx *cli.Context) error {
	st, reg, err := connect(cliCtx.Context)
	if err != nil {
		return err
	}
	defer closeStore(st)

	if err := reg.Force(cliCtx.Context, cmdFlags.School, cmdFlags.Rev); err != nil {
		return err
	}
	log.WithFields(log.Fields{"school": cmdFlags.School, "revision": cmdFlags.Rev}).Info("Schedule revision forced")
	return nil
}

func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		log.WithError(err).Debug("Could not close store connection")
	}
}
