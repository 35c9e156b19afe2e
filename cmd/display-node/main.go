// Package main defines the school display node, the back-end that builds
// schedule snapshots, serves them to classroom screens and pushes
// invalidations when a school's data changes.
package main

import (
	"fmt"
	"os"
	_ "time/tzdata" // School day math needs zone data on scratch images.

	"github.com/azzam1122112-dot/school-display/cmd"
	"github.com/azzam1122112-dot/school-display/cmd/display-node/flags"
	revisioncmd "github.com/azzam1122112-dot/school-display/cmd/display-node/revision"
	"github.com/azzam1122112-dot/school-display/config/features"
	"github.com/azzam1122112-dot/school-display/display-node/node"
	"github.com/azzam1122112-dot/school-display/io/logs"
	"github.com/azzam1122112-dot/school-display/runtime/journald"
	"github.com/azzam1122112-dot/school-display/runtime/version"
	joonix "github.com/joonix/log"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"github.com/urfave/cli/v2/altsrc"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
	_ "go.uber.org/automaxprocs"
)

var log = logrus.WithField("prefix", "main")

func startNode(cliCtx *cli.Context) error {
	displayNode, err := node.New(cliCtx)
	if err != nil {
		return err
	}
	displayNode.Start()
	return nil
}

var appFlags = []cli.Flag{
	flags.HTTPHost,
	flags.HTTPPort,
	flags.CorsDomains,
	flags.AdminTokenFlag,
	flags.RedisAddrFlag,
	flags.RedisPasswordFlag,
	flags.RedisDBFlag,
	flags.DatabaseDSNFlag,
	flags.DBMaxOpenConns,
	flags.DBMaxIdleConns,
	flags.MonitoringPortFlag,
	flags.SnapshotEdgeMaxAge,
	flags.WSChannelCapacity,
	flags.WSPingIntervalSeconds,
	flags.WSMetricsLogInterval,
	cmd.VerbosityFlag,
	cmd.MinimalConfigFlag,
	cmd.MonitoringHostFlag,
	cmd.DisableMonitoringFlag,
	cmd.EnableBackupWebhookFlag,
	cmd.LogFormat,
	cmd.LogFileName,
	cmd.ConfigFileFlag,
}

func init() {
	appFlags = cmd.WrapFlags(append(appFlags, features.DisplayNodeFlags...))
}

func main() {
	app := cli.App{}
	app.Name = "display-node"
	app.Usage = "serves schedule snapshots and live invalidations to school display screens"
	app.Action = startNode
	app.Version = version.GetVersion()
	app.Commands = revisioncmd.Commands
	app.Flags = appFlags

	app.Before = func(ctx *cli.Context) error {
		// Load flags from file, if specified.
		if ctx.IsSet(cmd.ConfigFileFlag.Name) {
			if err := altsrc.InitInputSourceWithContext(
				appFlags,
				altsrc.NewYamlSourceFromFlagFunc(
					cmd.ConfigFileFlag.Name))(ctx); err != nil {
				return err
			}
		}

		verbosity := ctx.String(cmd.VerbosityFlag.Name)
		level, err := logrus.ParseLevel(verbosity)
		if err != nil {
			return err
		}
		logrus.SetLevel(level)

		format := ctx.String(cmd.LogFormat.Name)
		switch format {
		case "text":
			formatter := new(prefixed.TextFormatter)
			formatter.TimestampFormat = "2006-01-02 15:04:05"
			formatter.FullTimestamp = true
			// Log files are read without a terminal, so ANSI colors would
			// show up as gibberish there.
			formatter.DisableColors = ctx.String(cmd.LogFileName.Name) != ""
			logrus.SetFormatter(formatter)
		case "fluentd":
			logrus.SetFormatter(joonix.NewFormatter())
		case "json":
			logrus.SetFormatter(&logrus.JSONFormatter{})
		case "journald":
			if err := journald.Enable(); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown log format %s", format)
		}

		logFileName := ctx.String(cmd.LogFileName.Name)
		if logFileName != "" {
			if err := logs.ConfigurePersistentLogging(logFileName); err != nil {
				log.WithError(err).Error("Failed to configuring logging to disk.")
			}
		}
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}
