// Package main defines the school display agent, the kiosk-side process that
// keeps one classroom screen in sync with its display node and renders the
// live schedule board.
package main

import (
	"fmt"
	"os"
	_ "time/tzdata" // School timezones must resolve on scratch images.

	"github.com/azzam1122112-dot/school-display/cmd"
	"github.com/azzam1122112-dot/school-display/cmd/display-agent/flags"
	"github.com/azzam1122112-dot/school-display/config/features"
	"github.com/azzam1122112-dot/school-display/display-agent/node"
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

func startAgent(cliCtx *cli.Context) error {
	agent, err := node.New(cliCtx)
	if err != nil {
		return err
	}
	agent.Start()
	return nil
}

var appFlags = []cli.Flag{
	flags.NodeURLFlag,
	flags.ScreenTokenFlag,
	flags.NoColorsFlag,
	flags.DisableSocketFlag,
	flags.MonitoringPortFlag,
	cmd.DataDirFlag,
	cmd.VerbosityFlag,
	cmd.MinimalConfigFlag,
	cmd.MonitoringHostFlag,
	cmd.DisableMonitoringFlag,
	cmd.LogFormat,
	cmd.LogFileName,
	cmd.ConfigFileFlag,
}

func init() {
	appFlags = cmd.WrapFlags(append(appFlags, features.AgentFlags...))
}

func main() {
	app := cli.App{}
	app.Name = "display-agent"
	app.Usage = "keeps one classroom screen in sync with its display node and renders the schedule board"
	app.Action = startAgent
	app.Version = version.GetVersion()
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
			// The renderer owns the terminal; log colors would tear frames
			// even before the file case.
			formatter.DisableColors = true
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
