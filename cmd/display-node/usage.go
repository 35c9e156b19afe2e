// This code was adapted from https://github.com/ethereum/go-ethereum/blob/master/cmd/geth/usage.go
package main

import (
	"io"
	"sort"

	"github.com/azzam1122112-dot/school-display/cmd"
	"github.com/azzam1122112-dot/school-display/cmd/display-node/flags"
	"github.com/azzam1122112-dot/school-display/config/features"
	"github.com/urfave/cli/v2"
)

var appHelpTemplate = `NAME:
   {{.App.Name}} - {{.App.Usage}}
USAGE:
   {{.App.HelpName}} [options]{{if .App.Commands}} command [command options]{{end}} {{if .App.ArgsUsage}}{{.App.ArgsUsage}}{{else}}[arguments...]{{end}}
   {{if .App.Version}}
AUTHOR:
   {{range .App.Authors}}{{ . }}{{end}}
   {{end}}{{if .App.Commands}}
GLOBAL OPTIONS:
   {{range .App.Commands}}{{join .Names ", "}}{{ "\t" }}{{.Usage}}
   {{end}}{{end}}{{if .FlagGroups}}
{{range .FlagGroups}}{{.Name}} OPTIONS:
   {{range .Flags}}{{.}}
   {{end}}
{{end}}{{end}}{{if .App.Copyright }}
COPYRIGHT:
   {{.App.Copyright}}
VERSION:
   {{.App.Version}}
   {{end}}{{if len .App.Authors}}
   {{end}}
`

type flagGroup struct {
	Name  string
	Flags []cli.Flag
}

var appHelpFlagGroups = []flagGroup{
	{
		Name: "cmd",
		Flags: []cli.Flag{
			cmd.VerbosityFlag,
			cmd.MinimalConfigFlag,
			cmd.ConfigFileFlag,
			cmd.DisableMonitoringFlag,
			cmd.MonitoringHostFlag,
			cmd.EnableBackupWebhookFlag,
		},
	},
	{
		Name: "http",
		Flags: []cli.Flag{
			flags.HTTPHost,
			flags.HTTPPort,
			flags.CorsDomains,
			flags.AdminTokenFlag,
		},
	},
	{
		Name: "storage",
		Flags: []cli.Flag{
			flags.RedisAddrFlag,
			flags.RedisPasswordFlag,
			flags.RedisDBFlag,
			flags.DatabaseDSNFlag,
			flags.DBMaxOpenConns,
			flags.DBMaxIdleConns,
		},
	},
	{
		Name: "push plane",
		Flags: []cli.Flag{
			flags.WSChannelCapacity,
			flags.WSPingIntervalSeconds,
			flags.WSMetricsLogInterval,
		},
	},
	{
		Name: "cache",
		Flags: []cli.Flag{
			flags.SnapshotEdgeMaxAge,
		},
	},
	{
		Name: "monitoring",
		Flags: []cli.Flag{
			flags.MonitoringPortFlag,
		},
	},
	{
		Name:  "features",
		Flags: features.DisplayNodeFlags,
	},
	{
		Name: "log",
		Flags: []cli.Flag{
			cmd.LogFormat,
			cmd.LogFileName,
		},
	},
}

func init() {
	cli.AppHelpTemplate = appHelpTemplate

	type helpData struct {
		App        interface{}
		FlagGroups []flagGroup
	}

	originalHelpPrinter := cli.HelpPrinter
	cli.HelpPrinter = func(w io.Writer, tmpl string, data interface{}) {
		if tmpl == appHelpTemplate {
			for _, group := range appHelpFlagGroups {
				sort.Sort(cli.FlagsByName(group.Flags))
			}
			originalHelpPrinter(w, tmpl, helpData{data, appHelpFlagGroups})
		} else {
			originalHelpPrinter(w, tmpl, data)
		}
	}
}
