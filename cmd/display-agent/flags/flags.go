// Package flags defines display-agent specific command line flags.
package flags

import (
	"github.com/urfave/cli/v2"
)

var (
	// NodeURLFlag points at the display node serving this screen.
	NodeURLFlag = &cli.StringFlag{
		Name:    "node-url",
		Usage:   "Base URL of the display node, e.g. https://display.example.sa",
		Value:   "http://127.0.0.1:8600",
		EnvVars: []string{"DISPLAY_NODE_URL"},
	}
	// ScreenTokenFlag identifies the screen this device presents.
	ScreenTokenFlag = &cli.StringFlag{
		Name:    "screen-token",
		Usage:   "Screen token issued by the school admin. The device binds itself to it on first contact.",
		EnvVars: []string{"SCREEN_TOKEN"},
	}
	// NoColorsFlag strips ANSI colors from the rendered frames.
	NoColorsFlag = &cli.BoolFlag{
		Name:  "no-colors",
		Usage: "Render without ANSI colors, for terminals or capture pipelines that cannot show them",
	}
	// DisableSocketFlag keeps the agent on polling alone.
	DisableSocketFlag = &cli.BoolFlag{
		Name:    "disable-socket",
		Usage:   "Never open the push socket, even when the school advertises it. Polling still converges.",
		EnvVars: []string{"DISPLAY_AGENT_DISABLE_SOCKET"},
	}
	// MonitoringPortFlag defines the port used to serve prometheus metrics.
	MonitoringPortFlag = &cli.IntFlag{
		Name:  "monitoring-port",
		Usage: "Port used to listening and respond metrics for prometheus.",
		Value: 8082,
	}
)
