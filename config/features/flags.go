package features

import (
	"github.com/urfave/cli/v2"
)

var (
	wsEnabledFlag = &cli.BoolFlag{
		Name:    "ws-enabled",
		Usage:   "Serves the WebSocket push plane and advertises it in snapshot meta. When false, devices rely on status polling alone.",
		Value:   true,
		EnvVars: []string{"WS_ENABLED"},
	}
	allowMultiDeviceFlag = &cli.BoolFlag{
		Name:    "allow-multi-device",
		Usage:   "Allows any device to present any screen token, skipping the atomic device claim.",
		EnvVars: []string{"ALLOW_MULTI_DEVICE"},
	}
	debugEndpointsFlag = &cli.BoolFlag{
		Name:    "debug-endpoints",
		Usage:   "Honors nocache=1 snapshot bypass and other debug-only request parameters.",
		EnvVars: []string{"DISPLAY_DEBUG_ENDPOINTS"},
	}
	liteModeFlag = &cli.BoolFlag{
		Name:    "lite",
		Usage:   "Caps the render frame rate and disables marquee animation for weak kiosk hardware.",
		EnvVars: []string{"DISPLAY_AGENT_LITE"},
	}
	headlessFlag = &cli.BoolFlag{
		Name:    "headless",
		Usage:   "Runs the polling runtime without the terminal renderer. Frames are logged at debug level.",
		EnvVars: []string{"DISPLAY_AGENT_HEADLESS"},
	}
)

// DisplayNodeFlags holds the feature flags consumed by the display-node binary.
var DisplayNodeFlags = []cli.Flag{
	wsEnabledFlag,
	allowMultiDeviceFlag,
	debugEndpointsFlag,
}

// AgentFlags holds the feature flags consumed by the display-agent binary.
var AgentFlags = []cli.Flag{
	liteModeFlag,
	headlessFlag,
}
