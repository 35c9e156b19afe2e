/*
Package features defines which optional behaviors are enabled at runtime.

The process for adding a new feature flag:
 1. Add a CMD flag in flags.go and place it in the proper list(s) for its binary.
 2. Add a condition for the flag in the proper Configure function below.
 3. Gate the new behavior on the corresponding Flags field.
 4. Use InitWithReset in tests that need the flag enabled:
    resetFlags := features.InitWithReset(&features.Flags{AllowMultiDevice: true})
    defer resetFlags()
*/
package features

import (
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var log = logrus.WithField("prefix", "flags")

// Flags is a struct to represent which features the client will perform on runtime.
type Flags struct {
	// Display node flags.
	WSEnabled        bool // WSEnabled serves the push plane and advertises it to polling devices.
	AllowMultiDevice bool // AllowMultiDevice skips the single device claim on screen tokens.
	DebugEndpoints   bool // DebugEndpoints honors cache bypass query params and exposes the unbind route.

	// Agent flags.
	LiteMode bool // LiteMode lowers the agent frame rate for weak kiosk hardware.
	Headless bool // Headless runs the agent runtime without the terminal renderer.
}

var featureConfig *Flags

// Get retrieves feature config.
func Get() *Flags {
	if featureConfig == nil {
		return &Flags{}
	}
	return featureConfig
}

// Init sets the global config equal to the config that is passed in.
func Init(c *Flags) {
	featureConfig = c
}

// InitWithReset sets the global config and returns a function that is used to
// reset the configuration.
func InitWithReset(c *Flags) func() {
	resetFunc := func() {
		Init(&Flags{})
	}
	Init(c)
	return resetFunc
}

// ConfigureDisplayNode sets the global config based on what flags are enabled
// for the display-node binary.
func ConfigureDisplayNode(ctx *cli.Context) {
	cfg := &Flags{}
	cfg.WSEnabled = ctx.Bool(wsEnabledFlag.Name)
	if !cfg.WSEnabled {
		log.Warn("Push plane disabled, devices will rely on polling alone")
	}
	if ctx.Bool(allowMultiDeviceFlag.Name) {
		log.Warn("Device binding disabled, any device may present any screen token")
		cfg.AllowMultiDevice = true
	}
	if ctx.Bool(debugEndpointsFlag.Name) {
		log.Warn("Debug endpoints enabled, cache bypass query params will be honored")
		cfg.DebugEndpoints = true
	}
	Init(cfg)
}

// ConfigureAgent sets the global config based on what flags are enabled
// for the display-agent binary.
func ConfigureAgent(ctx *cli.Context) {
	cfg := &Flags{}
	if ctx.Bool(liteModeFlag.Name) {
		log.Info("Lite mode enabled, frame rate capped for weak hardware")
		cfg.LiteMode = true
	}
	if ctx.Bool(headlessFlag.Name) {
		cfg.Headless = true
	}
	Init(cfg)
}
