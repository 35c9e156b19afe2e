package cmd

import (
	"github.com/azzam1122112-dot/school-display/config/params"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var log = logrus.WithField("prefix", "cmd")

// Flags is a struct to represent which settings values the display binaries
// were started with.
type Flags struct {
	// MinimalConfig swaps the production timing constants for the minimal
	// development set.
	MinimalConfig bool
}

var sharedConfig *Flags

// Get retrieves the shared process config.
func Get() *Flags {
	if sharedConfig == nil {
		return &Flags{}
	}
	return sharedConfig
}

// Init sets the global config equal to the config that is passed in.
func Init(c *Flags) {
	sharedConfig = c
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

// ConfigureDisplayNode applies the shared flags for the display-node binary.
func ConfigureDisplayNode(cliCtx *cli.Context) error {
	return configureShared(cliCtx)
}

// ConfigureAgent applies the shared flags for the display-agent binary.
func ConfigureAgent(cliCtx *cli.Context) error {
	return configureShared(cliCtx)
}

func configureShared(cliCtx *cli.Context) error {
	cfg := Get()
	if cliCtx.Bool(MinimalConfigFlag.Name) {
		log.Warn("Using minimal timing constants, production debounces and TTLs are off")
		cfg.MinimalConfig = true
		params.UseMinimalConfig()
	}
	Init(cfg)
	return nil
}
