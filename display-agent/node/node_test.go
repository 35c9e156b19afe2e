package node

import (
	"flag"
	"testing"

	"github.com/azzam1122112-dot/school-display/config/params"
	"github.com/azzam1122112-dot/school-display/testing/assert"
	"github.com/azzam1122112-dot/school-display/testing/require"
	"github.com/urfave/cli/v2"
)

// Test that the display agent can build with default flag values.
func TestNode_Builds(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	app := cli.App{}
	set := flag.NewFlagSet("test", 0)
	set.String("datadir", t.TempDir()+"/datadir", "the agent data directory")
	set.String("node-url", "http://127.0.0.1:8600", "display node endpoint")
	set.String("screen-token", "tok-7", "screen token")
	set.String("verbosity", "debug", "log verbosity")
	set.Bool("disable-monitoring", true, "disable monitoring")
	ctx := cli.NewContext(&app, set, nil)

	agent, err := New(ctx)
	require.NoError(t, err)
	assert.NotNil(t, agent)
	agent.Close()
}

func TestNode_MissingTokenFails(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	app := cli.App{}
	set := flag.NewFlagSet("test", 0)
	set.String("datadir", t.TempDir()+"/datadir", "the agent data directory")
	ctx := cli.NewContext(&app, set, nil)

	_, err := New(ctx)
	assert.ErrorContains(t, "screen token required", err)
}
