// Package node is the main process which handles the lifecycle of the
// runtime services in a display agent: the polling runtime that keeps the
// snapshot fresh and the terminal renderer that presents it, gracefully
// shutting everything down upon close.
package node

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	nodeapi "github.com/azzam1122112-dot/school-display/api/client/display"
	"github.com/azzam1122112-dot/school-display/cmd"
	agentflags "github.com/azzam1122112-dot/school-display/cmd/display-agent/flags"
	"github.com/azzam1122112-dot/school-display/config/features"
	agentclient "github.com/azzam1122112-dot/school-display/display-agent/client"
	"github.com/azzam1122112-dot/school-display/display-agent/ui"
	"github.com/azzam1122112-dot/school-display/io/logs"
	"github.com/azzam1122112-dot/school-display/monitoring/prometheus"
	"github.com/azzam1122112-dot/school-display/runtime"
	"github.com/azzam1122112-dot/school-display/runtime/version"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var log = logrus.WithField("prefix", "node")

// Agent defines an instance of a display agent that manages the entire
// lifecycle of services presenting one screen.
type Agent struct {
	cliCtx   *cli.Context
	ctx      context.Context
	cancel   context.CancelFunc
	services *runtime.ServiceRegistry // Lifecycle and service store.
	lock     sync.RWMutex
	stop     chan struct{} // Channel to wait for termination notifications.
}

// New creates a new display agent and registers its services.
func New(cliCtx *cli.Context) (*Agent, error) {
	if err := cmd.ConfigureAgent(cliCtx); err != nil {
		return nil, err
	}
	features.ConfigureAgent(cliCtx)

	registry := runtime.NewServiceRegistry()
	ctx, cancel := context.WithCancel(cliCtx.Context)
	agent := &Agent{
		cliCtx:   cliCtx,
		ctx:      ctx,
		cancel:   cancel,
		services: registry,
		stop:     make(chan struct{}),
	}

	if err := agent.registerDisplayServices(cliCtx); err != nil {
		return nil, err
	}

	if !cliCtx.Bool(cmd.DisableMonitoringFlag.Name) {
		if err := agent.registerPrometheusService(cliCtx); err != nil {
			return nil, err
		}
	}

	return agent, nil
}

// registerDisplayServices wires the node client into the polling runtime and
// the runtime's update stream into the renderer.
func (a *Agent) registerDisplayServices(cliCtx *cli.Context) error {
	dataDir := cliCtx.String(cmd.DataDirFlag.Name)
	deviceID, err := agentclient.LoadOrCreateDeviceID(dataDir)
	if err != nil {
		return err
	}
	nodeURL := cliCtx.String(agentflags.NodeURLFlag.Name)
	log.WithFields(logrus.Fields{
		"device": deviceID,
		"node":   logs.MaskCredentialsLogging(nodeURL),
	}).Info("Loaded device identity")

	nodeClient, err := nodeapi.NewClient(
		nodeURL,
		cliCtx.String(agentflags.ScreenTokenFlag.Name),
		deviceID,
	)
	if err != nil {
		return err
	}

	rt := agentclient.NewRuntime(a.ctx, &agentclient.Config{
		Node:          nodeClient,
		DataDir:       dataDir,
		DeviceID:      deviceID,
		DisableSocket: cliCtx.Bool(agentflags.DisableSocketFlag.Name),
	})
	if err := a.services.RegisterService(rt); err != nil {
		return err
	}

	renderer := ui.NewService(a.ctx, &ui.Config{
		Updates:  rt.Updates(),
		Headless: features.Get().Headless,
		Lite:     features.Get().LiteMode,
		NoColors: cliCtx.Bool(agentflags.NoColorsFlag.Name),
	})
	return a.services.RegisterService(renderer)
}

func (a *Agent) registerPrometheusService(cliCtx *cli.Context) error {
	service := prometheus.NewService(
		fmt.Sprintf("%s:%d", cliCtx.String(cmd.MonitoringHostFlag.Name), cliCtx.Int(agentflags.MonitoringPortFlag.Name)),
		a.services,
	)
	logrus.AddHook(prometheus.NewLogrusCollector())
	return a.services.RegisterService(service)
}

// Start every service in the agent.
func (a *Agent) Start() {
	a.lock.Lock()

	log.WithFields(logrus.Fields{
		"version": version.GetVersion(),
	}).Info("Starting display agent")

	a.services.StartAll()

	stop := a.stop
	a.lock.Unlock()

	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigc)
		<-sigc
		log.Info("Got interrupt, shutting down...")
		go a.Close()
		for i := 10; i > 0; i-- {
			<-sigc
			if i > 1 {
				log.WithField("times", i-1).Info("Already shutting down, interrupt more to panic.")
			}
		}
		panic("Panic closing the display agent")
	}()

	// Wait for stop channel to be closed.
	<-stop
}

// Close handles graceful shutdown of the system.
func (a *Agent) Close() {
	a.lock.Lock()
	defer a.lock.Unlock()

	a.services.StopAll()
	log.Info("Stopping display agent")
	a.cancel()

	close(a.stop)
}
