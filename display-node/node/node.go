// Package node is the main service which launches a display node and manages
// the lifecycle of all its associated services at runtime, such as the
// snapshot cache, the display API and the push plane, gracefully closing them
// if the process ends.
package node

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/azzam1122112-dot/school-display/cmd"
	"github.com/azzam1122112-dot/school-display/cmd/display-node/flags"
	"github.com/azzam1122112-dot/school-display/config/features"
	"github.com/azzam1122112-dot/school-display/config/params"
	"github.com/azzam1122112-dot/school-display/display-node/binding"
	"github.com/azzam1122112-dot/school-display/display-node/cache"
	"github.com/azzam1122112-dot/school-display/display-node/db"
	"github.com/azzam1122112-dot/school-display/display-node/push"
	"github.com/azzam1122112-dot/school-display/display-node/revision"
	"github.com/azzam1122112-dot/school-display/display-node/rpc"
	"github.com/azzam1122112-dot/school-display/display-node/rpc/display"
	"github.com/azzam1122112-dot/school-display/display-node/signals"
	"github.com/azzam1122112-dot/school-display/display-node/snapshot"
	"github.com/azzam1122112-dot/school-display/display-node/store"
	"github.com/azzam1122112-dot/school-display/monitoring/backup"
	"github.com/azzam1122112-dot/school-display/monitoring/prometheus"
	"github.com/azzam1122112-dot/school-display/monitoring/wsstats"
	"github.com/azzam1122112-dot/school-display/runtime"
	"github.com/azzam1122112-dot/school-display/runtime/version"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var log = logrus.WithField("prefix", "node")

// DisplayNode defines a struct that handles the services running a school
// display back-end. It handles the lifecycle of the entire system and
// registers services to a service registry.
type DisplayNode struct {
	cliCtx      *cli.Context
	ctx         context.Context
	cancel      context.CancelFunc
	services    *runtime.ServiceRegistry
	lock        sync.RWMutex
	stop        chan struct{} // Channel to wait for termination notifications.
	store       *store.Store
	db          *db.Database
	registry    *revision.Registry
	dispatcher  *signals.Dispatcher
	coordinator *cache.Coordinator
	binder      *binding.Service
	wsTracker   *wsstats.Tracker
}

// New creates a new node instance, sets up configuration options, and
// registers every required service to the node.
func New(cliCtx *cli.Context) (*DisplayNode, error) {
	if err := cmd.ConfigureDisplayNode(cliCtx); err != nil {
		return nil, err
	}
	features.ConfigureDisplayNode(cliCtx)
	configureFabric(cliCtx)

	registry := runtime.NewServiceRegistry()

	ctx, cancel := context.WithCancel(cliCtx.Context)
	node := &DisplayNode{
		cliCtx:   cliCtx,
		ctx:      ctx,
		cancel:   cancel,
		services: registry,
		stop:     make(chan struct{}),
	}

	if err := node.startStore(cliCtx); err != nil {
		return nil, err
	}

	if err := node.startDB(cliCtx); err != nil {
		return nil, err
	}

	if err := node.startFabric(); err != nil {
		return nil, err
	}

	if err := node.registerRPCService(cliCtx); err != nil {
		return nil, err
	}

	if err := node.registerPushService(cliCtx); err != nil {
		return nil, err
	}

	if !cliCtx.Bool(cmd.DisableMonitoringFlag.Name) {
		if err := node.registerPrometheusService(cliCtx); err != nil {
			return nil, err
		}
	}

	return node, nil
}

// Dispatcher exposes the change capture entry point for embedding callers,
// so a CMS living in the same process can bump revisions after its writes.
func (n *DisplayNode) Dispatcher() *signals.Dispatcher {
	return n.dispatcher
}

// configureFabric folds flag overrides into the timing constants before any
// service reads them.
func configureFabric(cliCtx *cli.Context) {
	if cliCtx.IsSet(flags.SnapshotEdgeMaxAge.Name) {
		c := params.DisplayConfig().Copy()
		c.SnapshotEdgeMaxAge = cliCtx.Int(flags.SnapshotEdgeMaxAge.Name)
		params.OverrideDisplayConfig(c)
	}
	if cliCtx.IsSet(flags.WSChannelCapacity.Name) {
		c := params.DisplayConfig().Copy()
		c.WSChannelCapacity = cliCtx.Int(flags.WSChannelCapacity.Name)
		params.OverrideDisplayConfig(c)
	}
	if cliCtx.IsSet(flags.WSPingIntervalSeconds.Name) {
		c := params.DisplayConfig().Copy()
		c.WSPingInterval = time.Duration(cliCtx.Int(flags.WSPingIntervalSeconds.Name)) * time.Second
		// The reaper allows three missed pings before it considers a
		// socket dead.
		c.WSReadTimeout = 3 * c.WSPingInterval
		params.OverrideDisplayConfig(c)
	}
}

// Start the DisplayNode and kicks off every registered service.
func (n *DisplayNode) Start() {
	n.lock.Lock()

	log.WithFields(logrus.Fields{
		"version": version.GetVersion(),
	}).Info("Starting display node")

	n.services.StartAll()

	stop := n.stop
	n.lock.Unlock()

	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigc)
		<-sigc
		log.Info("Got interrupt, shutting down...")
		go n.Close()
		for i := 10; i > 0; i-- {
			<-sigc
			if i > 1 {
				log.WithField("times", i-1).Info("Already shutting down, interrupt more to panic")
			}
		}
		panic("Panic closing the display node")
	}()

	// Wait for stop channel to be closed.
	<-stop
}

// Close handles graceful shutdown of the system.
func (n *DisplayNode) Close() {
	n.lock.Lock()
	defer n.lock.Unlock()

	log.Info("Stopping display node")
	n.services.StopAll()
	if err := n.db.Close(); err != nil {
		log.WithError(err).Error("Failed to close database")
	}
	if err := n.store.Close(); err != nil {
		log.WithError(err).Error("Failed to close key-value store")
	}
	n.cancel()
	close(n.stop)
}

func (n *DisplayNode) startStore(cliCtx *cli.Context) error {
	st, err := store.New(n.ctx, &store.Config{
		Addr:     cliCtx.String(flags.RedisAddrFlag.Name),
		Password: cliCtx.String(flags.RedisPasswordFlag.Name),
		DB:       cliCtx.Int(flags.RedisDBFlag.Name),
	})
	if err != nil {
		return err
	}
	n.store = st
	return nil
}

func (n *DisplayNode) startDB(cliCtx *cli.Context) error {
	d, err := db.New(n.ctx, &db.Config{
		DSN:          cliCtx.String(flags.DatabaseDSNFlag.Name),
		MaxOpenConns: cliCtx.Int(flags.DBMaxOpenConns.Name),
		MaxIdleConns: cliCtx.Int(flags.DBMaxIdleConns.Name),
	})
	if err != nil {
		return err
	}
	if err := d.Migrate(n.ctx); err != nil {
		return err
	}
	n.db = d
	return nil
}

// startFabric wires the stateless snapshot machinery: the revision registry,
// the change dispatcher, the builder, the cache coordinator and the binding
// service. None of these run goroutines of their own.
func (n *DisplayNode) startFabric() error {
	n.registry = revision.NewRegistry(n.store)
	n.dispatcher = signals.NewDispatcher(n.registry)
	builder := snapshot.NewBuilder(n.db)
	coordinator, err := cache.NewCoordinator(n.registry, n.store, builder)
	if err != nil {
		return err
	}
	n.coordinator = coordinator
	n.binder = binding.NewService(n.db)
	if features.Get().WSEnabled {
		n.wsTracker = wsstats.NewTracker()
	}
	return nil
}

func (n *DisplayNode) registerRPCService(cliCtx *cli.Context) error {
	srv := &display.Server{
		Revisions:  n.registry,
		Snapshots:  n.coordinator,
		Screens:    n.binder,
		Limits:     n.store,
		AdminToken: cliCtx.String(flags.AdminTokenFlag.Name),
	}
	if n.wsTracker != nil {
		srv.WSStats = n.wsTracker
	}

	service := rpc.NewService(n.ctx, &rpc.Config{
		Host:           cliCtx.String(flags.HTTPHost.Name),
		Port:           cliCtx.Int(flags.HTTPPort.Name),
		AllowedOrigins: strings.Split(cliCtx.String(flags.CorsDomains.Name), ","),
		Display:        srv,
	})
	return n.services.RegisterService(service)
}

func (n *DisplayNode) registerPushService(cliCtx *cli.Context) error {
	if !features.Get().WSEnabled {
		return nil
	}

	var rpcService *rpc.Service
	if err := n.services.FetchService(&rpcService); err != nil {
		return err
	}

	service := push.NewService(n.ctx, &push.Config{
		Screens:          n.binder,
		Source:           n.store,
		Stats:            n.wsTracker,
		StatsLogInterval: time.Duration(cliCtx.Int(flags.WSMetricsLogInterval.Name)) * time.Second,
	})
	// The handshake route rides the display API listener, so it must attach
	// before that server starts.
	service.RegisterRoutes(rpcService.Router())
	return n.services.RegisterService(service)
}

func (n *DisplayNode) registerPrometheusService(cliCtx *cli.Context) error {
	var additionalHandlers []prometheus.Handler
	if cliCtx.Bool(cmd.EnableBackupWebhookFlag.Name) {
		additionalHandlers = append(
			additionalHandlers,
			prometheus.Handler{Path: "/store/backup", Handler: backup.Handler(n.store)},
		)
	}

	service := prometheus.NewService(
		fmt.Sprintf("%s:%d", cliCtx.String(cmd.MonitoringHostFlag.Name), cliCtx.Int(flags.MonitoringPortFlag.Name)),
		n.services,
		additionalHandlers...,
	)
	hook := prometheus.NewLogrusCollector()
	logrus.AddHook(hook)
	return n.services.RegisterService(service)
}
