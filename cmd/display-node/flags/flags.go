// Package flags defines display-node specific command line flags.
package flags

import (
	"github.com/urfave/cli/v2"
)

var (
	// HTTPHost defines the address the display API listens on.
	HTTPHost = &cli.StringFlag{
		Name:  "http-host",
		Usage: "Host on which the display API is served",
		Value: "127.0.0.1",
	}
	// HTTPPort defines the port the display API listens on.
	HTTPPort = &cli.IntFlag{
		Name:  "http-port",
		Usage: "Port on which the display API is served",
		Value: 8600,
	}
	// CorsDomains defines the origins allowed to call the display API from a
	// browser context. Kiosk devices ignore CORS entirely.
	CorsDomains = &cli.StringFlag{
		Name:  "http-cors-domain",
		Usage: "Comma separated list of origins allowed to access the display API",
		Value: "*",
	}
	// AdminTokenFlag guards the operator unbind route. Empty disables it.
	AdminTokenFlag = &cli.StringFlag{
		Name:    "admin-token",
		Usage:   "Bearer token that unlocks operator routes such as screen unbind. Empty disables them.",
		EnvVars: []string{"DISPLAY_ADMIN_TOKEN"},
	}
	// RedisAddrFlag points at the shared key-value fabric.
	RedisAddrFlag = &cli.StringFlag{
		Name:    "redis-addr",
		Usage:   "host:port of the Redis instance holding revisions, snapshots and rate counters",
		Value:   "127.0.0.1:6379",
		EnvVars: []string{"REDIS_ADDR"},
	}
	// RedisPasswordFlag authenticates against the key-value fabric.
	RedisPasswordFlag = &cli.StringFlag{
		Name:    "redis-password",
		Usage:   "Password for the Redis instance, empty for none",
		EnvVars: []string{"REDIS_PASSWORD"},
	}
	// RedisDBFlag selects the logical Redis database.
	RedisDBFlag = &cli.IntFlag{
		Name:    "redis-db",
		Usage:   "Logical Redis database number",
		EnvVars: []string{"REDIS_DB"},
	}
	// DatabaseDSNFlag points at the authoritative SQL store.
	DatabaseDSNFlag = &cli.StringFlag{
		Name:    "db-dsn",
		Usage:   "PostgreSQL connection string for the schedule, roster and screen tables",
		Value:   "postgres://localhost:5432/school_display?sslmode=disable",
		EnvVars: []string{"DATABASE_DSN"},
	}
	// DBMaxOpenConns caps the SQL connection pool.
	DBMaxOpenConns = &cli.IntFlag{
		Name:  "db-max-open-conns",
		Usage: "Maximum open connections in the SQL pool",
		Value: 16,
	}
	// DBMaxIdleConns holds warm SQL connections between builds.
	DBMaxIdleConns = &cli.IntFlag{
		Name:  "db-max-idle-conns",
		Usage: "Maximum idle connections kept in the SQL pool",
		Value: 4,
	}
	// MonitoringPortFlag defines the port used to serve prometheus metrics.
	MonitoringPortFlag = &cli.IntFlag{
		Name:  "monitoring-port",
		Usage: "Port used to listening and respond metrics for prometheus.",
		Value: 8081,
	}
	// SnapshotEdgeMaxAge overrides the s-maxage seconds granted to fresh
	// snapshot responses.
	SnapshotEdgeMaxAge = &cli.IntFlag{
		Name:    "snapshot-edge-max-age",
		Usage:   "Seconds a CDN or reverse proxy may share a fresh snapshot response",
		Value:   10,
		EnvVars: []string{"SNAPSHOT_EDGE_MAX_AGE"},
	}
	// WSChannelCapacity overrides the per-instance concurrent socket cap.
	WSChannelCapacity = &cli.IntFlag{
		Name:    "ws-channel-capacity",
		Usage:   "Maximum concurrent display sockets accepted by this instance",
		Value:   2000,
		EnvVars: []string{"WS_CHANNEL_CAPACITY"},
	}
	// WSPingIntervalSeconds overrides the expected client ping cadence. The
	// server read deadline stays at three intervals.
	WSPingIntervalSeconds = &cli.IntFlag{
		Name:    "ws-ping-interval-seconds",
		Usage:   "Seconds between application level pings expected from display sockets",
		Value:   30,
		EnvVars: []string{"WS_PING_INTERVAL_SECONDS"},
	}
	// WSMetricsLogInterval sets the cadence of the push plane summary log.
	WSMetricsLogInterval = &cli.IntFlag{
		Name:    "ws-metrics-log-interval",
		Usage:   "Seconds between push plane health summary log lines, 0 disables them",
		Value:   60,
		EnvVars: []string{"WS_METRICS_LOG_INTERVAL"},
	}
)
