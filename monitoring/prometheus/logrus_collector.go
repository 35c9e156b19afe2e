package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

var logEntries = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "log_entries_total",
	Help: "Total number of log messages by level and subsystem prefix.",
}, []string{"level", "prefix"})

// LogrusCollector is a logrus hook counting log volume per subsystem, which
// makes warn and error bursts visible on dashboards before anyone reads the
// log files.
type LogrusCollector struct{}

// NewLogrusCollector returns the hook; register it on the global logger.
func NewLogrusCollector() *LogrusCollector {
	return &LogrusCollector{}
}

// Fire is called on every log call.
func (*LogrusCollector) Fire(entry *logrus.Entry) error {
	prefix := "global"
	if v, ok := entry.Data["prefix"].(string); ok {
		prefix = v
	}
	logEntries.WithLabelValues(entry.Level.String(), prefix).Inc()
	return nil
}

// Levels reports the levels this hook counts.
func (*LogrusCollector) Levels() []logrus.Level {
	return []logrus.Level{logrus.InfoLevel, logrus.WarnLevel, logrus.ErrorLevel}
}
