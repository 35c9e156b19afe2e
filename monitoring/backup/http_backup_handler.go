// Package backup exposes a webhook on the monitoring server that asks the
// key-value store for a background save, so operators can snapshot revision
// counters and bindings before maintenance.
package backup

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

// Exporter defines a backup exporter method.
type Exporter interface {
	Backup(ctx context.Context) error
}

// Handler for accepting requests to initiate a new store backup.
func Handler(bk Exporter) func(http.ResponseWriter, *http.Request) {
	log := logrus.WithField("prefix", "store")

	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Creating store backup from HTTP webhook")

		if err := bk.Backup(r.Context()); err != nil {
			log.WithError(err).Error("Failed to create backup")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, err := fmt.Fprint(w, "OK")
		if err != nil {
			log.WithError(err).Error("Failed to write OK")
		}
	}
}
