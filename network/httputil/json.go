package httputil

import (
	"compress/gzip"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// WriteJson writes the response message in JSON format with a 200 status.
func WriteJson(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Could not write response message")
	}
}

// AcceptsGzip reports whether the request advertises gzip support.
func AcceptsGzip(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept-Encoding"), "gzip")
}

// WriteBody writes a prebuilt body, gzip-compressing on the wire when the
// request advertises support. The uncompressed bytes stay authoritative for
// conditional requests, so Vary carries Accept-Encoding either way.
func WriteBody(w http.ResponseWriter, r *http.Request, body []byte, status int) error {
	w.Header().Add("Vary", "Accept-Encoding")
	if AcceptsGzip(r) {
		w.Header().Set("Content-Encoding", "gzip")
		w.WriteHeader(status)
		zw := gzip.NewWriter(w)
		if _, err := zw.Write(body); err != nil {
			return err
		}
		return zw.Close()
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	_, err := w.Write(body)
	return err
}
