// Package httputil includes helpers and handlers for writing display API
// HTTP responses.
package httputil

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"
)

// DefaultErrorJson is a JSON representation of a simple error value,
// containing only a message and an error code.
type DefaultErrorJson struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// HandleError writes the error message and code to the response writer.
func HandleError(w http.ResponseWriter, message string, code int) {
	errJson := &DefaultErrorJson{
		Message: message,
		Code:    code,
	}
	WriteError(w, errJson)
}

// WriteError writes the error by manipulating headers and the body of the final response.
func WriteError(w http.ResponseWriter, errJson *DefaultErrorJson) {
	j, err := json.Marshal(errJson)
	if err != nil {
		log.WithError(err).Error("Could not marshal error message")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(errJson.Code)
	if _, err := w.Write(j); err != nil {
		log.WithError(err).Error("Could not write error message")
	}
}
