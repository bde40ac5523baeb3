package panel

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jmcleod/visaexpress/apiclient"
	"github.com/jmcleod/visaexpress/controller"
	"github.com/jmcleod/visaexpress/session"
	"github.com/jmcleod/visaexpress/storage"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// statusFor maps an error to the HTTP status the panel reports for it.
func statusFor(err error) int {
	switch {
	case errors.Is(err, controller.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, session.ErrEmptyUsername):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	}
	var se *apiclient.StatusError
	if errors.As(err, &se) && se.StatusCode >= 400 && se.StatusCode < 500 {
		return se.StatusCode
	}
	return http.StatusBadGateway
}
