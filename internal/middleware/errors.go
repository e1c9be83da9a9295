// Package middleware holds the HTTP-layer concerns shared by the
// coordinator and participant servers: error encoding and request logging.
package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ocx/fhecoord/internal/apperr"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// WriteError maps err to its HTTP status via apperr.Kind and writes a JSON
// {"error":{"kind","message"}} body, the shared error shape across every
// route in this core.
func WriteError(w http.ResponseWriter, err error) {
	var appErr *apperr.Error
	status := http.StatusInternalServerError
	kind := apperr.KindInternal
	msg := err.Error()

	if errors.As(err, &appErr) {
		status = appErr.Kind.HTTPStatus()
		kind = appErr.Kind
		msg = appErr.Msg
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: errorDetail{Kind: kind.String(), Message: msg}})
}

// Logging wraps a handler with a structured access log line, following the
// teacher's per-request slog.Info convention.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Info("request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
			next.ServeHTTP(w, r)
		})
	}
}
