package web

// errors.go provides unified error response handling for the API.
//
// Technical errors are logged server-side with the chi request ID for
// correlation; clients receive a stable JSON shape with a
// machine-readable code.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/advocase/importer/internal/importer"
	"github.com/advocase/importer/internal/store"
)

// ErrorResponse is the JSON structure for API error responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// respondError logs the technical error and writes the client-facing
// JSON form.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"request_id", middleware.GetReqID(r.Context()),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error: clientMessage(err),
		Code:  errorCode(err),
	})
}

// clientMessage maps internal errors to client-safe messages. Unknown
// errors are not echoed back verbatim.
func clientMessage(err error) string {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return "resource not found"
	case errors.Is(err, importer.ErrSessionActive):
		return "an import session is already running"
	case errors.Is(err, importer.ErrNoActiveSession):
		return "no import session is running"
	case errors.Is(err, importer.ErrDuplicateImport):
		return "this file was already imported"
	case errors.Is(err, errBadRequest):
		return err.Error()
	}
	return "internal error"
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, importer.ErrSessionActive):
		return "SESSION_ACTIVE"
	case errors.Is(err, importer.ErrNoActiveSession):
		return "NO_ACTIVE_SESSION"
	case errors.Is(err, importer.ErrDuplicateImport):
		return "DUPLICATE_IMPORT"
	case errors.Is(err, errBadRequest):
		return "BAD_REQUEST"
	}
	return "INTERNAL"
}

// errBadRequest marks validation errors raised by the handlers; the
// wrapped message is safe to show to the client.
var errBadRequest = errors.New("bad request")

// writeError writes a bare JSON error without request context. Used by
// middleware that runs before a request ID exists.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message, Code: http.StatusText(status)})
}

// writeJSON encodes v and writes it with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode", "error", err)
	}
}
