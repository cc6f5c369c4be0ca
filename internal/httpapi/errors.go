package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"probatescout-engine/internal/fetch"
	"probatescout-engine/internal/resolve"
)

type APIError struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	var e APIError
	e.Error.Code = code
	e.Error.Message = message
	e.Error.RequestID = RequestIDFrom(r.Context())
	WriteJSON(w, status, e)
}

// writeResolveError maps the resolution error taxonomy onto HTTP statuses:
// a structurally unusable query is the caller's problem, a misconfigured
// source is ours, and an unreachable or slow source is upstream's.
func writeResolveError(w http.ResponseWriter, r *http.Request, err error) {
	var cfgErr *resolve.ConfigError
	var exhausted *resolve.ExhaustedError

	switch {
	case errors.Is(err, resolve.ErrNoHouseNumber):
		WriteError(w, r, http.StatusUnprocessableEntity, "unresolvable_address", err.Error())
	case errors.As(err, &cfgErr):
		WriteError(w, r, http.StatusInternalServerError, "source_misconfigured", err.Error())
	case errors.As(err, &exhausted) && exhausted.Timeout,
		fetch.IsTimeout(err):
		WriteError(w, r, http.StatusGatewayTimeout, "source_timeout", err.Error())
	case errors.As(err, &exhausted), fetch.IsTransport(err):
		WriteError(w, r, http.StatusBadGateway, "source_unreachable", err.Error())
	default:
		WriteError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
