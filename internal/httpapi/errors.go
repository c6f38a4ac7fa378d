package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	"askd/internal/session"
	"askd/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// errorStatus maps a service error to an HTTP status and a machine-readable kind.
func errorStatus(err error) (int, string) {
	if kind, ok := session.LoadErrorKindOf(err); ok {
		switch kind {
		case session.KindUnsupportedEnvironment:
			return http.StatusNotImplemented, string(kind)
		case session.KindNetworkFailure:
			return http.StatusServiceUnavailable, string(kind)
		case session.KindResourceExhaustion:
			return http.StatusInsufficientStorage, string(kind)
		default:
			return http.StatusInternalServerError, string(kind)
		}
	}
	var he HTTPError
	switch {
	case session.IsEmptyMessage(err):
		return http.StatusBadRequest, "empty_message"
	case session.IsNotReady(err):
		return http.StatusConflict, "not_ready"
	case session.IsGenerationInFlight(err):
		return http.StatusTooManyRequests, "generation_in_flight"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.As(err, &he):
		return he.StatusCode(), ""
	}
	return http.StatusInternalServerError, ""
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSONErrorKind(w, status, msg, "")
}

func writeJSONErrorKind(w http.ResponseWriter, status int, msg, kind string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{
		Error:     msg,
		Code:      status,
		Kind:      kind,
		Retryable: session.LoadErrorKind(kind).Retryable(),
	})
}
