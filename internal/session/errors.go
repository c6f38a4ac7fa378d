package session

import (
	"fmt"

	"github.com/pkg/errors"
)

// LoadErrorKind classifies why acquiring a model failed.
type LoadErrorKind string

const (
	KindUnsupportedEnvironment LoadErrorKind = "unsupported_environment"
	KindNetworkFailure         LoadErrorKind = "network_failure"
	KindResourceExhaustion     LoadErrorKind = "resource_exhaustion"
	KindUnknown                LoadErrorKind = "unknown"
)

// Retryable reports whether calling Load again can reasonably succeed
// without the user changing anything.
func (k LoadErrorKind) Retryable() bool { return k == KindNetworkFailure }

// loadError is a classified model acquisition failure.
type loadError struct {
	kind  LoadErrorKind
	msg   string
	cause error
}

func (e loadError) Error() string {
	if e.cause != nil && e.msg != "" {
		return e.msg + ": " + e.cause.Error()
	}
	if e.cause != nil {
		return e.cause.Error()
	}
	return e.msg
}

func (e loadError) Unwrap() error { return e.cause }

// Kind returns the classification.
func (e loadError) Kind() LoadErrorKind { return e.kind }

// ErrUnsupportedEnvironment reports that the runtime cannot execute here at all
// (missing GPU/library support, stub build). Not retried automatically.
func ErrUnsupportedEnvironment(msg string) error {
	return loadError{kind: KindUnsupportedEnvironment, msg: msg}
}

// ErrNetworkFailure wraps a transient fetch failure. Safe to retry via Load.
func ErrNetworkFailure(cause error) error {
	return loadError{kind: KindNetworkFailure, msg: "network failure", cause: cause}
}

// ErrResourceExhaustion wraps an out-of-memory or out-of-disk failure.
func ErrResourceExhaustion(cause error) error {
	return loadError{kind: KindResourceExhaustion, msg: "insufficient resources", cause: cause}
}

// ErrLoadFailed wraps an unclassified acquisition failure.
func ErrLoadFailed(cause error) error {
	return loadError{kind: KindUnknown, cause: cause}
}

// LoadErrorKindOf returns the classification carried by err, if any.
func LoadErrorKindOf(err error) (LoadErrorKind, bool) {
	var le loadError
	if errors.As(err, &le) {
		return le.kind, true
	}
	return "", false
}

// IsUnsupportedEnvironment reports whether err indicates the runtime cannot run here.
func IsUnsupportedEnvironment(err error) bool {
	k, ok := LoadErrorKindOf(err)
	return ok && k == KindUnsupportedEnvironment
}

// IsNetworkFailure reports whether err indicates a transient fetch failure.
func IsNetworkFailure(err error) bool {
	k, ok := LoadErrorKindOf(err)
	return ok && k == KindNetworkFailure
}

// IsResourceExhaustion reports whether err indicates memory/disk exhaustion.
func IsResourceExhaustion(err error) bool {
	k, ok := LoadErrorKindOf(err)
	return ok && k == KindResourceExhaustion
}

// notReadyError signals Generate was called before Load completed.
type notReadyError struct{ state State }

func (e notReadyError) Error() string {
	return "model not loaded (state " + string(e.state) + "); call Load first"
}

// IsNotReady reports whether err came from calling Generate on a session
// that is not ready.
func IsNotReady(err error) bool {
	var e notReadyError
	return errors.As(err, &e)
}

// generationBusyError signals a second concurrent Generate call.
type generationBusyError struct{}

func (generationBusyError) Error() string { return "a response is already being generated" }

// IsGenerationInFlight reports whether err came from a concurrent Generate call.
func IsGenerationInFlight(err error) bool {
	var e generationBusyError
	return errors.As(err, &e)
}

// IsConcurrencyViolation reports whether err is a caller contract violation:
// generating before ready or while another generation runs.
func IsConcurrencyViolation(err error) bool {
	return IsNotReady(err) || IsGenerationInFlight(err)
}

// emptyMessageError signals a blank question.
type emptyMessageError struct{}

func (emptyMessageError) Error() string { return "message is empty" }

// IsEmptyMessage reports whether err came from a blank question.
func IsEmptyMessage(err error) bool {
	var e emptyMessageError
	return errors.As(err, &e)
}

// disposedError is returned to waiters of a load that Dispose abandoned.
type disposedError struct{}

func (disposedError) Error() string { return "session disposed during load" }

// IsDisposed reports whether a load was abandoned by Dispose.
func IsDisposed(err error) bool {
	var e disposedError
	return errors.As(err, &e)
}

// panicError carries a runtime panic recovered during completion.
type panicError struct{ value any }

func (e panicError) Error() string { return fmt.Sprintf("runtime panicked during completion: %v", e.value) }
