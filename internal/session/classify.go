package session

import (
	"context"
	"net"
	"strings"
	"syscall"

	"github.com/pkg/errors"
)

// Classify maps a raw runtime error onto the load error taxonomy. Errors that
// already carry a classification are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := LoadErrorKindOf(err); ok {
		return err
	}
	switch {
	case isResourceExhausted(err):
		return ErrResourceExhaustion(err)
	case isNetwork(err):
		return ErrNetworkFailure(err)
	default:
		return ErrLoadFailed(err)
	}
}

func isResourceExhausted(err error) bool {
	if errors.Is(err, syscall.ENOSPC) || errors.Is(err, syscall.ENOMEM) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"out of memory", "failed to allocate", "cannot allocate", "no space left"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func isNetwork(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}
