package resilience

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"syscall"
)

// StatusError carries an HTTP status from an endpoint so callers can decide
// whether a retry or an endpoint alternate is worth trying.
type StatusError struct {
	Service    string
	StatusCode int
}

func (e *StatusError) Error() string {
	return e.Service + ": unexpected status " + strconv.Itoa(e.StatusCode)
}

// RetryableStatus reports whether an HTTP status indicates a transient
// server-side issue.
func RetryableStatus(code int) bool {
	switch code {
	case 408, 429, 500, 502, 503, 504:
		return true
	}
	return false
}

// IsTransient reports whether an error is safe to retry: a retryable
// StatusError, a network timeout, or a connection-level failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		return RetryableStatus(se.StatusCode)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
