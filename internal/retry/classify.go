package retry

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// Class is the retryability verdict for a failure.
type Class int

const (
	// Permanent failures recur on retry (auth, validation, malformed input).
	Permanent Class = iota
	// Retryable failures are judged likely to succeed if repeated later.
	Retryable
)

func (c Class) String() string {
	if c == Retryable {
		return "retryable"
	}
	return "permanent"
}

// HTTPStatusError is implemented by errors that carry an HTTP-like status
// code, such as the LLM client's APIError.
type HTTPStatusError interface {
	error
	HTTPStatus() int
}

var permanentStatus = map[int]bool{
	400: true, 401: true, 403: true, 404: true, 405: true, 422: true,
}

var retryableStatus = map[int]bool{
	429: true, 500: true, 502: true, 503: true, 504: true,
}

// Permanent patterns are checked before retryable ones so that a message
// matching both (e.g. "unauthorized after timeout") is never retried.
var permanentPatterns = []string{
	"invalid api key",
	"unauthorized",
	"forbidden",
	"not found",
	"bad request",
	"malformed",
	"invalid request",
}

var retryablePatterns = []string{
	"timeout",
	"timed out",
	"connection reset",
	"connection refused",
	"no route to host",
	"network is unreachable",
	"rate limit",
	"service unavailable",
	"gateway timeout",
	"too many requests",
	"network error",
	"temporary failure",
}

// Classify decides whether a failure is worth retrying. Decision order:
// status code, then message patterns (permanent wins over retryable), then
// machine-readable network error codes. Unknown failures default to
// Permanent so bugs are not masked as transient conditions.
func Classify(err error) Class {
	if err == nil {
		return Permanent
	}

	var se HTTPStatusError
	if errors.As(err, &se) {
		code := se.HTTPStatus()
		switch {
		case permanentStatus[code]:
			return Permanent
		case retryableStatus[code]:
			return Retryable
		}
	}

	msg := strings.ToLower(err.Error())
	for _, p := range permanentPatterns {
		if strings.Contains(msg, p) {
			return Permanent
		}
	}
	for _, p := range retryablePatterns {
		if strings.Contains(msg, p) {
			return Retryable
		}
	}

	if isTransientCode(err) {
		return Retryable
	}
	return Permanent
}

// isTransientCode covers failures that carry a machine-readable network
// error rather than a recognizable message.
func isTransientCode(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	for _, errno := range []syscall.Errno{
		syscall.ETIMEDOUT,
		syscall.EHOSTUNREACH,
		syscall.ENETUNREACH,
		syscall.ECONNREFUSED,
		syscall.ECONNRESET,
		syscall.EPIPE,
	} {
		if errors.Is(err, errno) {
			return true
		}
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
