package fetch

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"
)

// ErrParseTimeout means CSV row parsing did not finish inside the dataset's
// parse deadline. Fatal for the fetch; never retried.
var ErrParseTimeout = errors.New("csv parsing exceeded deadline")

// Error is a terminal or per-attempt fetch failure with enough context for
// the caller-facing payload.
type Error struct {
	Dataset   string
	URL       string
	Attempts  int
	Status    int // last HTTP status, 0 for transport failures
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("fetch %s: HTTP %d after %d attempt(s): %v", e.Dataset, e.Status, e.Attempts, e.Err)
	}
	return fmt.Sprintf("fetch %s: %d attempt(s): %v", e.Dataset, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a transient failure worth retrying:
// timeout, connection reset, DNS failure, or a 5xx status.
func IsRetryable(err error) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Retryable
	}
	if errors.Is(err, ErrParseTimeout) {
		return false
	}
	return isTransientTransport(err)
}

// isTimeoutClass reports whether err was caused by a deadline rather than a
// refused/reset connection or server error. Timeout-class failures grow the
// next attempt's HTTP timeout.
func isTimeoutClass(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Timeout()
	}
	return false
}

func isTransientTransport(err error) bool {
	if err == nil {
		return false
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	// url.Error wraps transport failures with free-form text in older stacks
	s := err.Error()
	return strings.Contains(s, "connection reset") || strings.Contains(s, "EOF")
}

// retryableStatus reports whether an HTTP status is worth retrying. 5xx,
// especially 502/503/504, are transient; 4xx never are.
func retryableStatus(status int) bool {
	return status >= 500
}
