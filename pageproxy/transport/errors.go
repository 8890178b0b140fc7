package transport

import (
	"errors"
	"fmt"
	"net"
)

// Error describes a failed exchange. Op names the step that failed:
// "dial", "connect", "tls", "write", or "read".
type Error struct {
	Op   string
	Addr string
	Err  error
}

func (e *Error) Error() string {
	if e.Addr == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Timeout reports whether the failure was caused by a deadline.
func (e *Error) Timeout() bool { return IsTimeout(e.Err) }

// ConnectStatusError is returned when a proxy refuses a CONNECT tunnel.
type ConnectStatusError struct {
	StatusCode int
	StatusText string
}

func (e *ConnectStatusError) Error() string {
	return fmt.Sprintf("proxy refused tunnel: %d %s", e.StatusCode, e.StatusText)
}

// IsTimeout reports whether err, or anything it wraps, is a timeout.
func IsTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
