package bridge

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest = errors.New("invalid intercepted request")
	ErrTransport      = errors.New("upstream transport failed")
	ErrRelay          = errors.New("intercepted request could not be fulfilled")
	ErrCookieStore    = errors.New("cookie store failed")
)

// Kind classifies a ForwardError.
type Kind int

const (
	KindInvalidRequest Kind = iota + 1
	KindTransport
	KindRelay
	KindCookieStore
)

func (k Kind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid_request"
	case KindTransport:
		return "transport"
	case KindRelay:
		return "relay"
	case KindCookieStore:
		return "cookie_store"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindInvalidRequest:
		return ErrInvalidRequest
	case KindTransport:
		return ErrTransport
	case KindRelay:
		return ErrRelay
	case KindCookieStore:
		return ErrCookieStore
	default:
		return nil
	}
}

// ForwardError is returned by ProxyRequest. errors.Is matches the sentinel
// of its Kind as well as anything in the cause chain.
type ForwardError struct {
	Kind Kind
	URL  string
	Err  error
}

func (e *ForwardError) Error() string {
	return fmt.Sprintf("proxy %s: %v: %v", e.URL, e.Kind.sentinel(), e.Err)
}

func (e *ForwardError) Unwrap() []error {
	if s := e.Kind.sentinel(); s != nil {
		return []error{s, e.Err}
	}
	return []error{e.Err}
}
