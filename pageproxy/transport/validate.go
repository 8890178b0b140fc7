package transport

import (
	"errors"
	"fmt"

	"golang.org/x/net/http/httpguts"
)

// validateRequest performs basic sanity checks before a request is written
// to the wire. Header injection through CR/LF or NUL is rejected here since
// writeRequest emits names and values verbatim.
func validateRequest(req *Request) error {
	if req == nil {
		return errors.New("nil request")
	} else if req.Method == "" {
		return errors.New("empty method")
	} else if !httpguts.ValidHeaderFieldName(req.Method) {
		// method is a token, same grammar as a field name
		return fmt.Errorf("invalid method characters: %q", req.Method)
	} else if req.URL == nil {
		return errors.New("nil URL")
	} else if req.URL.Host == "" {
		return fmt.Errorf("URL has no host: %q", req.URL.String())
	}

	switch req.URL.Scheme {
	case "http", "https":
	default:
		return fmt.Errorf("unsupported URL scheme %q", req.URL.Scheme)
	}

	for _, h := range req.Headers {
		if !httpguts.ValidHeaderFieldName(h.Name) {
			return fmt.Errorf("invalid header name: %q", h.Name)
		} else if !httpguts.ValidHeaderFieldValue(h.Value) {
			return fmt.Errorf("invalid header value for %q", h.Name)
		}
	}
	return nil
}
