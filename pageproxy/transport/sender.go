package transport

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"time"
)

// Sender sends one HTTP/1.1 exchange per connection, routed through a
// forward proxy when one is given. Redirects are never followed: a 3xx is
// returned like any other response.
type Sender struct {
	// Timeouts holds configurable timeout values for dial, read, and write.
	// Zero values mean no timeout.
	Timeouts TimeoutConfig

	// Decompress decodes gzip, deflate, and zstd bodies and rewrites the
	// framing headers to match.
	Decompress bool

	// MaxBodyBytes limits the response body size, 0 means unlimited.
	MaxBodyBytes int

	// TLSConfig is cloned for every origin (and https proxy) handshake.
	// nil uses the system roots.
	TLSConfig *tls.Config
}

// Send writes req and reads the full response. proxyURL selects the agent:
// nil dials the origin directly, an http(s) proxy uses the forward agent for
// http targets and the CONNECT tunnel agent for https targets, and a socks5
// proxy dials through SOCKS.
// Failures after validation are returned as *Error.
func (s *Sender) Send(ctx context.Context, req *Request, proxyURL *url.URL) (*Response, error) {
	if err := validateRequest(req); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	a, err := s.agentFor(req.URL, proxyURL)
	if err != nil {
		return nil, err
	}
	conn, err := a.dial(ctx, req.URL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()

	// unblock reads and writes once the caller gives up
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	addr := targetAddr(req.URL)
	if s.Timeouts.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(s.Timeouts.WriteTimeout))
	}
	var buf bytes.Buffer
	if _, err := conn.Write(writeRequest(&buf, req, a.absoluteForm(), a.proxyAuth())); err != nil {
		return nil, opError(ctx, "write", addr, err)
	}

	if s.Timeouts.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.Timeouts.ReadTimeout))
	}
	resp, err := parseResponse(bufio.NewReader(conn), req.Method, s.MaxBodyBytes)
	if err != nil {
		return nil, opError(ctx, "read", addr, err)
	}

	if s.Decompress {
		decodeBody(resp, s.MaxBodyBytes)
	}
	return resp, nil
}

// dialTCP opens a plain TCP connection honoring the dial timeout.
func (s *Sender) dialTCP(ctx context.Context, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: s.Timeouts.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, opError(ctx, "dial", addr, err)
	}
	return conn, nil
}

// handshake runs a client TLS handshake for serverName over conn.
// conn is closed on failure.
func (s *Sender) handshake(ctx context.Context, conn net.Conn, serverName string) (net.Conn, error) {
	var cfg *tls.Config
	if s.TLSConfig != nil {
		cfg = s.TLSConfig.Clone()
	} else {
		cfg = &tls.Config{}
	}
	if cfg.ServerName == "" {
		cfg.ServerName = serverName
	}
	cfg.NextProtos = []string{"http/1.1"}

	if s.Timeouts.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeouts.DialTimeout)
		defer cancel()
	}

	tlsConn := tls.Client(conn, cfg)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		_ = conn.Close()
		return nil, opError(ctx, "tls", serverName, err)
	}
	return tlsConn, nil
}

// targetAddr returns host:port for u, defaulting the port from the scheme.
func targetAddr(u *url.URL) string {
	port := u.Port()
	if port == "" {
		switch u.Scheme {
		case "https":
			port = "443"
		case "socks5", "socks5h":
			port = "1080"
		default:
			port = "80"
		}
	}
	return net.JoinHostPort(u.Hostname(), port)
}

// opError wraps err as *Error, preferring the context error when the
// failure was caused by cancellation closing the connection.
func opError(ctx context.Context, op, addr string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	return &Error{Op: op, Addr: addr, Err: err}
}
