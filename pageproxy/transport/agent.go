package transport

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
)

// agent opens the connection an exchange is written to and decides how the
// request-target is formed on it.
type agent interface {
	dial(ctx context.Context, target *url.URL) (net.Conn, error)
	absoluteForm() bool
	proxyAuth() string
}

// agentFor selects the agent for a target URL and optional proxy.
func (s *Sender) agentFor(target, proxyURL *url.URL) (agent, error) {
	if proxyURL == nil {
		return &directAgent{s: s}, nil
	}

	switch proxyURL.Scheme {
	case "http", "https":
		if target.Scheme == "https" {
			return &tunnelAgent{s: s, proxy: proxyURL}, nil
		}
		return &forwardAgent{s: s, proxy: proxyURL}, nil
	case "socks5", "socks5h":
		return &socksAgent{s: s, proxy: proxyURL}, nil
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q", proxyURL.Scheme)
	}
}

// directAgent dials the origin without a proxy.
type directAgent struct {
	s *Sender
}

func (a *directAgent) dial(ctx context.Context, target *url.URL) (net.Conn, error) {
	conn, err := a.s.dialTCP(ctx, targetAddr(target))
	if err != nil {
		return nil, err
	} else if target.Scheme == "https" {
		return a.s.handshake(ctx, conn, target.Hostname())
	}
	return conn, nil
}

func (a *directAgent) absoluteForm() bool { return false }
func (a *directAgent) proxyAuth() string  { return "" }

// forwardAgent sends plain http requests to the proxy in absolute-form and
// lets the proxy make the origin connection.
type forwardAgent struct {
	s     *Sender
	proxy *url.URL
}

func (a *forwardAgent) dial(ctx context.Context, _ *url.URL) (net.Conn, error) {
	return dialProxy(ctx, a.s, a.proxy)
}

func (a *forwardAgent) absoluteForm() bool { return true }
func (a *forwardAgent) proxyAuth() string  { return proxyAuthorization(a.proxy) }

// tunnelAgent asks the proxy for a CONNECT tunnel to the origin and runs TLS
// end to end through it. The proxy never sees the request itself.
type tunnelAgent struct {
	s     *Sender
	proxy *url.URL
}

func (a *tunnelAgent) dial(ctx context.Context, target *url.URL) (net.Conn, error) {
	conn, err := dialProxy(ctx, a.s, a.proxy)
	if err != nil {
		return nil, err
	}

	proxyAddr := targetAddr(a.proxy)
	authority := targetAddr(target)
	if a.s.Timeouts.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(a.s.Timeouts.WriteTimeout))
	}
	var buf bytes.Buffer
	if _, err := conn.Write(writeConnect(&buf, authority, proxyAuthorization(a.proxy))); err != nil {
		_ = conn.Close()
		return nil, opError(ctx, "connect", proxyAddr, err)
	}

	if a.s.Timeouts.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(a.s.Timeouts.ReadTimeout))
	}
	br := bufio.NewReader(conn)
	resp, err := parseResponseHead(br)
	if err != nil {
		_ = conn.Close()
		return nil, opError(ctx, "connect", proxyAddr, err)
	} else if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = conn.Close()
		return nil, &Error{
			Op:   "connect",
			Addr: proxyAddr,
			Err:  &ConnectStatusError{StatusCode: resp.StatusCode, StatusText: resp.StatusText},
		}
	}
	_ = conn.SetDeadline(time.Time{})

	if br.Buffered() > 0 {
		conn = &bufferedConn{Conn: conn, r: br}
	}
	return a.s.handshake(ctx, conn, target.Hostname())
}

func (a *tunnelAgent) absoluteForm() bool { return false }
func (a *tunnelAgent) proxyAuth() string  { return "" }

// socksAgent dials the origin through a SOCKS5 proxy. The exchange on the
// resulting connection looks like a direct one.
type socksAgent struct {
	s     *Sender
	proxy *url.URL
}

func (a *socksAgent) dial(ctx context.Context, target *url.URL) (net.Conn, error) {
	var auth *proxy.Auth
	if a.proxy.User != nil {
		password, _ := a.proxy.User.Password()
		auth = &proxy.Auth{User: a.proxy.User.Username(), Password: password}
	}

	proxyAddr := targetAddr(a.proxy)
	dialer, err := proxy.SOCKS5("tcp", proxyAddr, auth, &net.Dialer{Timeout: a.s.Timeouts.DialTimeout})
	if err != nil {
		return nil, &Error{Op: "dial", Addr: proxyAddr, Err: err}
	}

	addr := targetAddr(target)
	var conn net.Conn
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		conn, err = cd.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.Dial("tcp", addr)
	}
	if err != nil {
		return nil, opError(ctx, "dial", addr, err)
	} else if target.Scheme == "https" {
		return a.s.handshake(ctx, conn, target.Hostname())
	}
	return conn, nil
}

func (a *socksAgent) absoluteForm() bool { return false }
func (a *socksAgent) proxyAuth() string  { return "" }

// dialProxy connects to an http or https proxy endpoint.
func dialProxy(ctx context.Context, s *Sender, proxyURL *url.URL) (net.Conn, error) {
	conn, err := s.dialTCP(ctx, targetAddr(proxyURL))
	if err != nil {
		return nil, err
	} else if proxyURL.Scheme == "https" {
		return s.handshake(ctx, conn, proxyURL.Hostname())
	}
	return conn, nil
}

// bufferedConn drains bytes the CONNECT reply reader already buffered
// before reading from the connection again.
type bufferedConn struct {
	net.Conn
	r *bufio.Reader
}

func (c *bufferedConn) Read(p []byte) (int, error) { return c.r.Read(p) }
