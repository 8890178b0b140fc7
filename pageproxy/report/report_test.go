package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/go-appsec/pageproxy/pageproxy/cookie"
	"github.com/go-appsec/pageproxy/pageproxy/history"
)

var testNow = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

func TestExchanges(t *testing.T) {
	t.Parallel()

	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		Exchanges(&buf, nil)
		assert.Contains(t, buf.String(), "No requests were forwarded.")
	})

	t.Run("rows_and_summary", func(t *testing.T) {
		var buf bytes.Buffer
		Exchanges(&buf, []*history.Entry{
			{Offset: 1, Method: "GET", URL: "http://example.test/login", Status: 200, CookiesReceived: 2},
			{Offset: 2, Method: "GET", URL: "http://missing.test/", Error: "dial missing.test:80: no such host"},
		})

		out := buf.String()
		assert.Contains(t, out, "http://example.test/login")
		assert.Contains(t, out, "0/2")
		assert.Contains(t, out, "no such host")
		assert.Contains(t, out, "2 exchanges")
		assert.Contains(t, out, "1 failed")
	})
}

func TestCookieCounts(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1/2", cookieCounts(&history.Entry{CookiesSent: 1, CookiesReceived: 2}))
	assert.Equal(t, "0/1 (-2)", cookieCounts(&history.Entry{CookiesReceived: 1, CookiesDropped: 2}))
}

func TestCookies(t *testing.T) {
	t.Parallel()

	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		Cookies(&buf, nil, testNow)
		assert.Contains(t, buf.String(), "Cookie jar is empty.")
	})

	t.Run("rows", func(t *testing.T) {
		var buf bytes.Buffer
		Cookies(&buf, []cookie.Cookie{
			{Name: "foo", Value: "bar", Domain: "example.test", Path: "/", Expires: cookie.SessionExpiry},
			{Name: "theme", Value: "dark", Domain: ".example.test", Path: "/", Expires: testNow.Add(time.Hour).Unix(), Secure: true},
		}, testNow)

		out := buf.String()
		assert.Contains(t, out, "foo")
		assert.Contains(t, out, "session")
		assert.Contains(t, out, "2025-03-14T11:00:00Z")
		assert.Contains(t, out, "2 cookies")
	})
}

func TestSetCookieLines(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	SetCookieLines(&buf, []cookie.Cookie{
		{Name: "foo", Value: "bar", Domain: "example.test", Path: "/", Expires: cookie.SessionExpiry},
	}, testNow)
	assert.Equal(t, "foo=bar; Path=/\n", buf.String())
}

func TestExpiry(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "session", expiry(cookie.Cookie{Expires: cookie.SessionExpiry}, testNow))
	assert.Equal(t, "expired", expiry(cookie.Cookie{Expires: testNow.Unix() - 1}, testNow))
	assert.Equal(t, "2025-03-14T10:01:00Z", expiry(cookie.Cookie{Expires: testNow.Unix() + 60}, testNow))
}

func TestFlags(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "HostOnly", flags(cookie.Cookie{Domain: "example.test"}))
	assert.Equal(t, "Secure HttpOnly SameSite=Lax",
		flags(cookie.Cookie{Domain: ".example.test", Secure: true, HTTPOnly: true, SameSite: cookie.SameSiteLax}))
}
