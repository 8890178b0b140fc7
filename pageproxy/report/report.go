// Package report renders exchange history and cookie jars for the commands.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/go-appsec/pageproxy/pageproxy/cliutil"
	"github.com/go-appsec/pageproxy/pageproxy/cookie"
	"github.com/go-appsec/pageproxy/pageproxy/history"
)

const maxCellWidth = 72

// Exchanges prints one row per recorded exchange, oldest first.
func Exchanges(w io.Writer, entries []*history.Entry) {
	if len(entries) == 0 {
		cliutil.NoResults(w, "No requests were forwarded.")
		return
	}

	t := cliutil.NewTable(w)
	t.AppendHeader(table.Row{"#", "Method", "URL", "Status", "Cookies", "Bytes", "Time", "Error"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, WidthMax: maxCellWidth},
		{Number: 8, WidthMax: maxCellWidth},
	})
	t.SetRowPainter(cliutil.StatusRowPainter(3))
	for _, e := range entries {
		t.AppendRow(table.Row{
			e.Offset,
			e.Method,
			e.URL,
			e.Status,
			cookieCounts(e),
			e.ResponseBytes,
			e.Duration.Round(time.Millisecond).String(),
			cliutil.SingleLine(e.Error),
		})
	}
	cliutil.Render(t)

	var failed int
	for _, e := range entries {
		if e.Failed() {
			failed++
		}
	}
	cliutil.Summary(w, len(entries), "exchange", "exchanges")
	if failed > 0 {
		_, _ = fmt.Fprintln(w, cliutil.Error(fmt.Sprintf("%d failed", failed)))
	}
}

// cookieCounts formats sent/received, with dropped Set-Cookie lines appended
// when there were any.
func cookieCounts(e *history.Entry) string {
	s := fmt.Sprintf("%d/%d", e.CookiesSent, e.CookiesReceived)
	if e.CookiesDropped > 0 {
		s += fmt.Sprintf(" (-%d)", e.CookiesDropped)
	}
	return s
}

// Cookies prints a jar as a table. Expired cookies are listed with their
// expiry so a deletion is visible.
func Cookies(w io.Writer, cookies []cookie.Cookie, now time.Time) {
	if len(cookies) == 0 {
		cliutil.NoResults(w, "Cookie jar is empty.")
		return
	}

	t := cliutil.NewTable(w)
	t.AppendHeader(table.Row{"Name", "Value", "Domain", "Path", "Expires", "Flags"})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, WidthMax: maxCellWidth / 2}})
	for _, c := range cookies {
		t.AppendRow(table.Row{c.Name, cliutil.SingleLine(c.Value), c.Domain, c.Path, expiry(c, now), flags(c)})
	}
	cliutil.Render(t)
	cliutil.Summary(w, len(cookies), "cookie", "cookies")
}

// SetCookieLines prints the jar as Set-Cookie header values, one per line.
func SetCookieLines(w io.Writer, cookies []cookie.Cookie, now time.Time) {
	for _, c := range cookies {
		_, _ = fmt.Fprintln(w, cookie.FormatSetCookie(c, now))
	}
}

func expiry(c cookie.Cookie, now time.Time) string {
	if c.Session() {
		return "session"
	} else if c.Expired(now) {
		return "expired"
	}
	return c.ExpiresTime().UTC().Format(time.RFC3339)
}

func flags(c cookie.Cookie) string {
	var parts []string
	if c.HostOnly() {
		parts = append(parts, "HostOnly")
	}
	if c.Secure {
		parts = append(parts, "Secure")
	}
	if c.HTTPOnly {
		parts = append(parts, "HttpOnly")
	}
	if c.SameSite != cookie.SameSiteDefault {
		parts = append(parts, "SameSite="+string(c.SameSite))
	}
	return strings.Join(parts, " ")
}
