// Package cliutil holds the terminal output helpers shared by the commands.
package cliutil

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/term"
)

// Styled reports whether stdout is a terminal that gets colors and box
// drawing. Redirected output is rendered as plain Markdown instead.
var Styled = term.IsTerminal(int(os.Stdout.Fd())) && os.Getenv("NO_COLOR") == ""

func init() {
	if !Styled {
		text.DisableColors()
	}
}

// NewTable returns a table writer mirrored to w.
func NewTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

// Render writes t in the terminal style, or as Markdown when output is not
// styled.
func Render(t table.Writer) {
	if Styled {
		t.Render()
	} else {
		t.RenderMarkdown()
	}
}

// StatusRowPainter colors a row by the HTTP status found in column col.
// A status of 0 marks a failed exchange.
func StatusRowPainter(col int) table.RowPainter {
	return func(row table.Row) text.Colors {
		if col >= len(row) {
			return nil
		}
		status, ok := row[col].(int)
		if !ok {
			return nil
		}
		switch {
		case status == 0 || status >= 500:
			return text.Colors{text.FgRed}
		case status >= 400:
			return text.Colors{text.FgYellow}
		case status >= 300:
			return text.Colors{text.FgCyan}
		default:
			return nil
		}
	}
}

// Summary prints a count line below a table.
func Summary(w io.Writer, n int, singular, plural string) {
	word := plural
	if n == 1 {
		word = singular
	}
	_, _ = fmt.Fprintf(w, "\n%s\n", text.Italic.Sprintf("%d %s", n, word))
}

// NoResults prints msg dimmed.
func NoResults(w io.Writer, msg string) {
	_, _ = fmt.Fprintln(w, text.Faint.Sprint(msg))
}

// HintCommand prints a follow-up command suggestion.
func HintCommand(w io.Writer, label, command string) {
	_, _ = fmt.Fprintf(w, "%s: %s\n", label, text.FgCyan.Sprint(command))
}

func Bold(s string) string    { return text.Bold.Sprint(s) }
func Error(s string) string   { return text.FgRed.Sprint(s) }
func Success(s string) string { return text.FgGreen.Sprint(s) }
