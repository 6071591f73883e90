package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// statusKind selects the tag and colour of a status line.
type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusError
)

const ansiReset = "\x1b[0m"

var statusStyles = [...]struct {
	tag   string
	color string
}{
	statusInfo:  {"INFO", "\x1b[34m"},
	statusOK:    {"OK", "\x1b[32m"},
	statusError: {"ERROR", "\x1b[31m"},
}

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

// statusLine renders "  <label>:   [TAG] detail", coloured as a whole.
func statusLine(label string, kind statusKind, detail string, color bool) string {
	style := statusStyles[kind]
	var b strings.Builder
	fmt.Fprintf(&b, "%s%-*s [%s]", statusIndent, statusLabelWidth, label+":", style.tag)
	if detail != "" {
		b.WriteString(" " + detail)
	}
	if !color {
		return b.String()
	}
	return style.color + b.String() + ansiReset
}

// sectionHeader returns a title line and an underline of the same width.
func sectionHeader(title string, color bool) []string {
	title = "== " + strings.TrimSpace(title) + " =="
	lines := []string{title, strings.Repeat("-", len(title))}
	if color {
		for i := range lines {
			lines[i] = statusStyles[statusInfo].color + lines[i] + ansiReset
		}
	}
	return lines
}

// colorEnabled reports whether w is a terminal.
func colorEnabled(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
