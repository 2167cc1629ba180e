// Package diag formats compiler diagnostics with source context, grounded
// on the teacher's internal/errors package: a file:line:col header, the
// offending source line, and a caret pointing at the column.
package diag

import (
	"fmt"
	"strings"

	"github.com/loxiemachine/loxie/internal/token"
)

// Diagnostic is a single-line compiler error with enough context to render
// a caret under the offending lexeme (spec §4.1 "single-line diagnostic
// with source line/column and the offending lexeme").
type Diagnostic struct {
	Pos     token.Position
	File    string
	Message string
	Lexeme  string
	source  string
}

// New creates a Diagnostic. source is the full text of File, used only for
// rendering the caret line.
func New(pos token.Position, file, source, lexeme, message string) *Diagnostic {
	return &Diagnostic{Pos: pos, File: file, Message: message, Lexeme: lexeme, source: source}
}

func (d *Diagnostic) Error() string { return d.Format(false) }

// Format renders the diagnostic with an optional ANSI-colored caret.
func (d *Diagnostic) Format(color bool) string {
	var sb strings.Builder
	if d.File != "" {
		fmt.Fprintf(&sb, "%s:%d:%d: %s", d.File, d.Pos.Line, d.Pos.Column, d.Message)
	} else {
		fmt.Fprintf(&sb, "%d:%d: %s", d.Pos.Line, d.Pos.Column, d.Message)
	}

	line := sourceLine(d.source, d.Pos.Line)
	if line == "" {
		return sb.String()
	}
	sb.WriteString("\n")
	prefix := fmt.Sprintf("%4d | ", d.Pos.Line)
	sb.WriteString(prefix)
	sb.WriteString(line)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat(" ", len(prefix)+max0(d.Pos.Column-1)))
	if color {
		sb.WriteString("\033[1;31m")
	}
	sb.WriteString("^")
	if color {
		sb.WriteString("\033[0m")
	}
	return sb.String()
}

func max0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func sourceLine(source string, lineNum int) string {
	if source == "" || lineNum < 1 {
		return ""
	}
	lines := strings.Split(source, "\n")
	if lineNum > len(lines) {
		return ""
	}
	return lines[lineNum-1]
}

// FormatAll renders every diagnostic, one per paragraph, matching the CLI's
// stderr output for a failed compile stage (spec §7).
func FormatAll(diags []*Diagnostic, color bool) string {
	var sb strings.Builder
	for _, d := range diags {
		sb.WriteString(d.Format(color))
		sb.WriteString("\n")
	}
	return sb.String()
}
