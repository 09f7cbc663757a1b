// Package errors formats any ir.CoreError against its originating source
// text as a source-context snippet with a caret, the way compiler
// diagnostics are rendered for a terminal.
package errors

import (
	"fmt"
	"strings"

	"github.com/cwbudde/exprforge/internal/ir"
)

// Format renders err as a multi-line diagnostic: the error message, the
// offending source line (when locatable), and a caret under the column.
func Format(err ir.CoreError) string {
	var b strings.Builder
	b.WriteString(err.Error())

	line, column, ok := locate(err)
	if !ok {
		return b.String()
	}
	source := err.Source()
	lines := strings.Split(source, "\n")
	if line < 1 || line > len(lines) {
		return b.String()
	}

	b.WriteByte('\n')
	b.WriteString(lines[line-1])
	b.WriteByte('\n')
	if column > 0 {
		b.WriteString(strings.Repeat(" ", column-1))
	}
	b.WriteByte('^')
	return b.String()
}

// locate extracts a (line, column) position from err, when the concrete
// error kind carries one (currently only ParseError does — the others are
// positionless semantic or runtime failures).
func locate(err ir.CoreError) (line, column int, ok bool) {
	if pe, isParse := err.(*ir.ParseError); isParse {
		return pe.Line, pe.Column, true
	}
	return 0, 0, false
}

// FormatAll renders a batch of errors (e.g. every lexer/parser error
// accumulated during one parse) as newline-separated blocks.
func FormatAll(errs []ir.CoreError) string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = Format(e)
	}
	return strings.Join(parts, "\n\n")
}

// Summary renders a short one-line form, used in telemetry where a full
// caret-annotated snippet would be noise.
func Summary(err ir.CoreError) string {
	return fmt.Sprintf("[%s] %s", err.Source(), err.Error())
}
