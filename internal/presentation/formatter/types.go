package formatter

import (
	"fmt"
	"io"
	"os"

	"github.com/Codealike/Codealike-plugins-core/internal/util"
)

// Output formats
const (
	FormatAuto  = "auto"
	FormatTable = "table"
	FormatJSON  = "json"
)

// Alignment of a table column
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
)

// Table is a titled grid of pre-rendered cells
type Table struct {
	Title   string
	Headers []string
	Align   []Alignment
	Rows    [][]string
	Footer  []string
}

// Formatter renders tables, or the value they were built from
type Formatter interface {
	Format(table Table, value interface{}) error
}

// New returns the formatter for format writing to w. FormatAuto picks the
// table when w is a terminal and JSON otherwise.
func New(format string, w io.Writer) (Formatter, error) {
	switch format {
	case FormatAuto, "":
		if f, ok := w.(*os.File); ok && util.IsTerminal(f) {
			return NewTableFormatter(w, util.TerminalWidth(f)), nil
		}
		return NewJSONFormatter(w), nil
	case FormatTable:
		width := 0
		if f, ok := w.(*os.File); ok {
			width = util.TerminalWidth(f)
		}
		return NewTableFormatter(w, width), nil
	case FormatJSON:
		return NewJSONFormatter(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (expected auto, table or json)", format)
	}
}
