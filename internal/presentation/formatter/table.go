package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/Codealike/Codealike-plugins-core/internal/util"
)

const minColumnWidth = 4

type TableFormatter struct {
	w        io.Writer
	maxWidth int
	color    bool
}

// NewTableFormatter renders box tables no wider than maxWidth cells
// (unbounded when maxWidth is zero).
func NewTableFormatter(w io.Writer, maxWidth int) *TableFormatter {
	return &TableFormatter{w: w, maxWidth: maxWidth, color: maxWidth > 0}
}

func (f *TableFormatter) Format(table Table, _ interface{}) error {
	widths := f.calculateColumnWidths(table)

	if table.Title != "" {
		title := table.Title
		if f.color {
			title = util.FormatHeaderTitle(title)
		}
		if _, err := fmt.Fprintln(f.w, title); err != nil {
			return err
		}
	}

	var b strings.Builder
	f.writeBorder(&b, widths, "top")
	f.writeRow(&b, table.Headers, widths, nil)
	f.writeBorder(&b, widths, "middle")
	for _, row := range table.Rows {
		f.writeRow(&b, row, widths, table.Align)
	}
	if len(table.Footer) > 0 {
		f.writeBorder(&b, widths, "middle")
		f.writeRow(&b, table.Footer, widths, table.Align)
	}
	f.writeBorder(&b, widths, "bottom")

	_, err := io.WriteString(f.w, b.String())
	return err
}

// calculateColumnWidths sizes each column to its widest cell, then shrinks
// the widest columns until the table fits maxWidth.
func (f *TableFormatter) calculateColumnWidths(table Table) []int {
	widths := make([]int, len(table.Headers))
	measure := func(row []string) {
		for i, cell := range row {
			if i < len(widths) {
				if w := util.GetDisplayWidth(cell); w > widths[i] {
					widths[i] = w
				}
			}
		}
	}

	measure(table.Headers)
	for _, row := range table.Rows {
		measure(row)
	}
	measure(table.Footer)

	if f.maxWidth <= 0 {
		return widths
	}

	// each column costs its width plus two padding cells and one border
	total := func() int {
		sum := 1
		for _, w := range widths {
			sum += w + 3
		}
		return sum
	}
	for total() > f.maxWidth {
		widest := 0
		for i, w := range widths {
			if w > widths[widest] {
				widest = i
			}
		}
		if widths[widest] <= minColumnWidth {
			break
		}
		widths[widest]--
	}
	return widths
}

func (f *TableFormatter) writeBorder(b *strings.Builder, widths []int, borderType string) {
	var left, middle, right string

	switch borderType {
	case "top":
		left, middle, right = "┌", "┬", "┐"
	case "middle":
		left, middle, right = "├", "┼", "┤"
	case "bottom":
		left, middle, right = "└", "┴", "┘"
	}

	b.WriteString(left)
	for i, width := range widths {
		b.WriteString(strings.Repeat("─", width+2))
		if i < len(widths)-1 {
			b.WriteString(middle)
		}
	}
	b.WriteString(right)
	b.WriteString("\n")
}

func (f *TableFormatter) writeRow(b *strings.Builder, values []string, widths []int, align []Alignment) {
	b.WriteString("│")
	for i, width := range widths {
		value := ""
		if i < len(values) {
			value = util.TruncateDisplay(values[i], width)
		}
		b.WriteString(" ")
		if i < len(align) && align[i] == AlignRight {
			b.WriteString(util.PadLeft(value, width))
		} else {
			b.WriteString(util.PadRight(value, width))
		}
		b.WriteString(" │")
	}
	b.WriteString("\n")
}
