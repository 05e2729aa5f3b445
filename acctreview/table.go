package acctreview

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

const minColumnWidth = 3

// Table is the normalized tabular result shared by every normalizer and
// renderer: an ordered header and rows positionally aligned to it.
type Table struct {
	Header []string
	Rows   [][]any
}

// NewTable builds a Table, checking that header names are unique and every
// row is as wide as the header.
func NewTable(header []string, rows [][]any) (*Table, error) {
	seen := make(map[string]bool, len(header))
	for _, h := range header {
		if seen[h] {
			return nil, fmt.Errorf("duplicate column %q", h)
		}
		seen[h] = true
	}
	for i, row := range rows {
		if len(row) != len(header) {
			return nil, fmt.Errorf("row %d has %d cells, header has %d", i, len(row), len(header))
		}
	}
	if rows == nil {
		rows = make([][]any, 0)
	}
	return &Table{Header: header, Rows: rows}, nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool {
	return len(t.Rows) == 0
}

// Column returns the index of the named column, or -1.
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// CSV renders the table with the header as the first record.
func (t *Table) CSV() (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.Write(t.Header); err != nil {
		return "", err
	}
	record := make([]string, len(t.Header))
	for _, row := range t.Rows {
		for i, v := range row {
			record[i] = cellString(v)
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	return sb.String(), w.Error()
}

// JSON renders the table as {"header": [...], "data": [[...], ...]}.
func (t *Table) JSON() ([]byte, error) {
	return json.Marshal(struct {
		Header []string `json:"header"`
		Data   [][]any  `json:"data"`
	}{Header: t.Header, Data: t.Rows})
}

// Text renders a fixed-width table for terminal display. Columns are narrowed,
// widest first, until a line fits in lineWidth; lineWidth <= 0 disables the limit.
func (t *Table) Text(lineWidth int) string {
	cells := make([][]string, len(t.Rows))
	widths := make([]int, len(t.Header))
	for i, h := range t.Header {
		widths[i] = runewidth.StringWidth(h)
	}
	for r, row := range t.Rows {
		cells[r] = make([]string, len(row))
		for i, v := range row {
			s := strings.ReplaceAll(cellString(v), "\n", " ")
			cells[r][i] = s
			if w := runewidth.StringWidth(s); w > widths[i] {
				widths[i] = w
			}
		}
	}

	if lineWidth > 0 {
		fitWidths(widths, lineWidth)
	}

	var sb strings.Builder
	writeTextRow(&sb, t.Header, widths)
	rule := make([]string, len(widths))
	for i, w := range widths {
		rule[i] = strings.Repeat("-", w)
	}
	sb.WriteString(strings.Join(rule, "-+-"))
	sb.WriteString("\n")
	for _, row := range cells {
		writeTextRow(&sb, row, widths)
	}
	return sb.String()
}

func fitWidths(widths []int, lineWidth int) {
	total := func() int {
		sum := 3 * (len(widths) - 1)
		for _, w := range widths {
			sum += w
		}
		return sum
	}
	for total() > lineWidth {
		widest := 0
		for i, w := range widths {
			if w > widths[widest] {
				widest = i
			}
		}
		if widths[widest] <= minColumnWidth {
			return
		}
		widths[widest]--
	}
}

func writeTextRow(sb *strings.Builder, row []string, widths []int) {
	for i, s := range row {
		if i > 0 {
			sb.WriteString(" | ")
		}
		if runewidth.StringWidth(s) > widths[i] {
			s = runewidth.Truncate(s, widths[i], "~")
		}
		if i == len(row)-1 {
			sb.WriteString(s)
		} else {
			sb.WriteString(runewidth.FillRight(s, widths[i]))
		}
	}
	sb.WriteString("\n")
}
