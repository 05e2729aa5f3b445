// Package render writes collation results as xlsx workbooks and markdown
// summaries.
package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/scottbrown/account-review/acctreview"
)

const (
	maxSheetName     = 31
	defaultColWidth  = 18
	moneyNumberStyle = 4 // #,##0.00
)

var sheetNameReplacer = strings.NewReplacer(":", "-", `\`, "-", "/", "-", "?", "", "*", "", "[", "(", "]", ")")

// Workbook writes one xlsx file per account, one sheet per report.
type Workbook struct {
	dir string
}

// NewWorkbook creates a Workbook writing into dir.
func NewWorkbook(dir string) *Workbook {
	return &Workbook{dir: dir}
}

// Filename returns the file name used for an account and report month.
func Filename(account string, date time.Time) string {
	return fmt.Sprintf("%s-%s-review.xlsx", account, date.Format("2006-01"))
}

// Write saves sheets as a workbook and returns its path.
func (wb *Workbook) Write(account string, date time.Time, sheets []acctreview.Sheet) (string, error) {
	if len(sheets) == 0 {
		return "", fmt.Errorf("no sheets to write for %s", account)
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
	if err != nil {
		return "", err
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: moneyNumberStyle})
	if err != nil {
		return "", err
	}

	used := make(map[string]bool)
	for i, s := range sheets {
		name := sheetName(s.Name, used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return "", err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return "", err
		}

		if err := writeSheet(f, name, s, headerStyle, moneyStyle); err != nil {
			return "", fmt.Errorf("sheet %s: %w", name, err)
		}
		if s.Chart != nil {
			if err := addChart(f, name, s.Table, s.Chart); err != nil {
				return "", fmt.Errorf("sheet %s chart: %w", name, err)
			}
		}
	}
	f.SetActiveSheet(0)

	if err := os.MkdirAll(wb.dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(wb.dir, Filename(account, date))
	if err := f.SaveAs(path); err != nil {
		return "", err
	}
	return path, nil
}

func writeSheet(f *excelize.File, sheet string, s acctreview.Sheet, headerStyle, moneyStyle int) error {
	t := s.Table
	money := make(map[int]bool, len(s.MoneyFields))
	for _, name := range s.MoneyFields {
		if i := t.Column(name); i >= 0 {
			money[i] = true
		}
	}

	for i, h := range t.Header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return err
		}
	}

	for r, row := range t.Rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if m, ok := v.(acctreview.Money); ok {
				if err := f.SetCellFloat(sheet, cell, m.Float64(), -1, 64); err != nil {
					return err
				}
				if money[c] {
					if err := f.SetCellStyle(sheet, cell, cell, moneyStyle); err != nil {
						return err
					}
				}
				continue
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	if len(t.Header) > 0 {
		last, err := excelize.ColumnNumberToName(len(t.Header))
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, "A", last, defaultColWidth); err != nil {
			return err
		}
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// addChart places a column chart right of the table. Charts naming a column
// the table lacks are skipped.
func addChart(f *excelize.File, sheet string, t *acctreview.Table, chart *acctreview.Chart) error {
	ci, vi := t.Column(chart.Category), t.Column(chart.Value)
	if ci < 0 || vi < 0 || t.Empty() {
		return nil
	}
	catCol, err := excelize.ColumnNumberToName(ci + 1)
	if err != nil {
		return err
	}
	valCol, err := excelize.ColumnNumberToName(vi + 1)
	if err != nil {
		return err
	}
	lastRow := t.Len() + 1
	anchor, err := excelize.CoordinatesToCellName(len(t.Header)+2, 2)
	if err != nil {
		return err
	}
	ref := func(col string) string {
		return fmt.Sprintf("'%s'!$%s$2:$%s$%d", sheet, col, col, lastRow)
	}
	return f.AddChart(sheet, anchor, &excelize.Chart{
		Type: excelize.Col,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("'%s'!$%s$1", sheet, valCol),
			Categories: ref(catCol),
			Values:     ref(valCol),
		}},
		Title: []excelize.RichTextRun{{Text: chart.Title}},
	})
}

func sheetName(name string, used map[string]bool) string {
	base := []rune(sheetNameReplacer.Replace(name))
	if len(base) == 0 {
		base = []rune("Sheet")
	}
	if len(base) > maxSheetName {
		base = base[:maxSheetName]
	}
	candidate := string(base)
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf(" %d", n)
		trimmed := base
		if len(trimmed)+len(suffix) > maxSheetName {
			trimmed = trimmed[:maxSheetName-len(suffix)]
		}
		candidate = string(trimmed) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}
