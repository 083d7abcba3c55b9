package statement

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ExportFormat selects the download format for a table.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
)

// ParseExportFormat accepts "csv"/"xlsx" or a file name ending in either.
func ParseExportFormat(s string) (ExportFormat, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if ext := filepath.Ext(v); ext != "" {
		v = strings.TrimPrefix(ext, ".")
	}
	switch ExportFormat(v) {
	case ExportCSV, ExportXLSX:
		return ExportFormat(v), nil
	}
	return "", fmt.Errorf("unsupported export format %q (want csv or xlsx)", s)
}

// ContentType returns the MIME type for the format.
func (f ExportFormat) ContentType() string {
	if f == ExportXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Export writes t in the given format. title names the XLSX sheet.
func Export(w io.Writer, t *Table, format ExportFormat, title string) error {
	switch format {
	case ExportCSV:
		return WriteCSV(w, t)
	case ExportXLSX:
		return WriteXLSX(w, t, title)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

// WriteCSV writes a header of t.Columns and one record per row. Absent
// cells are left empty.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, row := range t.Rows {
		rec := make([]string, len(t.Columns))
		for j, col := range t.Columns {
			if v, ok := row.Lookup(col); ok {
				rec[j] = FormatValue(v)
			}
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes t to a single-sheet workbook. Numeric cells are stored as
// numbers so spreadsheet formulas work on them.
func WriteXLSX(w io.Writer, t *Table, title string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(title)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]interface{}, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, row := range t.Rows {
		vals := make([]interface{}, len(t.Columns))
		for j, col := range t.Columns {
			v, ok := row.Lookup(col)
			if !ok {
				continue
			}
			vals[j] = cellValue(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func cellValue(v any) interface{} {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if fl, err := x.Float64(); err == nil {
			return fl
		}
		return x.String()
	case string, bool:
		return x
	default:
		return FormatValue(x)
	}
}

// sheetName trims title to Excel's 31-character limit and strips the
// characters Excel forbids in sheet names.
func sheetName(title string) string {
	title = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return -1
		}
		return r
	}, strings.TrimSpace(title))
	if title == "" {
		return "Statement"
	}
	if r := []rune(title); len(r) > 31 {
		title = string(r[:31])
	}
	return title
}
