package statement

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"
)

func exportFixture(t *testing.T) *Table {
	t.Helper()
	table, err := ParseTable([]byte(`[
		{"date":"2023-09-30","symbol":"AAPL","totalAssets":352583000000},
		{"date":"2022-09-24","symbol":"AAPL","totalAssets":352755000000,"totalLiabilities":302083000000}
	]`))
	if err != nil {
		t.Fatal(err)
	}
	return table
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, exportFixture(t)); err != nil {
		t.Fatal(err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{
		{"date", "symbol", "totalAssets", "totalLiabilities"},
		{"2023-09-30", "AAPL", "352583000000", ""},
		{"2022-09-24", "AAPL", "352755000000", "302083000000"},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("csv (-want +got):\n%s", diff)
	}
}

func TestWriteCSVEmptyTable(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, NewTable()); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(buf.String()); got != "" {
		t.Errorf("expected blank header only, got %q", got)
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, exportFixture(t), "AAPL Balance Sheet"); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if got := f.GetSheetName(0); got != "AAPL Balance Sheet" {
		t.Errorf("sheet: %q", got)
	}
	rows, err := f.GetRows("AAPL Balance Sheet", excelize.Options{RawCellValue: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows: got %d, want 3", len(rows))
	}
	if diff := cmp.Diff([]string{"date", "symbol", "totalAssets", "totalLiabilities"}, rows[0]); diff != "" {
		t.Errorf("header (-want +got):\n%s", diff)
	}
	if got := rows[2][3]; got != "302083000000" {
		t.Errorf("totalLiabilities: %q", got)
	}
}

func TestParseExportFormat(t *testing.T) {
	for in, want := range map[string]ExportFormat{
		"csv":             ExportCSV,
		"XLSX":            ExportXLSX,
		"aapl-income.csv": ExportCSV,
		"out/report.xlsx": ExportXLSX,
	} {
		got, err := ParseExportFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseExportFormat(%q) = %q, %v", in, got, err)
		}
	}
	for _, bad := range []string{"", "pdf", "file.json"} {
		if _, err := ParseExportFormat(bad); err == nil {
			t.Errorf("ParseExportFormat(%q): expected error", bad)
		}
	}
}

func TestSheetName(t *testing.T) {
	if got := sheetName(""); got != "Statement" {
		t.Errorf("empty: %q", got)
	}
	if got := sheetName("a/b:c"); got != "abc" {
		t.Errorf("forbidden chars: %q", got)
	}
	if got := sheetName(strings.Repeat("x", 40)); len(got) != 31 {
		t.Errorf("length: %d", len(got))
	}
}
