package statement

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseTableKeepsOrder(t *testing.T) {
	data := []byte(`[
		{"date":"2023-12-31","revenue":100,"netIncome":10},
		{"date":"2022-12-31","grossProfit":40.5,"revenue":90}
	]`)
	table, err := ParseTable(data)
	if err != nil {
		t.Fatal(err)
	}

	wantCols := []string{"date", "revenue", "netIncome", "grossProfit"}
	if diff := cmp.Diff(wantCols, table.Columns); diff != "" {
		t.Errorf("columns (-want +got):\n%s", diff)
	}
	if table.Len() != 2 {
		t.Fatalf("rows: %d", table.Len())
	}
	if got := table.Cell(0, "date"); got != "2023-12-31" {
		t.Errorf("row order: first date %q", got)
	}
	if got := table.Cell(1, "grossProfit"); got != "40.5" {
		t.Errorf("grossProfit: %q", got)
	}
	if got := table.Cell(1, "netIncome"); got != NotAvailable {
		t.Errorf("missing field: got %q, want N/A", got)
	}
	if got := table.Cell(5, "date"); got != NotAvailable {
		t.Errorf("out of range: got %q", got)
	}
}

func TestParseTableNumbersVerbatim(t *testing.T) {
	table, err := ParseTable([]byte(`[{"revenue":383285000000,"eps":6.16,"ratio":1e-3}]`))
	if err != nil {
		t.Fatal(err)
	}
	for col, want := range map[string]string{
		"revenue": "383285000000",
		"eps":     "6.16",
		"ratio":   "1e-3",
	} {
		if got := table.Cell(0, col); got != want {
			t.Errorf("%s: got %q, want %q", col, got, want)
		}
	}
}

func TestParseTableNullIsAbsent(t *testing.T) {
	table, err := ParseTable([]byte(`[{"date":"2023-09-30","totalLiabilities":null}]`))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"date", "totalLiabilities"}, table.Columns); diff != "" {
		t.Errorf("columns (-want +got):\n%s", diff)
	}
	if _, ok := table.Rows[0].Lookup("totalLiabilities"); ok {
		t.Error("null should read as absent")
	}
	if got := table.Cell(0, "totalLiabilities"); got != NotAvailable {
		t.Errorf("got %q", got)
	}
}

func TestParseTableErrors(t *testing.T) {
	tests := []struct {
		body string
		want error
	}{
		{`[]`, ErrEmptyPayload},
		{`{}`, ErrNotArray},
		{`null`, ErrNotArray},
		{``, ErrNotArray},
		{`[1]`, ErrNotObject},
		{`[{"a":1}, "x"]`, ErrNotObject},
		{`[{"date":"2024"}] {"x":1}`, ErrNotArray},
		{`[{"date":"2024"}]]`, ErrNotArray},
	}
	for _, tt := range tests {
		table, err := ParseTable([]byte(tt.body))
		if !errors.Is(err, tt.want) {
			t.Errorf("ParseTable(%q): got %v, want %v", tt.body, err, tt.want)
		}
		if table == nil || !table.Empty() {
			t.Errorf("ParseTable(%q): expected empty non-nil table", tt.body)
		}
	}

	if table, err := ParseTable([]byte("[{\"date\":\"2024\"}]\n  ")); err != nil || table.Len() != 1 {
		t.Errorf("trailing whitespace should be accepted: %v", err)
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, NotAvailable},
		{"USD", "USD"},
		{json.Number("12.50"), "12.50"},
		{true, "true"},
		{float64(2.5), "2.5"},
		{int64(-7), "-7"},
		{map[string]any{"k": "v"}, `{"k":"v"}`},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.in); got != tt.want {
			t.Errorf("FormatValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNilTableIsEmpty(t *testing.T) {
	var table *Table
	if !table.Empty() || table.Len() != 0 {
		t.Error("nil table should be empty")
	}
	if got := NewTable(); got.Columns == nil || got.Rows == nil {
		t.Error("NewTable should not have nil slices")
	}
}
