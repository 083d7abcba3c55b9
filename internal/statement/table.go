package statement

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// NotAvailable is rendered for any field a row does not carry.
const NotAvailable = "N/A"

// Payload errors.
var (
	ErrNotArray     = errors.New("statement: payload is not a JSON array")
	ErrEmptyPayload = errors.New("statement: payload is an empty array")
	ErrNotObject    = errors.New("statement: array element is not a JSON object")
)

// Row is one reporting period: field name to value. Values are string,
// json.Number, bool, or nested JSON decoded into any. JSON null is dropped
// at decode time, so a null field reads as absent.
type Row map[string]any

// Lookup returns the value for key and whether the row carries it.
func (r Row) Lookup(key string) (any, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Text renders the value for key, or NotAvailable when it is absent.
func (r Row) Text(key string) string {
	v, ok := r.Lookup(key)
	if !ok {
		return NotAvailable
	}
	return FormatValue(v)
}

// FormatValue renders a decoded JSON value the way upstream wrote it.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return NotAvailable
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

// Table is an ordered sequence of rows plus the ordered union of their
// column names. Rows keep upstream order; columns keep first-seen order.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// NewTable returns an empty, non-nil table.
func NewTable() *Table {
	return &Table{Columns: []string{}, Rows: []Row{}}
}

// Len returns the number of rows. A nil table has none.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool { return t.Len() == 0 }

// Append adds a row. keys lists the row's field names in payload order,
// including fields whose value was null, so they still become columns.
func (t *Table) Append(row Row, keys []string) {
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		seen[c] = true
	}
	for _, k := range keys {
		if !seen[k] {
			t.Columns = append(t.Columns, k)
			seen[k] = true
		}
	}
	t.Rows = append(t.Rows, row)
}

// Cell renders column col of row i, or NotAvailable.
func (t *Table) Cell(i int, col string) string {
	if i < 0 || i >= t.Len() {
		return NotAvailable
	}
	return t.Rows[i].Text(col)
}

// ParseTable decodes a JSON array of objects into a table, keeping key
// order from the payload. An empty array yields an empty table and
// ErrEmptyPayload.
func ParseTable(data []byte) (*Table, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return NewTable(), fmt.Errorf("%w: %v", ErrNotArray, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return NewTable(), ErrNotArray
	}

	t := NewTable()
	for i := 0; dec.More(); i++ {
		row, keys, err := decodeObject(dec)
		if err != nil {
			return NewTable(), fmt.Errorf("element %d: %w", i, err)
		}
		t.Append(row, keys)
	}
	if _, err := dec.Token(); err != nil {
		return NewTable(), fmt.Errorf("%w: %v", ErrNotArray, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return NewTable(), fmt.Errorf("%w: trailing data after array", ErrNotArray)
	}
	if t.Empty() {
		return t, ErrEmptyPayload
	}
	return t, nil
}

// decodeObject reads one {...} from dec, returning its fields and their
// order of appearance.
func decodeObject(dec *json.Decoder) (Row, []string, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, ErrNotObject
	}

	row := Row{}
	var keys []string
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := kt.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected token %v", kt)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, nil, fmt.Errorf("field %q: %w", key, err)
		}
		keys = append(keys, key)
		if v != nil {
			row[key] = v
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return row, keys, nil
}
