package statement

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		in   string
		want Type
	}{
		{"Income Statement", Income},
		{"income statement", Income},
		{"income", Income},
		{"IS", Income},
		{"Balance Sheet", BalanceSheet},
		{"balance", BalanceSheet},
		{"balance_sheet", BalanceSheet},
		{"Cash Flow", CashFlow},
		{"cash-flow", CashFlow},
		{"cashflow", CashFlow},
		{"  CF  ", CashFlow},
	}
	for _, tt := range tests {
		got, err := ParseType(tt.in)
		if err != nil {
			t.Errorf("ParseType(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseType(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "equity", "income-sheet"} {
		if _, err := ParseType(bad); !errors.Is(err, ErrUnknownType) {
			t.Errorf("ParseType(%q): expected ErrUnknownType, got %v", bad, err)
		}
	}
}

func TestKindsRegistry(t *testing.T) {
	if len(Kinds) != 3 {
		t.Fatalf("expected 3 kinds, got %d", len(Kinds))
	}
	endpoints := map[string]bool{}
	for _, k := range Kinds {
		if !strings.Contains(k.Endpoint, "%s") {
			t.Errorf("%s: endpoint %q has no ticker placeholder", k.Name, k.Endpoint)
		}
		if endpoints[k.Endpoint] {
			t.Errorf("duplicate endpoint %q", k.Endpoint)
		}
		endpoints[k.Endpoint] = true
		if len(k.Digest) == 0 {
			t.Errorf("%s: empty digest", k.Name)
		}
	}

	bs := MustKind(BalanceSheet)
	keys := make([]string, len(bs.Digest))
	for i, f := range bs.Digest {
		keys[i] = f.Key
	}
	if got := strings.Join(keys, ","); got != "totalAssets,totalLiabilities,totalStockholdersEquity" {
		t.Errorf("balance sheet digest keys: %s", got)
	}
}

func TestTypeStringAndLower(t *testing.T) {
	if CashFlow.String() != "Cash Flow" || CashFlow.Lower() != "cash flow" {
		t.Errorf("CashFlow: %q / %q", CashFlow.String(), CashFlow.Lower())
	}
	if Type(0).Valid() || Type(9).Valid() {
		t.Error("unregistered types should be invalid")
	}
	if got := Type(9).String(); got != "Type(9)" {
		t.Errorf("String of unknown: %q", got)
	}
}

func TestMustKindPanicsOnUnknown(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	MustKind(Type(42))
}

func TestTypeJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		T Type `json:"t"`
	}{BalanceSheet})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"t":"Balance Sheet"}` {
		t.Errorf("marshal: %s", b)
	}

	var v struct {
		T Type `json:"t"`
	}
	if err := json.Unmarshal([]byte(`{"t":"cash-flow"}`), &v); err != nil {
		t.Fatal(err)
	}
	if v.T != CashFlow {
		t.Errorf("unmarshal: got %v", v.T)
	}
	if err := json.Unmarshal([]byte(`{"t":"bogus"}`), &v); err == nil {
		t.Error("expected error for unknown type")
	}
	if b, err := json.Marshal(struct{ T Type }{Type(0)}); err != nil || string(b) != `{"T":""}` {
		t.Errorf("zero Type: %s, %v", b, err)
	}
}
