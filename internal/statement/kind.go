// Package statement fetches company financial statements from Financial
// Modeling Prep and exposes them as schema-free tables.
//
// Every statement type is described once, in the Kinds registry: the REST
// endpoint it is served from and the digest fields the summary step surfaces.
// Adding a statement type means adding one Kind.
//
// Docs: https://financialmodelingprep.com/developer/docs
package statement

import (
	"fmt"
	"strings"
)

// Type identifies a financial statement. The zero value is invalid.
type Type int

const (
	Income Type = iota + 1
	BalanceSheet
	CashFlow
)

// Field is one labeled line item of a digest.
type Field struct {
	Label string
	Key   string
}

// Kind describes how one statement type is fetched and digested.
type Kind struct {
	Type     Type
	Name     string   // display name, e.g. "Income Statement"
	Slug     string   // short CLI / URL token
	Endpoint string   // path under the FMP base URL; %s is the ticker
	Aliases  []string // extra accepted spellings for ParseType
	Digest   []Field
}

// DateField is the row key holding the period end date.
const DateField = "date"

// Kinds is the registry of supported statement types, in display order.
var Kinds = []Kind{
	{
		Type:     Income,
		Name:     "Income Statement",
		Slug:     "income",
		Endpoint: "/income-statement/%s",
		Aliases:  []string{"income-statement", "is"},
		Digest: []Field{
			{"Revenue", "revenue"},
			{"Gross Profit", "grossProfit"},
			{"Operating Income", "operatingIncome"},
			{"Net Income", "netIncome"},
		},
	},
	{
		Type:     BalanceSheet,
		Name:     "Balance Sheet",
		Slug:     "balance-sheet",
		Endpoint: "/balance-sheet-statement/%s",
		Aliases:  []string{"balance", "balancesheet", "balance-sheet-statement", "bs"},
		Digest: []Field{
			{"Total Assets", "totalAssets"},
			{"Total Liabilities", "totalLiabilities"},
			{"Total Equity", "totalStockholdersEquity"},
		},
	},
	{
		Type:     CashFlow,
		Name:     "Cash Flow",
		Slug:     "cash-flow",
		Endpoint: "/cash-flow-statement/%s",
		Aliases:  []string{"cashflow", "cash-flow-statement", "cf"},
		Digest: []Field{
			{"Operating Cash Flow", "operatingCashFlow"},
			{"Investing Cash Flow", "cashflowFromInvestment"},
			{"Financing Cash Flow", "cashflowFromFinancing"},
			{"Net Cash Flow", "netCashFlow"},
		},
	},
}

// KindOf returns the registry entry for t.
func KindOf(t Type) (Kind, bool) {
	for _, k := range Kinds {
		if k.Type == t {
			return k, true
		}
	}
	return Kind{}, false
}

// MustKind returns the registry entry for t and panics if there is none.
// An unregistered Type has no endpoint; reaching here with one is a
// programming error, not a runtime condition.
func MustKind(t Type) Kind {
	k, ok := KindOf(t)
	if !ok {
		panic(fmt.Sprintf("statement: unregistered type %d", int(t)))
	}
	return k
}

// ParseType accepts a display name ("Balance Sheet"), a slug ("cash-flow")
// or an alias, case-insensitively.
func ParseType(s string) (Type, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, "_", "-")
	for _, k := range Kinds {
		if norm == strings.ToLower(k.Name) || norm == k.Slug {
			return k.Type, nil
		}
		for _, a := range k.Aliases {
			if norm == a {
				return k.Type, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// String returns the display name.
func (t Type) String() string {
	if k, ok := KindOf(t); ok {
		return k.Name
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Lower returns the display name lower-cased, as used in prose
// ("cash flow", "income statement").
func (t Type) Lower() string {
	return strings.ToLower(t.String())
}

// Valid reports whether t is registered.
func (t Type) Valid() bool {
	_, ok := KindOf(t)
	return ok
}

// MarshalText encodes the display name. An unset Type encodes as "" so a
// rejected request can still be echoed back.
func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return []byte{}, nil
	}
	return []byte(t.String()), nil
}

// UnmarshalText accepts anything ParseType accepts.
func (t *Type) UnmarshalText(b []byte) error {
	v, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
