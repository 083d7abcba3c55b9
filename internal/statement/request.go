package statement

import (
	"errors"
	"fmt"
	"strings"

	"github.com/seenimoa/aifinanalyst/pkg/utils"
)

// Limit bounds and the form default.
const (
	MinLimit     = 1
	MaxLimit     = 10
	DefaultLimit = 4
)

// Validation errors.
var (
	ErrEmptyTicker   = errors.New("statement: ticker is required")
	ErrUnknownType   = errors.New("statement: unknown statement type")
	ErrUnknownPeriod = errors.New("statement: unknown period")
	ErrLimitRange    = fmt.Errorf("statement: limit must be between %d and %d", MinLimit, MaxLimit)
)

// Period is the reporting granularity. The zero value is invalid.
type Period int

const (
	Annual Period = iota + 1
	Quarterly
)

// ParsePeriod accepts "annual"/"quarterly" and common short forms.
func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "annual", "yearly", "year", "fy", "a":
		return Annual, nil
	case "quarterly", "quarter", "q":
		return Quarterly, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPeriod, s)
}

// String returns the user-facing name ("annual" / "quarterly").
func (p Period) String() string {
	switch p {
	case Annual:
		return "annual"
	case Quarterly:
		return "quarterly"
	}
	return fmt.Sprintf("Period(%d)", int(p))
}

// Token returns the value FMP expects in the period query parameter.
func (p Period) Token() string {
	if p == Quarterly {
		return "quarter"
	}
	return "annual"
}

// Valid reports whether p is a known period.
func (p Period) Valid() bool { return p == Annual || p == Quarterly }

// MarshalText encodes the user-facing name, or "" when unset.
func (p Period) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return []byte{}, nil
	}
	return []byte(p.String()), nil
}

// UnmarshalText accepts anything ParsePeriod accepts.
func (p *Period) UnmarshalText(b []byte) error {
	v, err := ParsePeriod(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Request is one user query: which statement, for whom, how many periods.
type Request struct {
	Ticker string `json:"ticker"`
	Type   Type   `json:"type"`
	Period Period `json:"period"`
	Limit  int    `json:"limit"`
}

// NewRequest builds a Request with the ticker normalized to upper case.
func NewRequest(ticker string, t Type, p Period, limit int) Request {
	return Request{
		Ticker: utils.NormalizeTicker(ticker),
		Type:   t,
		Period: p,
		Limit:  limit,
	}
}

// Normalized returns a copy with the ticker normalized.
func (r Request) Normalized() Request {
	r.Ticker = utils.NormalizeTicker(r.Ticker)
	return r
}

// Validate checks the request the way the input form does. Fetch does not
// call it; validating is the caller's job.
func (r Request) Validate() error {
	var errs []error
	if utils.NormalizeTicker(r.Ticker) == "" {
		errs = append(errs, ErrEmptyTicker)
	}
	if !r.Type.Valid() {
		errs = append(errs, fmt.Errorf("%w: %d", ErrUnknownType, int(r.Type)))
	}
	if !r.Period.Valid() {
		errs = append(errs, fmt.Errorf("%w: %d", ErrUnknownPeriod, int(r.Period)))
	}
	if r.Limit < MinLimit || r.Limit > MaxLimit {
		errs = append(errs, fmt.Errorf("%w (got %d)", ErrLimitRange, r.Limit))
	}
	return errors.Join(errs...)
}

func (r Request) String() string {
	return fmt.Sprintf("%s %s (%s, %d)", r.Ticker, r.Type, r.Period, r.Limit)
}
