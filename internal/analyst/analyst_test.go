package analyst

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/seenimoa/aifinanalyst/internal/llm"
	"github.com/seenimoa/aifinanalyst/internal/statement"
	"github.com/seenimoa/aifinanalyst/internal/summary"
)

type fakeFetcher struct {
	table *statement.Table
	err   error
	calls []statement.Request
}

func (f *fakeFetcher) Fetch(ctx context.Context, req statement.Request) (*statement.Table, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return statement.NewTable(), f.err
	}
	return f.table, nil
}

type fakeSummarizer struct {
	text   string
	err    error
	tables []*statement.Table
	types  []statement.Type
}

func (s *fakeSummarizer) Generate(ctx context.Context, t *statement.Table, typ statement.Type) (*summary.Result, error) {
	s.tables = append(s.tables, t)
	s.types = append(s.types, typ)
	if s.err != nil {
		return nil, s.err
	}
	return &summary.Result{Text: s.text, Usage: llm.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}}, nil
}

func newTestAnalyst(f StatementFetcher, s Summarizer) *Analyst {
	return New(f, s, WithLogger(log.New(io.Discard, "", 0)))
}

func sampleTable(t *testing.T) *statement.Table {
	t.Helper()
	table, err := statement.ParseTable([]byte(`[{"date":"2023-12-31","revenue":100}]`))
	if err != nil {
		t.Fatal(err)
	}
	return table
}

func TestRunSuccess(t *testing.T) {
	f := &fakeFetcher{table: sampleTable(t)}
	s := &fakeSummarizer{text: "Revenue is 100."}
	a := newTestAnalyst(f, s)

	res := a.Run(context.Background(), statement.NewRequest("aapl", statement.Income, statement.Annual, 4))

	if res.Outcome != OutcomeOK || res.HasErrors() || len(res.Notices) != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Summary != "Revenue is 100." || res.Usage.TotalTokens != 15 {
		t.Errorf("summary/usage: %q %+v", res.Summary, res.Usage)
	}
	if res.Heading() != "Summary for AAPL:" {
		t.Errorf("heading: %q", res.Heading())
	}
	if _, err := uuid.Parse(res.RunID); err != nil {
		t.Errorf("run id %q: %v", res.RunID, err)
	}
	if len(f.calls) != 1 || f.calls[0].Ticker != "AAPL" {
		t.Errorf("fetch calls: %+v", f.calls)
	}
	if len(s.tables) != 1 || s.tables[0] != f.table || s.types[0] != statement.Income {
		t.Errorf("summarizer should receive the fetched table and type")
	}
}

func TestRunInvalidRequestMakesNoCalls(t *testing.T) {
	f := &fakeFetcher{table: sampleTable(t)}
	s := &fakeSummarizer{}
	a := newTestAnalyst(f, s)

	res := a.Run(context.Background(), statement.NewRequest("", statement.Income, statement.Annual, 11))

	if res.Outcome != OutcomeInvalid {
		t.Errorf("outcome: %s", res.Outcome)
	}
	if len(res.Notices) != 1 {
		t.Fatalf("expected one notice, got %+v", res.Notices)
	}
	msg := res.Notices[0].Message
	if !strings.Contains(msg, "ticker") || !strings.Contains(msg, "between 1 and 10") {
		t.Errorf("notice: %q", msg)
	}
	if len(f.calls) != 0 || len(s.tables) != 0 {
		t.Error("invalid request must not reach remote services")
	}
	if res.Table == nil || !res.Table.Empty() {
		t.Error("table should be empty and non-nil")
	}
}

func TestRunFetchErrorStillSummarizes(t *testing.T) {
	fe := &statement.FetchError{Kind: statement.ErrKindHTTP, Ticker: "ZZZZ", Type: statement.BalanceSheet, StatusCode: 404}
	f := &fakeFetcher{err: fe}
	s := &fakeSummarizer{text: "No data was provided."}
	a := newTestAnalyst(f, s)

	res := a.Run(context.Background(), statement.NewRequest("zzzz", statement.BalanceSheet, statement.Quarterly, 2))

	if res.Outcome != OutcomeFetchError {
		t.Errorf("outcome: %s", res.Outcome)
	}
	if len(res.Notices) != 1 || res.Notices[0].Message != "Failed to fetch data: 404" {
		t.Fatalf("expected exactly one fetch notice, got %+v", res.Notices)
	}
	if len(s.tables) != 1 || !s.tables[0].Empty() {
		t.Error("summarizer should run once on the empty table")
	}
	if res.Summary != "No data was provided." {
		t.Errorf("summary: %q", res.Summary)
	}
}

func TestRunGenerationError(t *testing.T) {
	ge := &summary.GenerationError{Provider: "gemini", Model: "gemini-1.5-pro", Err: llm.ErrRateLimit}
	a := newTestAnalyst(&fakeFetcher{table: sampleTable(t)}, &fakeSummarizer{err: ge})

	res := a.Run(context.Background(), statement.NewRequest("AAPL", statement.CashFlow, statement.Annual, 1))

	if res.Outcome != OutcomeGenerateError {
		t.Errorf("outcome: %s", res.Outcome)
	}
	if res.Summary != "" {
		t.Errorf("summary should be empty: %q", res.Summary)
	}
	if len(res.Notices) != 1 || !strings.HasPrefix(res.Notices[0].Message, "Failed to generate summary:") {
		t.Errorf("notices: %+v", res.Notices)
	}
	if res.Table.Len() != 1 {
		t.Error("table should be kept when only generation fails")
	}
}

func TestRunBothFail(t *testing.T) {
	fe := &statement.FetchError{Kind: statement.ErrKindData, Ticker: "X", Type: statement.Income, Err: statement.ErrEmptyPayload}
	a := newTestAnalyst(&fakeFetcher{err: fe}, &fakeSummarizer{err: errors.New("boom")})

	res := a.Run(context.Background(), statement.NewRequest("X", statement.Income, statement.Annual, 4))
	if res.Outcome != OutcomeFetchError {
		t.Errorf("first failure should set the outcome, got %s", res.Outcome)
	}
	if len(res.Notices) != 2 {
		t.Fatalf("expected 2 notices, got %+v", res.Notices)
	}
	if !strings.Contains(res.Notices[0].Message, "ensure the ticker is correct") {
		t.Errorf("fetch notice: %q", res.Notices[0].Message)
	}
	if !strings.Contains(res.Notices[1].Message, "boom") {
		t.Errorf("generic notice: %q", res.Notices[1].Message)
	}
}

func TestRunEmptySummaryWarns(t *testing.T) {
	a := newTestAnalyst(&fakeFetcher{table: sampleTable(t)}, &fakeSummarizer{text: "  "})
	res := a.Run(context.Background(), statement.NewRequest("AAPL", statement.Income, statement.Annual, 4))
	if len(res.Notices) != 1 || res.Notices[0].Level != LevelWarning {
		t.Errorf("expected one warning, got %+v", res.Notices)
	}
	if res.HasErrors() {
		t.Error("a warning is not an error")
	}
}

func TestResultJSON(t *testing.T) {
	a := newTestAnalyst(&fakeFetcher{table: sampleTable(t)}, &fakeSummarizer{text: "ok"})
	res := a.Run(context.Background(), statement.NewRequest("AAPL", statement.Income, statement.Annual, 4))

	b, err := json.Marshal(res)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"type":"Income Statement"`, `"period":"annual"`, `"columns":["date","revenue"]`, `"summary":"ok"`} {
		if !strings.Contains(string(b), want) {
			t.Errorf("json missing %s: %s", want, b)
		}
	}

	invalid := a.Run(context.Background(), statement.Request{})
	if _, err := json.Marshal(invalid); err != nil {
		t.Errorf("invalid result should still marshal: %v", err)
	}
}

func TestValidationMessage(t *testing.T) {
	err := statement.Request{Ticker: "A", Type: statement.Income, Period: statement.Annual}.Validate()
	if got := ValidationMessage(err); !strings.Contains(got, "between 1 and 10") {
		t.Errorf("got %q", got)
	}
	if got := ValidationMessage(errors.New("plain")); got != "plain" {
		t.Errorf("fallback: %q", got)
	}
}
