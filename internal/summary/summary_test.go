package summary

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/seenimoa/aifinanalyst/internal/llm"
	"github.com/seenimoa/aifinanalyst/internal/statement"
)

// fakeProvider records prompts and answers with a canned response.
type fakeProvider struct {
	mu      sync.Mutex
	prompts []string
	opts    []*llm.ChatOptions
	reply   string
	err     error
	delay   time.Duration
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Ping(ctx context.Context) error { return nil }

func (f *fakeProvider) Chat(ctx context.Context, messages []llm.Message, opts *llm.ChatOptions) (*llm.Response, error) {
	f.mu.Lock()
	for _, m := range messages {
		f.prompts = append(f.prompts, m.Content)
	}
	f.opts = append(f.opts, opts)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", llm.ErrProviderDown, ctx.Err())
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Content: f.reply, Model: "fake-model", Usage: llm.Usage{TotalTokens: 7}}, nil
}

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func mustTable(t *testing.T, body string) *statement.Table {
	t.Helper()
	table, err := statement.ParseTable([]byte(body))
	if err != nil {
		t.Fatal(err)
	}
	return table
}

func TestDigestOneParagraphPerRow(t *testing.T) {
	table := mustTable(t, `[
		{"date":"2023-12-31","revenue":300,"grossProfit":120,"operatingIncome":60,"netIncome":40},
		{"date":"2022-12-31","revenue":250,"grossProfit":100,"operatingIncome":50,"netIncome":30},
		{"date":"2021-12-31","revenue":200,"grossProfit":80,"operatingIncome":40,"netIncome":20}
	]`)

	got := Digest(table, statement.Income)
	if len(got) != 3 {
		t.Fatalf("paragraphs: got %d, want 3", len(got))
	}
	for i, date := range []string{"2023-12-31", "2022-12-31", "2021-12-31"} {
		if !strings.HasPrefix(got[i], "For the period ending "+date+",") {
			t.Errorf("paragraph %d out of order: %q", i, got[i])
		}
	}

	want := "For the period ending 2023-12-31, the company reported the following key income statement metrics:\n" +
		"- Revenue: 300\n" +
		"- Gross Profit: 120\n" +
		"- Operating Income: 60\n" +
		"- Net Income: 40"
	if diff := cmp.Diff(want, got[0]); diff != "" {
		t.Errorf("paragraph (-want +got):\n%s", diff)
	}

	prompt := BuildPrompt(table, statement.Income)
	if !strings.Contains(prompt, got[0]+"\n\n"+got[1]+"\n\n"+got[2]) {
		t.Error("paragraphs should be joined by blank lines in row order")
	}
}

func TestDigestMissingFieldsRenderNA(t *testing.T) {
	table := mustTable(t, `[{"date":"2023-09-30","totalAssets":1000,"totalStockholdersEquity":400}]`)

	got := Digest(table, statement.BalanceSheet)[0]
	if !strings.Contains(got, "- Total Liabilities: N/A") {
		t.Errorf("missing field should render N/A:\n%s", got)
	}
	if !strings.Contains(got, "- Total Equity: 400") {
		t.Errorf("equity should use totalStockholdersEquity:\n%s", got)
	}
}

func TestDigestToleratesMissingFieldsForEveryType(t *testing.T) {
	table := mustTable(t, `[{"symbol":"AAPL"}]`)
	for _, k := range statement.Kinds {
		got := Digest(table, k.Type)[0]
		if !strings.HasPrefix(got, "For the period ending N/A,") {
			t.Errorf("%s: missing date should render N/A: %q", k.Name, got)
		}
		if n := strings.Count(got, ": N/A"); n != len(k.Digest) {
			t.Errorf("%s: expected %d N/A fields, got %d", k.Name, len(k.Digest), n)
		}
	}
}

func TestBuildPromptCashFlow(t *testing.T) {
	table := mustTable(t, `[
		{"date":"2023-09-30","operatingCashFlow":110543000000,"cashflowFromInvestment":3705000000,"cashflowFromFinancing":-108488000000,"netCashFlow":5760000000},
		{"date":"2022-09-24","operatingCashFlow":122151000000,"cashflowFromInvestment":-22354000000,"cashflowFromFinancing":-110749000000,"netCashFlow":-10952000000}
	]`)

	prompt := BuildPrompt(table, statement.CashFlow)

	if n := strings.Count(prompt, "For the period ending "); n != 2 {
		t.Errorf("expected 2 period blocks, got %d", n)
	}
	if !strings.Contains(prompt, "provide insights for the cash flow of a company") {
		t.Error("preamble should name the lower-cased statement type")
	}
	if !strings.HasPrefix(prompt, "You are an AI trained to provide financial analysis") {
		t.Errorf("prompt should open with the preamble: %q", prompt[:60])
	}
	for _, line := range []string{
		"- Operating Cash Flow: 110543000000",
		"- Investing Cash Flow: 3705000000",
		"- Financing Cash Flow: -108488000000",
		"- Net Cash Flow: 5760000000",
		"- Net Cash Flow: -10952000000",
	} {
		if !strings.Contains(prompt, line) {
			t.Errorf("prompt missing %q", line)
		}
	}
	if strings.Index(prompt, "Summarize each period") > strings.Index(prompt, "For the period ending") {
		t.Error("instructions should precede the data")
	}
}

func TestBuildPromptEmptyTable(t *testing.T) {
	prompt := BuildPrompt(statement.NewTable(), statement.Income)
	if strings.Contains(prompt, "For the period ending") {
		t.Error("empty table should produce no period blocks")
	}
	if !strings.HasSuffix(prompt, "insights over time:\n\n") {
		t.Errorf("expected empty data section, got %q", prompt)
	}
}

func TestSummarizeReturnsResponseVerbatim(t *testing.T) {
	p := &fakeProvider{reply: "  **Revenue** grew.\n"}
	g := NewGenerator(p, WithModel("gemini-1.5-pro"), WithMaxTokens(256), WithLogger(quietLogger()))

	table := mustTable(t, `[{"date":"2023-12-31","revenue":1}]`)
	got, err := g.Summarize(context.Background(), table, statement.Income)
	if err != nil {
		t.Fatal(err)
	}
	if got != "  **Revenue** grew.\n" {
		t.Errorf("response altered: %q", got)
	}
	if len(p.prompts) != 1 {
		t.Fatalf("expected exactly one model call, got %d", len(p.prompts))
	}
	if p.prompts[0] != BuildPrompt(table, statement.Income) {
		t.Error("provider did not receive the built prompt")
	}
	if p.opts[0].Model != "gemini-1.5-pro" || p.opts[0].MaxTokens != 256 {
		t.Errorf("options not forwarded: %+v", p.opts[0])
	}
}

func TestSummarizeEmptyTableStillCallsModel(t *testing.T) {
	p := &fakeProvider{reply: "No data."}
	var logs bytes.Buffer
	g := NewGenerator(p, WithLogger(log.New(&logs, "", 0)))

	got, err := g.Summarize(context.Background(), statement.NewTable(), statement.BalanceSheet)
	if err != nil || got != "No data." {
		t.Fatalf("got %q, %v", got, err)
	}
	if !strings.Contains(logs.String(), "empty table") {
		t.Errorf("expected empty-table log line, got %q", logs.String())
	}
}

func TestSummarizeErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"no key", fmt.Errorf("%w: denied", llm.ErrNoAPIKey), "API key"},
		{"quota", llm.ErrRateLimit, "quota"},
		{"empty", llm.ErrEmptyResponse, "no answer"},
		{"down", llm.ErrProviderDown, "unreachable"},
		{"other", errors.New("boom"), "returned an error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGenerator(&fakeProvider{err: tt.err}, WithLogger(quietLogger()))
			got, err := g.Summarize(context.Background(), statement.NewTable(), statement.Income)
			if got != "" {
				t.Errorf("expected empty summary, got %q", got)
			}
			var ge *GenerationError
			if !errors.As(err, &ge) {
				t.Fatalf("expected *GenerationError, got %T: %v", err, err)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("cause not wrapped: %v", err)
			}
			msg := ge.UserMessage()
			if !strings.HasPrefix(msg, "Failed to generate summary: ") || !strings.Contains(msg, tt.want) {
				t.Errorf("user message: %q", msg)
			}
		})
	}
}

func TestSummarizeTimeout(t *testing.T) {
	p := &fakeProvider{reply: "late", delay: time.Second}
	g := NewGenerator(p, WithTimeout(20*time.Millisecond), WithLogger(quietLogger()))

	_, err := g.Summarize(context.Background(), statement.NewTable(), statement.CashFlow)
	var ge *GenerationError
	if !errors.As(err, &ge) || !ge.Timeout() {
		t.Fatalf("expected timeout GenerationError, got %v", err)
	}
	if !strings.Contains(ge.UserMessage(), "in time") {
		t.Errorf("user message: %q", ge.UserMessage())
	}
}
