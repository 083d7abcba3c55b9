// Package analyst runs one fetch-and-summarize pass for a user request and
// turns every failure along the way into a notice the shells can render.
package analyst

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/seenimoa/aifinanalyst/internal/llm"
	"github.com/seenimoa/aifinanalyst/internal/observability/metrics"
	"github.com/seenimoa/aifinanalyst/internal/statement"
	"github.com/seenimoa/aifinanalyst/internal/summary"
)

// StatementFetcher retrieves one statement table. Implementations return a
// non-nil table even on error.
type StatementFetcher interface {
	Fetch(ctx context.Context, req statement.Request) (*statement.Table, error)
}

// Summarizer produces the model's analysis of a table.
type Summarizer interface {
	Generate(ctx context.Context, t *statement.Table, typ statement.Type) (*summary.Result, error)
}

// Level grades a notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is one user-visible message produced during a run.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Run outcomes, used as the metrics label.
const (
	OutcomeOK            = "ok"
	OutcomeInvalid       = "invalid"
	OutcomeFetchError    = "fetch_error"
	OutcomeGenerateError = "generate_error"
)

// Result is everything one run produced. It is built per run and never
// shared.
type Result struct {
	RunID    string            `json:"run_id"`
	Request  statement.Request `json:"request"`
	Table    *statement.Table  `json:"table"`
	Summary  string            `json:"summary"`
	Notices  []Notice          `json:"notices"`
	Usage    llm.Usage         `json:"usage"`
	Outcome  string            `json:"outcome"`
	Duration time.Duration     `json:"duration_ns"`
}

// Heading is the line shown above the summary text.
func (r *Result) Heading() string {
	return fmt.Sprintf("Summary for %s:", r.Request.Ticker)
}

// HasErrors reports whether any error notice was raised.
func (r *Result) HasErrors() bool {
	for _, n := range r.Notices {
		if n.Level == LevelError {
			return true
		}
	}
	return false
}

func (r *Result) notify(level Level, msg string) {
	r.Notices = append(r.Notices, Notice{Level: level, Message: msg})
}

// Analyst composes a StatementFetcher and a Summarizer.
type Analyst struct {
	fetcher    StatementFetcher
	summarizer Summarizer
	logger     *log.Logger
}

// Option configures an Analyst.
type Option func(*Analyst)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(a *Analyst) { a.logger = l }
}

// New creates an Analyst.
func New(f StatementFetcher, s Summarizer, opts ...Option) *Analyst {
	a := &Analyst{fetcher: f, summarizer: s, logger: log.Default()}
	for _, opt := range opts {
		opt(a)
	}
	metrics.Init()
	return a
}

// Run validates req, fetches the statement, then summarizes it. A failed
// fetch still reaches the summarizer with the empty table. Run never panics
// on remote failures; it reports them as notices.
func (a *Analyst) Run(ctx context.Context, req statement.Request) *Result {
	start := time.Now()
	req = req.Normalized()
	res := &Result{
		RunID:   uuid.NewString(),
		Request: req,
		Table:   statement.NewTable(),
		Outcome: OutcomeOK,
	}
	defer func() {
		res.Duration = time.Since(start)
		metrics.IncRun(res.Outcome)
		a.logf("%s: %s finished: outcome=%s rows=%d notices=%d in %v",
			res.RunID, req, res.Outcome, res.Table.Len(), len(res.Notices), res.Duration.Round(time.Millisecond))
	}()

	if err := req.Validate(); err != nil {
		res.Outcome = OutcomeInvalid
		res.notify(LevelError, ValidationMessage(err))
		return res
	}

	fetchStart := time.Now()
	table, err := a.fetcher.Fetch(ctx, req)
	metrics.ObserveFetch(req.Type.String(), metrics.Result(err), time.Since(fetchStart))
	if table != nil {
		res.Table = table
	}
	if err != nil {
		res.Outcome = OutcomeFetchError
		res.notify(LevelError, UserMessage(err))
		a.logf("%s: fetch: %v", res.RunID, err)
	}

	genStart := time.Now()
	sum, err := a.summarizer.Generate(ctx, res.Table, req.Type)
	metrics.ObserveGenerate(metrics.Result(err), time.Since(genStart))
	if err != nil {
		if res.Outcome == OutcomeOK {
			res.Outcome = OutcomeGenerateError
		}
		res.notify(LevelError, UserMessage(err))
		a.logf("%s: generate: %v", res.RunID, err)
		return res
	}

	res.Summary = sum.Text
	res.Usage = sum.Usage
	metrics.AddTokens(sum.Usage.PromptTokens, sum.Usage.CompletionTokens)
	if strings.TrimSpace(sum.Text) == "" {
		res.notify(LevelWarning, "The model returned an empty summary.")
	}
	return res
}

func (a *Analyst) logf(format string, args ...any) {
	if a.logger != nil {
		a.logger.Printf("analyst: "+format, args...)
	}
}

// UserMessage returns the user-facing text for err. Errors that carry their
// own (statement.FetchError, summary.GenerationError) are used as is.
func UserMessage(err error) string {
	var um interface{ UserMessage() string }
	if errors.As(err, &um) {
		return um.UserMessage()
	}
	return "Something went wrong: " + err.Error()
}

// ValidationMessage turns Request.Validate errors into one sentence per
// problem, in form order.
func ValidationMessage(err error) string {
	var parts []string
	if errors.Is(err, statement.ErrEmptyTicker) {
		parts = append(parts, "Please enter the company ticker.")
	}
	if errors.Is(err, statement.ErrUnknownType) {
		parts = append(parts, "Please select a financial statement type (Income Statement, Balance Sheet or Cash Flow).")
	}
	if errors.Is(err, statement.ErrUnknownPeriod) {
		parts = append(parts, "Please select a period (Annual or Quarterly).")
	}
	if errors.Is(err, statement.ErrLimitRange) {
		parts = append(parts, fmt.Sprintf("The number of past statements must be between %d and %d.", statement.MinLimit, statement.MaxLimit))
	}
	if len(parts) == 0 {
		return err.Error()
	}
	return strings.Join(parts, " ")
}
