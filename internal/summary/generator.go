package summary

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/seenimoa/aifinanalyst/internal/config"
	"github.com/seenimoa/aifinanalyst/internal/llm"
	"github.com/seenimoa/aifinanalyst/internal/statement"
)

const (
	msgGeneration = "Failed to generate summary: %s"
	msgTimeout    = "Failed to generate summary: the model did not answer in time. Please try again."
)

// GenerationError wraps any failure of the model call.
type GenerationError struct {
	Provider string
	Model    string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("summary: %s/%s: %v", e.Provider, e.Model, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Timeout reports whether the model call ran out of time.
func (e *GenerationError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// UserMessage is the text shown to the person who ran the query.
func (e *GenerationError) UserMessage() string {
	if e.Timeout() {
		return msgTimeout
	}
	reason := "the model service returned an error"
	switch {
	case errors.Is(e.Err, llm.ErrNoAPIKey):
		reason = "the Gemini API key is missing or was rejected"
	case errors.Is(e.Err, llm.ErrRateLimit):
		reason = "the Gemini quota is exhausted"
	case errors.Is(e.Err, llm.ErrInvalidModel):
		reason = fmt.Sprintf("model %q is not available", e.Model)
	case errors.Is(e.Err, llm.ErrEmptyResponse), errors.Is(e.Err, llm.ErrBlocked):
		reason = "the model returned no answer"
	case errors.Is(e.Err, llm.ErrProviderDown):
		reason = "the model service is unreachable"
	}
	return fmt.Sprintf(msgGeneration, reason)
}

// Result is a generated summary with the prompt that produced it.
type Result struct {
	Text   string    `json:"text"`
	Prompt string    `json:"-"`
	Usage  llm.Usage `json:"usage"`
	Model  string    `json:"model"`
}

// Generator builds prompts from tables and sends them to a Provider. It is
// safe for concurrent use.
type Generator struct {
	provider    llm.Provider
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
	logger      *log.Logger
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithModel overrides the provider's default model.
func WithModel(m string) GeneratorOption {
	return func(g *Generator) { g.model = m }
}

// WithTemperature sets the sampling temperature. Zero leaves the model default.
func WithTemperature(t float64) GeneratorOption {
	return func(g *Generator) { g.temperature = t }
}

// WithMaxTokens caps the response length. Zero leaves the model default.
func WithMaxTokens(n int) GeneratorOption {
	return func(g *Generator) { g.maxTokens = n }
}

// WithTimeout bounds each model call.
func WithTimeout(d time.Duration) GeneratorOption {
	return func(g *Generator) { g.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) GeneratorOption {
	return func(g *Generator) { g.logger = l }
}

// NewGenerator creates a generator over p.
func NewGenerator(p llm.Provider, opts ...GeneratorOption) *Generator {
	g := &Generator{provider: p, logger: log.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewGeneratorFromConfig wires a generator from the llm config section.
func NewGeneratorFromConfig(p llm.Provider, cfg config.LLMConfig, opts ...GeneratorOption) *Generator {
	base := []GeneratorOption{
		WithModel(cfg.Model),
		WithTemperature(cfg.Temperature),
		WithMaxTokens(cfg.MaxTokens),
		WithTimeout(cfg.Timeout),
	}
	return NewGenerator(p, append(base, opts...)...)
}

// Summarize returns the model's analysis of t, verbatim.
func (g *Generator) Summarize(ctx context.Context, t *statement.Table, typ statement.Type) (string, error) {
	res, err := g.Generate(ctx, t, typ)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// Generate is Summarize with the prompt and token usage attached.
func (g *Generator) Generate(ctx context.Context, t *statement.Table, typ statement.Type) (*Result, error) {
	prompt := BuildPrompt(t, typ)
	if t.Empty() {
		g.logf("%s: empty table, sending prompt without data", typ)
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	opts := &llm.ChatOptions{Model: g.model, Temperature: g.temperature, MaxTokens: g.maxTokens}
	resp, err := g.provider.Chat(ctx, []llm.Message{llm.UserMessage(prompt)}, opts)
	if err != nil {
		ge := &GenerationError{Provider: g.provider.Name(), Model: g.model, Err: err}
		g.logf("%v", ge)
		return nil, ge
	}
	g.logf("%s", resp)

	return &Result{Text: resp.Content, Prompt: prompt, Usage: resp.Usage, Model: resp.Model}, nil
}

func (g *Generator) logf(format string, args ...any) {
	if g.logger != nil {
		g.logger.Printf("summary: "+format, args...)
	}
}
