// Package llm provides a small interface over hosted text-generation models
// with two Gemini backends: a hand-written REST client and the official
// google.golang.org/genai SDK.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Provider names.
const (
	ProviderGemini      = "gemini"
	ProviderGeminiGenAI = "gemini-genai"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-1.5-pro"

// Common errors returned by LLM providers.
var (
	ErrNoAPIKey      = errors.New("llm: API key not configured")
	ErrRateLimit     = errors.New("llm: rate limit exceeded")
	ErrProviderDown  = errors.New("llm: provider unavailable")
	ErrInvalidModel  = errors.New("llm: invalid model")
	ErrEmptyResponse = errors.New("llm: model returned no candidates")
	ErrBlocked       = errors.New("llm: prompt blocked by safety filters")
)

// Role represents the role of a message sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// FinishReason indicates why the model stopped generating.
type FinishReason string

const (
	FinishStop   FinishReason = "stop"
	FinishLength FinishReason = "length"
	FinishSafety FinishReason = "safety"
	FinishError  FinishReason = "error"
)

// Message represents a single message in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Response represents a complete response from the model.
type Response struct {
	Content      string        `json:"content"`
	FinishReason FinishReason  `json:"finish_reason"`
	Usage        Usage         `json:"usage"`
	Model        string        `json:"model"`
	Provider     string        `json:"provider"`
	Latency      time.Duration `json:"latency"`
}

// Usage tracks token consumption for a request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatOptions configures a single chat request.
type ChatOptions struct {
	Model       string  `json:"model,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// Provider is the interface every text-generation backend implements.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// Chat sends a conversation and returns one complete, non-streamed response.
	Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error)

	// Ping checks that the provider is reachable and the API key is accepted.
	Ping(ctx context.Context) error
}

// Describe pings p and turns the outcome into a one-line status for
// display, e.g. "reachable (gemini)" or "API key rejected".
func Describe(ctx context.Context, p Provider) string {
	err := p.Ping(ctx)
	switch {
	case err == nil:
		return fmt.Sprintf("reachable (%s)", p.Name())
	case errors.Is(err, ErrNoAPIKey):
		return "API key rejected"
	case errors.Is(err, ErrInvalidModel):
		return "model not found"
	case errors.Is(err, ErrRateLimit):
		return "quota exhausted"
	case errors.Is(err, ErrProviderDown):
		return "unreachable"
	}
	return "error: " + err.Error()
}

// NewMessage creates a message with the given role and content.
func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content}
}

// UserMessage creates a user message.
func UserMessage(content string) Message {
	return NewMessage(RoleUser, content)
}

// String returns a human-readable summary of the response.
func (r *Response) String() string {
	truncated := r.Content
	if len(truncated) > 100 {
		truncated = truncated[:100] + "..."
	}
	return fmt.Sprintf("[%s/%s] %q, %d tokens, %v",
		r.Provider, r.Model, truncated, r.Usage.TotalTokens, r.Latency.Round(time.Millisecond))
}

func resolveModel(opts *ChatOptions, fallback string) string {
	if opts != nil && opts.Model != "" {
		return opts.Model
	}
	return fallback
}
