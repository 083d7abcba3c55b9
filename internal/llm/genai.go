package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

// GenAIProvider implements Provider with the official Gemini SDK.
type GenAIProvider struct {
	client *genai.Client
	model  string
}

// GenAIOption configures the SDK-backed provider before its client is built.
type GenAIOption func(*genaiSettings)

type genaiSettings struct {
	model      string
	baseURL    string
	httpClient *http.Client
}

// WithGenAIModel sets the default model.
func WithGenAIModel(model string) GenAIOption {
	return func(s *genaiSettings) {
		if model != "" {
			s.model = model
		}
	}
}

// WithGenAIBaseURL overrides the API root. A trailing version segment
// ("/v1beta") is split off and passed to the SDK as the API version.
func WithGenAIBaseURL(u string) GenAIOption {
	return func(s *genaiSettings) { s.baseURL = u }
}

// WithGenAIHTTPClient sets the HTTP client the SDK uses.
func WithGenAIHTTPClient(c *http.Client) GenAIOption {
	return func(s *genaiSettings) { s.httpClient = c }
}

// NewGenAIProvider creates an SDK client for the Gemini API backend.
func NewGenAIProvider(ctx context.Context, apiKey string, opts ...GenAIOption) (*GenAIProvider, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	s := genaiSettings{model: DefaultModel}
	for _, opt := range opts {
		opt(&s)
	}

	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: s.httpClient,
	}
	if s.baseURL != "" {
		root, version := splitAPIVersion(s.baseURL)
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: root + "/", APIVersion: version}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("genai: create client: %w", err)
	}
	return &GenAIProvider{client: client, model: s.model}, nil
}

func (p *GenAIProvider) Name() string { return ProviderGeminiGenAI }

// Ping fetches the configured model's metadata.
func (p *GenAIProvider) Ping(ctx context.Context) error {
	if _, err := p.client.Models.Get(ctx, p.model, nil); err != nil {
		return mapGenAIError(err)
	}
	return nil
}

// Chat sends one GenerateContent call.
func (p *GenAIProvider) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	start := time.Now()
	model := resolveModel(opts, p.model)

	config := &genai.GenerateContentConfig{}
	var contents []*genai.Content
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: m.Content}}}
		case RoleUser:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		}
	}
	if opts != nil {
		if opts.Temperature > 0 {
			config.Temperature = genai.Ptr(float32(opts.Temperature))
		}
		if opts.MaxTokens > 0 {
			config.MaxOutputTokens = int32(opts.MaxTokens)
		}
	}

	result, err := p.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, mapGenAIError(err)
	}
	if len(result.Candidates) == 0 {
		if result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
			return nil, fmt.Errorf("%w: %s", ErrBlocked, result.PromptFeedback.BlockReason)
		}
		return nil, ErrEmptyResponse
	}

	r := &Response{
		Content:      result.Text(),
		FinishReason: mapFinishReason(string(result.Candidates[0].FinishReason)),
		Model:        model,
		Provider:     ProviderGeminiGenAI,
		Latency:      time.Since(start),
	}
	if u := result.UsageMetadata; u != nil {
		r.Usage = Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return r, nil
}

// mapGenAIError converts SDK API errors to the package's sentinel errors.
func mapGenAIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus("genai", apiErr.Code, apiErr.Message)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return classifyStatus("genai", apiErrPtr.Code, apiErrPtr.Message)
	}
	return fmt.Errorf("%w: %w", ErrProviderDown, err)
}

// splitAPIVersion turns "https://host/v1beta" into ("https://host", "v1beta").
func splitAPIVersion(base string) (string, string) {
	base = strings.TrimRight(base, "/")
	i := strings.LastIndex(base, "/")
	if i < 0 {
		return base, ""
	}
	last := base[i+1:]
	if strings.HasPrefix(last, "v1") {
		return base[:i], last
	}
	return base, ""
}
