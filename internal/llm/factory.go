package llm

import (
	"context"
	"fmt"

	"github.com/seenimoa/aifinanalyst/internal/config"
	"github.com/seenimoa/aifinanalyst/internal/infra"
)

// NewFromConfig builds the provider selected by cfg.Backend.
func NewFromConfig(ctx context.Context, cfg config.LLMConfig) (Provider, error) {
	client := infra.NewHTTPClient(cfg.Timeout)

	switch cfg.Backend {
	case config.BackendREST, "":
		return NewGeminiProvider(cfg.GeminiKey,
			WithGeminiModel(cfg.Model),
			WithGeminiBaseURL(cfg.BaseURL),
			WithGeminiHTTPClient(client),
		)
	case config.BackendSDK:
		return NewGenAIProvider(ctx, cfg.GeminiKey,
			WithGenAIModel(cfg.Model),
			WithGenAIBaseURL(cfg.BaseURL),
			WithGenAIHTTPClient(client),
		)
	}
	return nil, fmt.Errorf("llm: unknown backend %q", cfg.Backend)
}
