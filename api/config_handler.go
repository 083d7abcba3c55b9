// Configuration endpoints.

package api

import (
	"net/http"
	"time"

	"github.com/seenimoa/aifinanalyst/internal/config"
)

// PublicConfig is the running configuration with credentials masked.
type PublicConfig struct {
	FMP struct {
		BaseURL string `json:"base_url"`
		Timeout string `json:"timeout"`
		APIKey  string `json:"api_key"`
	} `json:"fmp"`
	LLM struct {
		Backend     string  `json:"backend"`
		BaseURL     string  `json:"base_url"`
		Model       string  `json:"model"`
		Temperature float64 `json:"temperature"`
		MaxTokens   int     `json:"max_tokens"`
		Timeout     string  `json:"timeout"`
		GeminiKey   string  `json:"gemini_key"`
	} `json:"llm"`
	Request config.RequestConfig `json:"request"`
	Logging config.LoggingConfig `json:"logging"`
}

// NewPublicConfig builds the masked view of cfg.
func NewPublicConfig(cfg *config.Config) PublicConfig {
	var pc PublicConfig
	pc.FMP.BaseURL = cfg.FMP.BaseURL
	pc.FMP.Timeout = durationString(cfg.FMP.Timeout)
	pc.FMP.APIKey = maskedOrEmpty(cfg.FMP.APIKey)

	pc.LLM.Backend = cfg.LLM.Backend
	pc.LLM.BaseURL = cfg.LLM.BaseURL
	pc.LLM.Model = cfg.LLM.Model
	pc.LLM.Temperature = cfg.LLM.Temperature
	pc.LLM.MaxTokens = cfg.LLM.MaxTokens
	pc.LLM.Timeout = durationString(cfg.LLM.Timeout)
	pc.LLM.GeminiKey = maskedOrEmpty(cfg.LLM.GeminiKey)

	pc.Request = cfg.Request
	pc.Logging = cfg.Logging
	return pc
}

// handleGetConfig returns the running configuration. Keys are masked.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    NewPublicConfig(s.cfg),
	})
}

// handleGetConfigKeys returns the status of both API keys.
func (s *Server) handleGetConfigKeys(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    config.CheckAPIKeys(s.cfg),
	})
}

func maskedOrEmpty(key string) string {
	if key == "" {
		return ""
	}
	return config.MaskKey(key)
}

func durationString(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	return d.String()
}
