package genai

import (
	"fmt"

	"github.com/dgallion1/coursevoice/internal/config"
	"github.com/dgallion1/coursevoice/internal/stats"
)

// Client is a Generator that exposes its latency window and holds idle
// connections until closed.
type Client interface {
	Generator
	Latency() *stats.Latency
	Close()
}

func (c *GeminiClient) Latency() *stats.Latency    { return c.Stats }
func (c *OpenAIClient) Latency() *stats.Latency    { return c.Stats }
func (c *AnthropicClient) Latency() *stats.Latency { return c.Stats }

// New builds the client for the configured provider.
func New(cfg config.Config) (Client, error) {
	switch cfg.GenerationProvider {
	case config.ProviderGemini:
		return NewGeminiClient(cfg.GoogleAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL), nil
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL), nil
	case config.ProviderAnthropic:
		return NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel), nil
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.GenerationProvider)
	}
}
