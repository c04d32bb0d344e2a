package ai

import (
	"fmt"
	"strings"

	"github.com/kayz/slidefit/internal/config"
)

// NewGenerator builds the generative service described by cfg: the model
// registry with failover when both registry files are set, otherwise a single
// provider.
func NewGenerator(cfg config.AIConfig) (Generator, error) {
	if cfg.ProvidersFile != "" && cfg.ModelsFile != "" {
		reg, err := LoadRegistry(cfg.ProvidersFile, cfg.ModelsFile)
		if err != nil {
			return nil, err
		}
		return NewRoutedGenerator(NewModelRouter(reg, cfg.Cooldown), nil), nil
	}
	return providerGenerator(&ProviderConfig{
		Name:    cfg.Provider,
		Type:    cfg.Provider,
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
	}, &ModelConfig{Code: cfg.Model})
}

func providerGenerator(p *ProviderConfig, m *ModelConfig) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(p.Type)) {
	case "mock", "":
		return MockGenerator{}, nil
	case "claude", "anthropic":
		return NewClaudeGenerator(ClaudeConfig{
			APIKey:  p.APIKey,
			BaseURL: p.BaseURL,
			Model:   m.Code,
		})
	case "openai-official":
		return NewOpenAIOfficialGenerator(p.APIKey, p.BaseURL, m.Code)
	default:
		gen, err := NewOpenAICompatGenerator(OpenAICompatConfig{
			ProviderName: p.Type,
			APIKey:       p.APIKey,
			BaseURL:      p.BaseURL,
			Model:        m.Code,
		})
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", p.Name, err)
		}
		return gen, nil
	}
}

// NewModelGenerator builds the Generator for one registry model.
func NewModelGenerator(p *ProviderConfig, m *ModelConfig) (Generator, error) {
	return providerGenerator(p, m)
}
