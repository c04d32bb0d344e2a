package ai

import (
	"context"
	"fmt"

	"github.com/liushuangls/go-anthropic/v2"
)

const claudeDefaultModel = "claude-3-5-haiku-latest"

// ClaudeGenerator implements Generator over the Anthropic messages API.
type ClaudeGenerator struct {
	client *anthropic.Client
	model  string
}

// ClaudeConfig holds Claude provider configuration
type ClaudeConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

func NewClaudeGenerator(cfg ClaudeConfig) (*ClaudeGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = claudeDefaultModel
	}

	var opts []anthropic.ClientOption
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}

	return &ClaudeGenerator{
		client: anthropic.NewClient(cfg.APIKey, opts...),
		model:  cfg.Model,
	}, nil
}

func (g *ClaudeGenerator) Name() string {
	return "claude"
}

func (g *ClaudeGenerator) Generate(ctx context.Context, prompt Prompt, c Constraints) (string, error) {
	temperature := c.Temperature
	system := prompt.System
	if c.JSON {
		// no native JSON mode; ask for it in the system prompt
		system += "\nRespond with a single JSON object and nothing else."
	}

	resp, err := g.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(g.model),
		System:      system,
		Messages:    []anthropic.Message{anthropic.NewUserTextMessage(prompt.User)},
		MaxTokens:   defaultMaxTokens(c.MaxTokens),
		Temperature: &temperature,
	})
	if err != nil {
		return "", classify(ctx, g.Name(), err)
	}
	return resp.GetFirstContentText(), nil
}
