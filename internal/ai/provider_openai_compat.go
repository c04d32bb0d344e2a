package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

type openAICompatDefaults struct {
	baseURL string
	model   string
}

var openAICompatProviders = map[string]openAICompatDefaults{
	"openai":      {"https://api.openai.com/v1", "gpt-4o-mini"},
	"deepseek":    {"https://api.deepseek.com/v1", "deepseek-chat"},
	"kimi":        {"https://api.moonshot.cn/v1", "moonshot-v1-8k"},
	"qwen":        {"https://dashscope.aliyuncs.com/compatible-mode/v1", "qwen-plus"},
	"zhipu":       {"https://open.bigmodel.cn/api/paas/v4", "glm-4-flash"},
	"gemini":      {"https://generativelanguage.googleapis.com/v1beta/openai", "gemini-2.0-flash"},
	"siliconflow": {"https://api.siliconflow.cn/v1", "Qwen/Qwen2.5-72B-Instruct"},
	"grok":        {"https://api.x.ai/v1", "grok-2-latest"},
	"minimax":     {"https://api.minimax.chat/v1", "MiniMax-Text-01"},
	"doubao":      {"https://ark.cn-beijing.volces.com/api/v3", "doubao-pro-32k"},
}

var openAICompatAliases = map[string]string{
	"gpt":      "openai",
	"chatgpt":  "openai",
	"moonshot": "kimi",
	"qianwen":  "qwen",
	"tongyi":   "qwen",
	"glm":      "zhipu",
	"google":   "gemini",
	"xai":      "grok",
}

// OpenAICompatGenerator talks to any OpenAI-compatible chat completions API.
type OpenAICompatGenerator struct {
	client       *openai.Client
	model        string
	providerName string
}

// OpenAICompatConfig holds configuration for an OpenAI-compatible provider
type OpenAICompatConfig struct {
	ProviderName string
	APIKey       string
	BaseURL      string
	Model        string
}

// NewOpenAICompatGenerator creates a generator; base URL and model fall back
// to the provider's known defaults.
func NewOpenAICompatGenerator(cfg OpenAICompatConfig) (*OpenAICompatGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	name := strings.ToLower(strings.TrimSpace(cfg.ProviderName))
	if canonical, ok := openAICompatAliases[name]; ok {
		name = canonical
	}
	defaults, known := openAICompatProviders[name]

	baseURL := cfg.BaseURL
	if baseURL == "" {
		if !known {
			return nil, fmt.Errorf("unknown provider: %s (base_url required)", cfg.ProviderName)
		}
		baseURL = defaults.baseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaults.model
	}
	if model == "" {
		return nil, fmt.Errorf("model is required for provider %s", cfg.ProviderName)
	}

	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = baseURL

	return &OpenAICompatGenerator{
		client:       openai.NewClientWithConfig(config),
		model:        model,
		providerName: name,
	}, nil
}

// Name returns the provider name
func (g *OpenAICompatGenerator) Name() string {
	return g.providerName
}

func (g *OpenAICompatGenerator) Generate(ctx context.Context, prompt Prompt, c Constraints) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if prompt.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: prompt.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt.User,
	})

	req := openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		MaxTokens:   defaultMaxTokens(c.MaxTokens),
		Temperature: c.Temperature,
	}
	if c.JSON {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(ctx, g.providerName, err)
	}
	if len(resp.Choices) == 0 {
		return "", &TransientError{Provider: g.providerName, Err: fmt.Errorf("empty choices")}
	}
	return resp.Choices[0].Message.Content, nil
}
