package ai

import (
	"context"
	"errors"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAIOfficialGenerator implements Generator using the official openai-go SDK (chat completions).
type OpenAIOfficialGenerator struct {
	client openai.Client
	model  string
}

func NewOpenAIOfficialGenerator(apiKey, baseURL, model string) (*OpenAIOfficialGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key missing; provide ai.api_key")
	}
	if model == "" {
		return nil, errors.New("ai model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIOfficialGenerator{client: openai.NewClient(opts...), model: model}, nil
}

func (g *OpenAIOfficialGenerator) Name() string {
	return "openai-official"
}

func (g *OpenAIOfficialGenerator) Generate(ctx context.Context, prompt Prompt, c Constraints) (string, error) {
	msgs := []openai.ChatCompletionMessageParamUnion{}
	if prompt.System != "" {
		msgs = append(msgs, openai.SystemMessage(prompt.System))
	}
	msgs = append(msgs, openai.UserMessage(prompt.User))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(g.model),
		Messages:    msgs,
		Temperature: openai.Float(float64(c.Temperature)),
		MaxTokens:   openai.Int(int64(defaultMaxTokens(c.MaxTokens))),
	}
	if c.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classify(ctx, g.Name(), err)
	}
	if len(resp.Choices) == 0 {
		return "", &TransientError{Provider: g.Name(), Err: errors.New("openai: empty choices")}
	}
	return resp.Choices[0].Message.Content, nil
}
