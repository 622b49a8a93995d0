package platform

import (
	"context"
	"errors"

	"convstore/model"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// LLMClient produces the next assistant turn for a rendered history.
type LLMClient struct {
	client *openai.Client
	model  string
}

func InitLLMClient(cfg *Config) *LLMClient {
	return &LLMClient{
		client: openai.NewClient(
			option.WithBaseURL(cfg.LLMBaseURL),
			option.WithAPIKey(cfg.LLMAPIKey),
		),
		model: cfg.LLMModel,
	}
}

func (l *LLMClient) Complete(ctx context.Context, turns []model.Turn) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{}),
		Model:    openai.F(openai.ChatModel(l.model)),
	}
	for _, turn := range turns {
		var content any = turn.Content
		params.Messages.Value = append(params.Messages.Value, openai.ChatCompletionMessageParam{
			Role:    openai.F(openai.ChatCompletionMessageParamRole(turn.Role)),
			Content: openai.F(content),
		})
	}

	completion, err := l.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}
	return completion.Choices[0].Message.Content, nil
}
