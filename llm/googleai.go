package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

// GoogleAIClient implements Client on top of langchaingo's GoogleAI model.
type GoogleAIClient struct {
	model llms.Model
	name  string
}

// NewGoogleAIClient creates a langchaingo-backed Gemini client.
func NewGoogleAIClient(ctx context.Context, apiKey, model string) (*GoogleAIClient, error) {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	m, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, err
	}
	return &GoogleAIClient{model: m, name: model}, nil
}

// Chat sends a single system+user exchange.
func (c *GoogleAIClient) Chat(ctx context.Context, system, user string) (string, error) {
	return c.ChatMessages(ctx, []Message{
		{Role: RoleSystem, Content: system},
		{Role: RoleUser, Content: user},
	}, Options{})
}

// ChatMessages sends the full message list through langchaingo.
func (c *GoogleAIClient) ChatMessages(ctx context.Context, msgs []Message, opts Options) (string, error) {
	content := make([]llms.MessageContent, 0, len(msgs))
	for _, m := range msgs {
		var role llms.ChatMessageType
		switch m.Role {
		case RoleSystem:
			role = llms.ChatMessageTypeSystem
		case RoleAssistant:
			role = llms.ChatMessageTypeAI
		default:
			role = llms.ChatMessageTypeHuman
		}
		content = append(content, llms.TextParts(role, m.Content))
	}

	var callOpts []llms.CallOption
	if opts.Temperature != 0 {
		callOpts = append(callOpts, llms.WithTemperature(opts.Temperature))
	}
	if opts.MaxTokens != 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}

	resp, err := c.model.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("googleai: empty choices")
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}
