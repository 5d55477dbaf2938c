package models

import (
	"context"
	"os"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
)

// ClaudeChat implements ChatModel using Anthropic's Messages API.
type ClaudeChat struct {
	Client *anthropic.Client
}

// NewClaudeChat constructs a client. An empty key falls back to
// ANTHROPIC_API_KEY from the environment.
func NewClaudeChat(apiKey string) *ClaudeChat {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	cl := anthropic.NewClient(anthropicopt.WithAPIKey(apiKey))
	return &ClaudeChat{Client: &cl}
}

func (c *ClaudeChat) Chat(ctx context.Context, messages []Message, opts ChatOptions) (string, error) {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(opts.Model),
		MaxTokens: int64(maxTokens),
	}
	// The Messages API takes system prompts out of band.
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			params.System = append(params.System, anthropic.TextBlockParam{Text: msg.Content})
		case RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	msg, err := c.Client.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, cb := range msg.Content {
		if tb, ok := cb.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(tb.Text)
		}
	}
	return b.String(), nil
}
