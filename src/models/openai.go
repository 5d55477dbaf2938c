package models

import (
	"context"
	"errors"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIChat implements ChatModel using the OpenAI chat completions API.
type OpenAIChat struct {
	Client *openai.Client
}

// NewOpenAIChat constructs a client. An empty key falls back to
// OPENAI_API_KEY (then OPENAI_KEY) from the environment.
func NewOpenAIChat(apiKey string) *OpenAIChat {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_KEY")
	}
	return &OpenAIChat{Client: openai.NewClient(apiKey)}
}

func (o *OpenAIChat) Chat(ctx context.Context, messages []Message, opts ChatOptions) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       opts.Model,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, msg := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	resp, err := o.Client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}
