package models

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiChat implements ChatModel using Google's generative AI API.
type GeminiChat struct {
	Client *genai.Client
}

// NewGeminiChat constructs a client. An empty key falls back to
// GOOGLE_API_KEY (then GEMINI_API_KEY) from the environment.
func NewGeminiChat(ctx context.Context, apiKey string) (*GeminiChat, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("missing GOOGLE_API_KEY or GEMINI_API_KEY")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini init: %w", err)
	}
	return &GeminiChat{Client: client}, nil
}

func (g *GeminiChat) Chat(ctx context.Context, messages []Message, opts ChatOptions) (string, error) {
	model := g.Client.GenerativeModel(opts.Model)
	if opts.Temperature > 0 {
		model.SetTemperature(opts.Temperature)
	}
	if opts.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(opts.MaxTokens))
	}
	history := make([]*genai.Content, 0, len(messages))
	var last string
	for i, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(msg.Content)}}
		default:
			if i == len(messages)-1 {
				last = msg.Content
				continue
			}
			role := "user"
			if msg.Role == RoleAssistant {
				role = "model"
			}
			history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(msg.Content)}})
		}
	}
	cs := model.StartChat()
	cs.History = history
	resp, err := cs.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini: empty response")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String(), nil
}

// Close releases the underlying client.
func (g *GeminiChat) Close() error {
	if g == nil || g.Client == nil {
		return nil
	}
	return g.Client.Close()
}
