package models

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"
)

// OllamaChat implements ChatModel against a local Ollama server.
type OllamaChat struct {
	Client *ollama.Client
}

// NewOllamaChat connects to OLLAMA_HOST (default http://localhost:11434).
func NewOllamaChat(host string) (*OllamaChat, error) {
	if host == "" {
		host = os.Getenv("OLLAMA_HOST")
	}
	if host == "" {
		host = "http://localhost:11434"
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	httpClient := &http.Client{Timeout: 60 * time.Second}
	return &OllamaChat{Client: ollama.NewClient(u, httpClient)}, nil
}

func (o *OllamaChat) Chat(ctx context.Context, messages []Message, opts ChatOptions) (string, error) {
	req := &ollama.ChatRequest{
		Model:    opts.Model,
		Messages: make([]ollama.Message, 0, len(messages)),
		Stream:   new(bool),
		Options:  map[string]any{},
	}
	if opts.Temperature > 0 {
		req.Options["temperature"] = opts.Temperature
	}
	if opts.MaxTokens > 0 {
		req.Options["num_predict"] = opts.MaxTokens
	}
	for _, msg := range messages {
		req.Messages = append(req.Messages, ollama.Message{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	var text strings.Builder
	if err := o.Client.Chat(ctx, req, func(resp ollama.ChatResponse) error {
		text.WriteString(resp.Message.Content)
		return nil
	}); err != nil {
		return "", err
	}
	return text.String(), nil
}
