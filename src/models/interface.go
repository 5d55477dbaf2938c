package models

import (
	"context"
	"strings"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a single conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatOptions carries the generation parameters for a completion call.
type ChatOptions struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// ChatModel is a pluggable chat-completion provider.
type ChatModel interface {
	Chat(ctx context.Context, messages []Message, opts ChatOptions) (string, error)
}

// FormatConversation renders messages as "role: content" lines for inclusion
// in a prompt.
func FormatConversation(messages []Message) string {
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		lines = append(lines, string(msg.Role)+": "+msg.Content)
	}
	return strings.Join(lines, "\n")
}
