package models

import (
	"context"
	"sync"
)

// ScriptedChat is a lightweight ChatModel returning canned responses, useful
// for tests and offline demos. Responses are consumed in order; once
// exhausted the last one repeats.
type ScriptedChat struct {
	mu        sync.Mutex
	Responses []string
	next      int
}

func NewScriptedChat(responses ...string) *ScriptedChat {
	return &ScriptedChat{Responses: responses}
}

func (s *ScriptedChat) Chat(_ context.Context, _ []Message, _ ChatOptions) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Responses) == 0 {
		return "", nil
	}
	resp := s.Responses[s.next]
	if s.next < len(s.Responses)-1 {
		s.next++
	}
	return resp, nil
}

var _ ChatModel = (*ScriptedChat)(nil)
