// Package ai holds the language model backends used for freeform replies.
package ai

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider returns one complete reply for a conversation.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// Options tune generation for providers that accept them.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// DefaultOptions keeps replies short and on script.
var DefaultOptions = Options{Temperature: 0.4, MaxTokens: 300}
