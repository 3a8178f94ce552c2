// Package ai holds the provider-neutral pieces of the model layer: chat
// messages, the single-call client contract and the ordered model fallback.
package ai

import (
	"context"
	"strings"
)

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn sent to a model.
type Message struct {
	Role    Role
	Content string
}

// Messages is an ordered chat transcript.
type Messages []Message

// System joins the content of every system message, in order.
func (m Messages) System() string {
	parts := make([]string, 0, 1)
	for _, msg := range m {
		if msg.Role == RoleSystem && strings.TrimSpace(msg.Content) != "" {
			parts = append(parts, msg.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Conversation returns the non-system messages.
func (m Messages) Conversation() Messages {
	out := make(Messages, 0, len(m))
	for _, msg := range m {
		if msg.Role != RoleSystem {
			out = append(out, msg)
		}
	}
	return out
}

// ModelClient performs exactly one completion call against one model.
//
// Failures are reported as *ModelInvocationError. An empty completion text is a
// success; only a missing completion is an error.
type ModelClient interface {
	Invoke(ctx context.Context, messages Messages, model string, temperature float32) (string, error)
	Provider() string
}
