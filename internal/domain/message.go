// Package domain holds the conversation types shared by the agent, the
// session manager and the gateway.
package domain

import (
	"strings"
	"time"
)

// Role constants for messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is a single turn in a conversation (used in session history).
type Message struct {
	Role      string    `json:"role"` // "user", "assistant", "system"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversational reports whether m is a user or assistant message with
// content. System notices stay in the local log but are never sent to the
// model.
func (m Message) Conversational() bool {
	if strings.TrimSpace(m.Content) == "" {
		return false
	}
	return m.Role == RoleUser || m.Role == RoleAssistant
}

// Tail returns the last n messages of msgs, or all of them when n <= 0 or
// there are fewer than n.
func Tail(msgs []Message, n int) []Message {
	if n <= 0 || len(msgs) <= n {
		return msgs
	}
	return msgs[len(msgs)-n:]
}
