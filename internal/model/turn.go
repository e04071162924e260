package model

import "time"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry in a chat session's append-only log.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Emotion   Emotion   `json:"emotion,omitempty"`
	Severity  Severity  `json:"severity,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
