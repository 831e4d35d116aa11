package types

import "time"

// ConversationStatus is the lifecycle state of a conversation.
type ConversationStatus string

const (
	ConversationActive    ConversationStatus = "active"
	ConversationCompleted ConversationStatus = "completed"
	ConversationEscalated ConversationStatus = "escalated"
)

// MessageRole identifies the author of a message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Conversation is the per-session fact state. Facts are mutated once per
// turn; the core never deletes a conversation.
type Conversation struct {
	ID            string
	Status        ConversationStatus
	Facts         Facts
	MissingFields []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Message belongs to exactly one conversation. Append-only; creation time
// is the canonical ordering. Metadata (citations, classified intent) is
// attached only to assistant messages.
type Message struct {
	ID             string
	ConversationID string
	Role           MessageRole
	Content        string
	Metadata       MessageMeta
	CreatedAt      time.Time
}

// MessageMeta is the side-channel payload on assistant messages.
type MessageMeta struct {
	Citations []Citation `json:"citations,omitempty"`
	Intent    string     `json:"intent,omitempty"`
}
