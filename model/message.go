package model

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one turn of a conversation. Edits and retries are new messages
// pointing at the original through ParentMessageID.
type Message struct {
	MessageID       string    `json:"message_id"`
	ConversationID  string    `json:"conversation_id"`
	Role            string    `json:"role"`
	Text            string    `json:"text"`
	ParentMessageID string    `json:"parent_message_id,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
	Metadata        Document  `json:"metadata,omitempty"`
}
