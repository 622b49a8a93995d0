package model

import "time"

type Sequence string

const (
	SequenceSequential Sequence = "sequential"
	SequenceTree       Sequence = "tree"
)

// Valid reports whether s is a traversal mode the reader knows.
func (s Sequence) Valid() bool {
	return s == SequenceSequential || s == SequenceTree
}

type Status string

const (
	StatusActive Status = "active"
	// StatusArchived is reserved for cold storage and has no behaviour yet.
	StatusArchived Status = "archived"
)

// Conversation is one persisted thread. Messages is filled by the reader for
// the duration of a single read and is never written back.
type Conversation struct {
	ConversationID  string    `json:"conversation_id"`
	Project         string    `json:"project,omitempty"`
	Brand           string    `json:"brand,omitempty"`
	Sequence        Sequence  `json:"sequence"`
	Status          Status    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	LatestMessageID string    `json:"latest_message_id,omitempty"`
	Metadata        Document  `json:"metadata,omitempty"`
	Messages        []Message `json:"messages"`
}

// NewConversation returns a conversation with the column defaults applied.
func NewConversation(id string, now time.Time) *Conversation {
	return &Conversation{
		ConversationID: id,
		Sequence:       SequenceSequential,
		Status:         StatusActive,
		CreatedAt:      now,
	}
}
