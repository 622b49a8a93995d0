package model

import (
	"fmt"

	"convstore/gateway"
)

// ConversationFromRow rebuilds a Conversation from a Conversation table row.
func ConversationFromRow(row gateway.Row) (*Conversation, error) {
	createdAt, err := row.Time("created_at")
	if err != nil {
		return nil, err
	}
	metadata, err := DecodeDocument(row.String("metadata"))
	if err != nil {
		return nil, fmt.Errorf("conversation %s: %w", row.String("conversation_id"), err)
	}
	return &Conversation{
		ConversationID:  row.String("conversation_id"),
		Project:         row.String("project"),
		Brand:           row.String("brand"),
		Sequence:        Sequence(row.String("sequence")),
		Status:          Status(row.String("status")),
		CreatedAt:       createdAt,
		LatestMessageID: row.String("latest_message_id"),
		Metadata:        metadata,
	}, nil
}

// MessageFromRow rebuilds a Message from a Message table row.
func MessageFromRow(row gateway.Row) (Message, error) {
	ts, err := row.Time("timestamp")
	if err != nil {
		return Message{}, err
	}
	metadata, err := DecodeDocument(row.String("metadata"))
	if err != nil {
		return Message{}, fmt.Errorf("message %s: %w", row.String("message_id"), err)
	}
	return Message{
		MessageID:       row.String("message_id"),
		ConversationID:  row.String("conversation_id"),
		Role:            row.String("role"),
		Text:            row.String("text"),
		ParentMessageID: row.String("parent_message_id"),
		Timestamp:       ts,
		Metadata:        metadata,
	}, nil
}
