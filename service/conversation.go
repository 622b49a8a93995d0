package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"convstore/gateway"
	"convstore/metrics"
	"convstore/model"
	"convstore/platform"

	"github.com/google/uuid"
)

var logger = platform.Logger

var ErrInvalidInput = errors.New("invalid input")

const (
	// DefaultMessageID asks for the latest state of a conversation.
	DefaultMessageID = "latest"
	DefaultMaxRound  = 10
)

const (
	sqlConversationExists = `SELECT conversation_id FROM Conversation WHERE conversation_id = ?`

	sqlInsertDefaultConversation = `
INSERT INTO Conversation (conversation_id, sequence, status, created_at)
VALUES (?, ?, ?, ?)`

	sqlInsertConversation = `
INSERT INTO Conversation (conversation_id, project, brand, sequence, status, created_at, metadata)
VALUES (?, ?, ?, ?, ?, ?, ?)`

	sqlInsertMessage = `
INSERT INTO Message (message_id, conversation_id, role, text, parent_message_id, timestamp, metadata)
VALUES (?, ?, ?, ?, ?, ?, ?)`

	sqlUpdateLatestMessage = `
UPDATE Conversation
SET latest_message_id = ?
WHERE conversation_id = ?`

	sqlSelectConversation = `SELECT * FROM Conversation WHERE conversation_id = ?`

	// Newest first so the query only touches the tail of a long conversation.
	sqlSelectMessagesNewestFirst = `
SELECT * FROM Message
WHERE conversation_id = ?
ORDER BY timestamp DESC
LIMIT ?`

	sqlSelectMessagesOldestFirst = `
SELECT * FROM Message
WHERE conversation_id = ?
ORDER BY timestamp ASC
LIMIT ?`
)

// ConversationService appends messages to conversations and reads them back.
// It adds no locking: concurrent appends to one conversation may leave
// latest_message_id pointing at a message that is not the newest.
type ConversationService struct {
	gw    gateway.Gateway
	now   func() time.Time
	newID func() string
}

func NewConversationService(gw gateway.Gateway) *ConversationService {
	return &ConversationService{
		gw:    gw,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// AppendRequest ...
type AppendRequest struct {
	ConversationID  string         `json:"conversation_id"`
	Role            string         `json:"role"`
	Text            string         `json:"text"`
	ParentMessageID string         `json:"parent_message_id,omitempty"`
	Metadata        model.Document `json:"metadata,omitempty"`
}

// AppendResult ...
type AppendResult struct {
	MessageID           string `json:"message_id"`
	ConversationID      string `json:"conversation_id"`
	ConversationCreated bool   `json:"conversation_created"`
}

// AppendMessage stores a new message, creating the conversation first when it
// does not exist yet, then moves the conversation's latest pointer.
//
// The steps are separate round trips and nothing is rolled back: an error
// after the message insert leaves the message stored without the pointer
// update.
func (s *ConversationService) AppendMessage(ctx context.Context, req AppendRequest) (*AppendResult, error) {
	if strings.TrimSpace(req.Role) == "" {
		return nil, fmt.Errorf("%w: role cannot be empty", ErrInvalidInput)
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrInvalidInput)
	}
	metadata, err := model.EncodeDocument(req.Metadata)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	result, err := s.appendMessage(ctx, req, metadata)
	if err != nil {
		metrics.MessagesAppendedTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.MessagesAppendedTotal.WithLabelValues("ok").Inc()
	return result, nil
}

func (s *ConversationService) appendMessage(ctx context.Context, req AppendRequest, metadata *string) (*AppendResult, error) {
	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = s.newID()
	}

	exists, err := s.conversationExists(ctx, conversationID)
	if err != nil {
		logger.Warnf("[%s] check conversation error, %s", conversationID, err)
		return nil, fmt.Errorf("check conversation %s: %w", conversationID, err)
	}

	created := false
	if !exists {
		conv := model.NewConversation(conversationID, s.now())
		if _, err := s.gw.Execute(ctx, sqlInsertDefaultConversation,
			conv.ConversationID, string(conv.Sequence), string(conv.Status), conv.CreatedAt.UTC()); err != nil {
			logger.Warnf("[%s] create conversation error, %s", conversationID, err)
			return nil, fmt.Errorf("create conversation %s: %w", conversationID, err)
		}
		created = true
	}

	msg := model.Message{
		MessageID:       s.newID(),
		ConversationID:  conversationID,
		Role:            req.Role,
		Text:            req.Text,
		ParentMessageID: req.ParentMessageID,
		Timestamp:       s.now().UTC(),
	}
	if _, err := s.gw.Execute(ctx, sqlInsertMessage,
		msg.MessageID, msg.ConversationID, msg.Role, msg.Text,
		nullable(msg.ParentMessageID), msg.Timestamp, metadata); err != nil {
		logger.Warnf("[%s] insert message error, %s", conversationID, err)
		return nil, fmt.Errorf("insert message: %w", err)
	}

	if _, err := s.gw.Execute(ctx, sqlUpdateLatestMessage, msg.MessageID, conversationID); err != nil {
		logger.Warnf("[%s] message %s stored but latest pointer not updated, %s", conversationID, msg.MessageID, err)
		return nil, fmt.Errorf("update latest message of %s: %w", conversationID, err)
	}

	return &AppendResult{
		MessageID:           msg.MessageID,
		ConversationID:      conversationID,
		ConversationCreated: created,
	}, nil
}

func (s *ConversationService) conversationExists(ctx context.Context, conversationID string) (bool, error) {
	res, err := s.gw.Execute(ctx, sqlConversationExists, conversationID)
	if err != nil {
		return false, err
	}
	return len(res.Rows) > 0, nil
}

// NewConversationRequest ...
type NewConversationRequest struct {
	ConversationID string         `json:"conversation_id"`
	Project        string         `json:"project"`
	Brand          string         `json:"brand"`
	Sequence       model.Sequence `json:"sequence"`
	Metadata       model.Document `json:"metadata"`
}

// CreateConversation inserts a conversation explicitly. It is the only way to
// get a tree conversation; AppendMessage creates sequential ones.
func (s *ConversationService) CreateConversation(ctx context.Context, req NewConversationRequest) (*model.Conversation, error) {
	id := req.ConversationID
	if id == "" {
		id = s.newID()
	}
	conv := model.NewConversation(id, s.now().UTC())
	if req.Sequence != "" {
		if !req.Sequence.Valid() {
			return nil, fmt.Errorf("%w: unknown sequence %q", ErrInvalidInput, req.Sequence)
		}
		conv.Sequence = req.Sequence
	}
	conv.Project = req.Project
	conv.Brand = req.Brand
	conv.Metadata = req.Metadata

	metadata, err := model.EncodeDocument(conv.Metadata)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if _, err := s.gw.Execute(ctx, sqlInsertConversation,
		conv.ConversationID, nullable(conv.Project), nullable(conv.Brand),
		string(conv.Sequence), string(conv.Status), conv.CreatedAt, metadata); err != nil {
		return nil, fmt.Errorf("create conversation %s: %w", id, err)
	}
	conv.Messages = []model.Message{}
	return conv, nil
}

// ReadOptions ...
type ReadOptions struct {
	// MessageID is accepted for point-in-time reads but not used yet; every
	// read starts from the conversation as a whole.
	MessageID string
	MaxRound  int
}

func (o ReadOptions) withDefaults() ReadOptions {
	if o.MessageID == "" {
		o.MessageID = DefaultMessageID
	}
	if o.MaxRound <= 0 {
		o.MaxRound = DefaultMaxRound
	}
	return o
}

// GetConversation loads a conversation and a bounded window of its messages.
//
// A missing conversation returns (nil, nil). A failed conversation fetch
// returns (nil, err), which callers render as not found. A failed message
// fetch is logged and yields an empty message list.
//
// Sequential conversations return the MaxRound most recent messages, oldest
// first. Tree conversations return the MaxRound earliest messages. Messages
// sharing a timestamp come back in whatever order the store returns them.
func (s *ConversationService) GetConversation(ctx context.Context, conversationID string, opts ReadOptions) (*model.Conversation, error) {
	opts = opts.withDefaults()

	res, err := s.gw.Execute(ctx, sqlSelectConversation, conversationID)
	if err != nil {
		metrics.ConversationReadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("fetch conversation %s: %w", conversationID, err)
	}
	row := res.First()
	if row == nil {
		metrics.ConversationReadsTotal.WithLabelValues("not_found").Inc()
		return nil, nil
	}

	conv, err := model.ConversationFromRow(row)
	if err != nil {
		metrics.ConversationReadsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	conv.Messages = s.loadMessages(ctx, conv, opts.MaxRound)

	metrics.ConversationReadsTotal.WithLabelValues("ok").Inc()
	return conv, nil
}

func (s *ConversationService) loadMessages(ctx context.Context, conv *model.Conversation, maxRound int) []model.Message {
	switch conv.Sequence {
	case model.SequenceSequential:
		return sequentialWindow(s.fetchMessages(ctx, sqlSelectMessagesNewestFirst, conv.ConversationID, maxRound))
	case model.SequenceTree:
		return treeWindow(s.fetchMessages(ctx, sqlSelectMessagesOldestFirst, conv.ConversationID, maxRound))
	default:
		logger.Warnf("[%s] unsupported sequence %q, returning no messages", conv.ConversationID, conv.Sequence)
		return []model.Message{}
	}
}

// sequentialWindow turns the newest-first tail into reading order.
func sequentialWindow(newestFirst []model.Message) []model.Message {
	slices.Reverse(newestFirst)
	return newestFirst
}

// treeWindow keeps the oldest-first head as fetched.
func treeWindow(oldestFirst []model.Message) []model.Message {
	return oldestFirst
}

func (s *ConversationService) fetchMessages(ctx context.Context, query, conversationID string, limit int) []model.Message {
	messages := []model.Message{}

	res, err := s.gw.Execute(ctx, query, conversationID, limit)
	if err != nil {
		logger.Warnf("[%s] fetch messages error, %s", conversationID, err)
		return messages
	}
	for _, row := range res.Rows {
		msg, err := model.MessageFromRow(row)
		if err != nil {
			logger.Warnf("[%s] skip malformed message row, %s", conversationID, err)
			continue
		}
		messages = append(messages, msg)
	}
	return messages
}

// IsGatewayFailure reports whether err came from the database gateway.
func IsGatewayFailure(err error) bool {
	return gateway.IsFailure(err)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
