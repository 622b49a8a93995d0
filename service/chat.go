package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"convstore/model"
)

// Completer produces the next assistant turn for a rendered history.
type Completer interface {
	Complete(ctx context.Context, turns []model.Turn) (string, error)
}

type ChatService struct {
	conversations *ConversationService
	llm           Completer
}

func NewChatService(conversations *ConversationService, llm Completer) *ChatService {
	return &ChatService{conversations: conversations, llm: llm}
}

// ChatReply ...
type ChatReply struct {
	ConversationID     string `json:"conversation_id"`
	UserMessageID      string `json:"user_message_id"`
	AssistantMessageID string `json:"assistant_message_id"`
	Content            string `json:"content"`
}

// Reply stores userInput, sends the bounded history to the model and stores
// the answer as a child of the user message. If the completion fails the
// user message stays stored.
func (s *ChatService) Reply(ctx context.Context, conversationID, userInput string, maxRound int) (*ChatReply, error) {
	if strings.TrimSpace(userInput) == "" {
		return nil, fmt.Errorf("%w: user input cannot be empty", ErrInvalidInput)
	}

	userMsg, err := s.conversations.AppendMessage(ctx, AppendRequest{
		ConversationID: conversationID,
		Role:           model.RoleUser,
		Text:           userInput,
	})
	if err != nil {
		return nil, err
	}

	conv, err := s.conversations.GetConversation(ctx, userMsg.ConversationID, ReadOptions{MaxRound: maxRound})
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, errors.New("conversation disappeared after append")
	}

	content, err := s.llm.Complete(ctx, RenderJSON(conv, ""))
	if err != nil {
		logger.Warnf("[%s] completion error, %s", userMsg.ConversationID, err)
		return nil, fmt.Errorf("completion: %w", err)
	}
	logger.Infof("[%s] finished content: %d chars", userMsg.ConversationID, len(content))

	assistantMsg, err := s.conversations.AppendMessage(ctx, AppendRequest{
		ConversationID:  userMsg.ConversationID,
		Role:            model.RoleAssistant,
		Text:            content,
		ParentMessageID: userMsg.MessageID,
	})
	if err != nil {
		return nil, err
	}

	return &ChatReply{
		ConversationID:     userMsg.ConversationID,
		UserMessageID:      userMsg.MessageID,
		AssistantMessageID: assistantMsg.MessageID,
		Content:            content,
	}, nil
}
