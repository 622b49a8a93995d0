package controller

import (
	"net/http"

	"convstore/service"

	"github.com/gin-gonic/gin"
)

type ChatController struct {
	chat            *service.ChatService
	defaultMaxRound int
}

func NewChatController(chat *service.ChatService, defaultMaxRound int) *ChatController {
	if defaultMaxRound <= 0 {
		defaultMaxRound = 50
	}
	return &ChatController{chat: chat, defaultMaxRound: defaultMaxRound}
}

func (ch *ChatController) Chat(c *gin.Context) {
	var input struct {
		ConversationID string `json:"conversation_id"`
		Input          string `json:"input" binding:"required"`
		MaxRound       int    `json:"max_round"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		logger.Warnf("[%s] Invalid input, %s", c.GetString("requestId"), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if input.MaxRound <= 0 {
		input.MaxRound = ch.defaultMaxRound
	}

	reply, err := ch.chat.Reply(c.Request.Context(), input.ConversationID, input.Input, input.MaxRound)
	if err != nil {
		logger.Warnf("[%s] Failed to chat in %s: %s", c.GetString("requestId"), input.ConversationID, err)
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}

	logger.Infof("[%s] Chat reply %s stored in %s", c.GetString("requestId"), reply.AssistantMessageID, reply.ConversationID)
	c.JSON(http.StatusOK, reply)
}
