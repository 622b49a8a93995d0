package controller

import (
	"errors"
	"net/http"
	"strconv"

	"convstore/gateway"
	"convstore/platform"
	"convstore/service"

	"github.com/gin-gonic/gin"
)

var logger = platform.Logger

const (
	FormatXML  = "xml"
	FormatJSON = "json"
)

// ConversationController exposes the store operations as HTTP tools.
type ConversationController struct {
	conversations   *service.ConversationService
	gw              gateway.Gateway
	defaultMaxRound int
}

func NewConversationController(conversations *service.ConversationService, gw gateway.Gateway, defaultMaxRound int) *ConversationController {
	if defaultMaxRound <= 0 {
		defaultMaxRound = 50
	}
	return &ConversationController{
		conversations:   conversations,
		gw:              gw,
		defaultMaxRound: defaultMaxRound,
	}
}

func (ctrl *ConversationController) Init(c *gin.Context) {
	logger.Infof("[%s] Handling init request", c.GetString("requestId"))

	status, err := service.EnsureSchema(c.Request.Context(), ctrl.gw)
	if err != nil {
		logger.Warnf("[%s] Failed to initialize database: %s", c.GetString("requestId"), err)
		c.JSON(errorStatus(err), gin.H{"error": "Failed to initialize database: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": status.Conversation, "message": status.Message})
}

func (ctrl *ConversationController) PutMessage(c *gin.Context) {
	var input service.AppendRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		logger.Warnf("[%s] Invalid input, %s", c.GetString("requestId"), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	res, err := ctrl.conversations.AppendMessage(c.Request.Context(), input)
	if err != nil {
		logger.Warnf("[%s] Failed to put message into %s: %s", c.GetString("requestId"), input.ConversationID, err)
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}

	logger.Infof("[%s] Message %s stored in %s", c.GetString("requestId"), res.MessageID, res.ConversationID)
	c.JSON(http.StatusOK, gin.H{"message_id": res.MessageID, "conversation_id": res.ConversationID})
}

func (ctrl *ConversationController) Create(c *gin.Context) {
	var input service.NewConversationRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		logger.Warnf("[%s] Invalid input, %s", c.GetString("requestId"), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	conv, err := ctrl.conversations.CreateConversation(c.Request.Context(), input)
	if err != nil {
		logger.Warnf("[%s] Failed to create conversation: %s", c.GetString("requestId"), err)
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, conv)
}

// Get renders the conversation history for a prompt, as XML (default) or JSON.
func (ctrl *ConversationController) Get(c *gin.Context) {
	conversationID := c.Param("id")
	format := c.DefaultQuery("format", FormatXML)
	userInput := c.Query("user_input")

	if format != FormatXML && format != FormatJSON {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported format: " + format + ", only 'xml' and 'json' are supported"})
		return
	}
	opts, ok := ctrl.readOptions(c)
	if !ok {
		return
	}

	conv, err := ctrl.conversations.GetConversation(c.Request.Context(), conversationID, opts)
	if err != nil {
		// rendered as not found
		logger.Warnf("[%s] Failed to load conversation %s: %s", c.GetString("requestId"), conversationID, err)
		conv = nil
	}

	if format == FormatJSON {
		c.JSON(http.StatusOK, gin.H{"conversation": service.RenderJSON(conv, userInput)})
		return
	}
	c.String(http.StatusOK, service.WrapHistoryXML(service.RenderXML(conv, ""), userInput))
}

// Raw returns the loaded conversation object with its message window.
func (ctrl *ConversationController) Raw(c *gin.Context) {
	conversationID := c.Param("id")
	opts, ok := ctrl.readOptions(c)
	if !ok {
		return
	}

	conv, err := ctrl.conversations.GetConversation(c.Request.Context(), conversationID, opts)
	if err != nil {
		logger.Warnf("[%s] Failed to load conversation %s: %s", c.GetString("requestId"), conversationID, err)
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	if conv == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (ctrl *ConversationController) Health(c *gin.Context) {
	if err := service.HealthTask(c.Request.Context(), ctrl.gw); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (ctrl *ConversationController) readOptions(c *gin.Context) (service.ReadOptions, bool) {
	opts := service.ReadOptions{
		MessageID: c.DefaultQuery("message_id", service.DefaultMessageID),
		MaxRound:  ctrl.defaultMaxRound,
	}
	if raw := c.Query("max_round"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "max_round must be a positive integer"})
			return opts, false
		}
		opts.MaxRound = n
	}
	return opts, true
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case service.IsGatewayFailure(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

