package controller

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// RegisterRoutes mounts the v1 tool endpoints. chat may be nil when no
// completion backend is configured.
func RegisterRoutes(r gin.IRouter, conv *ConversationController, chat *ChatController) {
	// metadata numbers must survive the round trip unchanged
	binding.EnableDecoderUseNumber = true

	v1 := r.Group("/v1")
	{
		v1.POST("/init", conv.Init)
		v1.GET("/health", conv.Health)

		v1.POST("/messages", conv.PutMessage)
		v1.POST("/conversations", conv.Create)
		v1.GET("/conversations/:id", conv.Get)
		v1.GET("/conversations/:id/raw", conv.Raw)

		if chat != nil {
			v1.POST("/chat", chat.Chat)
		}
	}
}
