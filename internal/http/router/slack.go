package router

import (
	"github.com/gin-gonic/gin"

	"basegraph.app/supportbot/internal/http/handler/webhook"
)

func SlackRouter(router *gin.RouterGroup, handler *webhook.SlackWebhookHandler) {
	router.POST("/events", handler.HandleEvent)
}
