package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"basegraph.app/supportbot/internal/http/handler/webhook"
	"basegraph.app/supportbot/internal/http/middleware"
	"basegraph.app/supportbot/internal/model"
	"basegraph.app/supportbot/internal/service"
)

type RouterConfig struct {
	// TracingServiceName enables otelgin spans when non-empty.
	TracingServiceName string
}

// New builds the engine with the middleware stack and all routes.
func New(services *service.Services, cfg RouterConfig) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.TracingServiceName != "" {
		router.Use(otelgin.Middleware(cfg.TracingServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	SetupRoutes(router, services)
	return router
}

func SetupRoutes(router *gin.Engine, services *service.Services) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	conversation := services.Conversation()
	dispatch := webhook.Dispatch{
		model.EventKindMessage:           webhook.MessageHandler(conversation),
		model.EventKindInteractionAction: webhook.FeedbackHandler(conversation),
	}

	slackHandler := webhook.NewSlackWebhookHandler(services.Verifier(), dispatch)
	SlackRouter(router.Group("/slack"), slackHandler)
}
