// Package server configures the HTTP server and routes.
package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fleveque/greeting-service/internal/config"
	"github.com/fleveque/greeting-service/internal/handler"
	"github.com/fleveque/greeting-service/internal/middleware"
	"github.com/fleveque/greeting-service/internal/storage"
)

// Deps holds the optional collaborators routes may need.
// A nil Messages means the service runs without storage and the /message
// route simply isn't registered.
type Deps struct {
	Messages storage.MessageRepository
}

// RegisterRoutes sets up all HTTP routes on the Gin engine.
// In Go, we pass dependencies explicitly — no DI container, no magic.
// Each handler gets exactly the dependencies it needs.
func RegisterRoutes(r *gin.Engine, cfg *config.Config, deps Deps, logger *zap.Logger) {
	greetingHandler := handler.NewGreetingHandler(logger)
	healthHandler := handler.NewHealthHandler()

	r.Use(middleware.RequestLog(logger))
	r.Use(middleware.RateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))

	r.GET("/", greetingHandler.Greet)
	r.GET("/healthz", healthHandler.Healthz)

	if deps.Messages != nil {
		messageHandler := handler.NewMessageHandler(deps.Messages, logger)
		r.GET("/message", messageHandler.GetMessage)
	}
}
