// Package handler contains HTTP request handlers.
// In Gin, a handler is any function with signature func(*gin.Context).
// No need for controller classes — just functions grouped by file.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Greeting is the static response body for GET /. Exported so tests assert
// against the same constant the handler serves.
const Greeting = "Hello, World!"

// GreetingHandler serves the static greeting.
type GreetingHandler struct {
	logger *zap.Logger
}

// NewGreetingHandler creates a new GreetingHandler.
func NewGreetingHandler(logger *zap.Logger) *GreetingHandler {
	return &GreetingHandler{logger: logger}
}

// Greet responds to GET / with the greeting. The handler is stateless and
// performs no fallible work; the log record it emits rides the ambient
// subscriber and never affects the response.
func (h *GreetingHandler) Greet(c *gin.Context) {
	h.logger.Info("saying hello")
	h.logger.Debug("saying hello for debug level only")
	c.String(http.StatusOK, Greeting)
}
