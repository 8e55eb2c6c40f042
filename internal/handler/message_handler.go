package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fleveque/greeting-service/internal/storage"
)

// MessageHandler serves the provisioned message from the database.
type MessageHandler struct {
	messages storage.MessageRepository
	logger   *zap.Logger
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(messages storage.MessageRepository, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{messages: messages, logger: logger}
}

// GetMessage responds to GET /message with the seeded row's text.
// A missing row means provisioning never ran — that's a 404, not a 500.
func (h *MessageHandler) GetMessage(c *gin.Context) {
	h.logger.Info("getting a message from the database")

	msg, err := h.messages.Latest(c.Request.Context())
	if errors.Is(err, storage.ErrNoMessage) {
		c.String(http.StatusNotFound, "no message provisioned")
		return
	}
	if err != nil {
		h.logger.Error("reading message", zap.Error(err))
		c.String(http.StatusInternalServerError, "something went wrong")
		return
	}

	h.logger.Info("got message from database", zap.String("msg", msg))
	c.String(http.StatusOK, msg)
}
