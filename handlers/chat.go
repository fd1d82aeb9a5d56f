package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"bookify/models"
	"bookify/utils"
)

// ChatRequest is the payload for POST /api/chat.
type ChatRequest struct {
	Message        string `json:"message" binding:"required"`
	ConversationID string `json:"conversation_id"`
}

// ChatHandler runs one conversational turn through the booking service.
func (h *HandlerBundle) ChatHandler(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.New().String()
	}

	msg := models.RawMessage{
		Text:           req.Message,
		ConversationID: conversationID,
		Timestamp:      time.Now(),
	}

	result, err := h.Booking.ProcessMessage(c.Request.Context(), msg)
	if err != nil {
		utils.GetLogger().Error("Chat turn failed",
			zap.String("conversationID", conversationID), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "failed to process message", err.Error())
		return
	}

	c.JSON(http.StatusOK, result)
}
