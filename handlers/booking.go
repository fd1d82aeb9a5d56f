package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bookify/services/calendar"
	"bookify/utils"
)

// DeleteBookingHandler cancels an event by its calendar id.
// DELETE /api/booking/:eventID
func (h *HandlerBundle) DeleteBookingHandler(c *gin.Context) {
	eventID := c.Param("eventID")
	if eventID == "" {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", "event id is required")
		return
	}

	if err := h.Calendar.DeleteEvent(c.Request.Context(), eventID); err != nil {
		if errors.Is(err, calendar.ErrEventNotFound) {
			utils.JSONError(c, http.StatusNotFound, "event not found", "no event exists with that id")
			return
		}
		utils.GetLogger().Error("Event deletion failed",
			zap.String("eventID", eventID), zap.Error(err))
		utils.JSONError(c, http.StatusServiceUnavailable, "calendar unavailable", "could not reach the calendar, please retry")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cancelled", "event_id": eventID})
}
