package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bookify/models"
	"bookify/utils"
)

type slotView struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// AvailabilityHandler returns the free slots for a given date.
// GET /api/availability/:date?duration=60
func (h *HandlerBundle) AvailabilityHandler(c *gin.Context) {
	date := c.Param("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid date", "expected YYYY-MM-DD")
		return
	}

	duration := h.DefaultDurationMinutes
	if raw := c.Query("duration"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			utils.JSONError(c, http.StatusBadRequest, "invalid duration", "expected a positive number of minutes")
			return
		}
		duration = parsed
	}

	set, err := h.Availability.Resolve(c.Request.Context(), date, models.NoWindow, models.NoWindow, duration)
	if err != nil {
		utils.GetLogger().Error("Availability lookup failed",
			zap.String("date", date), zap.Error(err))
		utils.JSONError(c, http.StatusServiceUnavailable, "calendar unavailable", "could not reach the calendar, please retry")
		return
	}

	slots := make([]slotView, 0, len(set.Slots))
	for _, slot := range set.Slots {
		slots = append(slots, slotView{
			Start: slot.Start.Format(time.RFC3339),
			End:   slot.End.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"date":             date,
		"duration_minutes": duration,
		"slots":            slots,
	})
}
