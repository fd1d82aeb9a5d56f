package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookify/models"
)

type stubBookingService struct {
	result  *models.BookingResult
	err     error
	lastMsg models.RawMessage
}

func (s *stubBookingService) ProcessMessage(ctx context.Context, msg models.RawMessage) (*models.BookingResult, error) {
	s.lastMsg = msg
	if s.result != nil {
		res := *s.result
		res.ConversationID = msg.ConversationID
		return &res, s.err
	}
	return nil, s.err
}

func newChatRouter(svc *stubBookingService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	hb := &HandlerBundle{Booking: svc}
	r := gin.New()
	r.POST("/api/chat", hb.ChatHandler)
	return r
}

func TestChatHandlerHappyPath(t *testing.T) {
	svc := &stubBookingService{result: &models.BookingResult{
		Status:  models.StatusConfirmed,
		EventID: "ev1",
		Message: "booked",
	}}
	router := newChatRouter(svc)

	body := `{"message":"book a meeting tomorrow at 2pm","conversation_id":"c1"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var res models.BookingResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, models.StatusConfirmed, res.Status)
	assert.Equal(t, "c1", res.ConversationID)
	assert.Equal(t, "c1", svc.lastMsg.ConversationID)
	assert.Equal(t, "book a meeting tomorrow at 2pm", svc.lastMsg.Text)
}

func TestChatHandlerGeneratesConversationID(t *testing.T) {
	svc := &stubBookingService{result: &models.BookingResult{Status: models.StatusConfirmed}}
	router := newChatRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, svc.lastMsg.ConversationID)
}

func TestChatHandlerRejectsEmptyMessage(t *testing.T) {
	router := newChatRouter(&stubBookingService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"conversation_id":"c1"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
