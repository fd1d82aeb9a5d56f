package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"bookify/models"
	"bookify/services/calendar"
	"bookify/utils"
)

// Turn states. received→extracted→resolved→mutating→done is the happy path;
// failed and awaiting_clarification are the other terminal states for a turn.
const (
	stateReceived  = "received"
	stateExtracted = "extracted"
	stateResolved  = "resolved"
	stateMutating  = "mutating"
	stateDone      = "done"
	stateFailed    = "failed"
	stateAwaiting  = "awaiting_clarification"
)

// historyCap bounds the stored conversation history; the extractor reads an
// even smaller window out of it.
const historyCap = 20

// calendarFailureMessage is deliberately distinct from validation responses:
// it signals a remote problem, not something the user can rephrase around.
const calendarFailureMessage = "Something went wrong while talking to the calendar. Please try again in a moment."

// ProcessMessage runs one chat turn through the state machine. Terminal
// outcomes are always expressed in the BookingResult; the error return is
// reserved for caller-cancelled contexts.
func (s *DefaultBookingService) ProcessMessage(ctx context.Context, msg models.RawMessage) (*models.BookingResult, error) {
	logger := utils.GetLogger()
	logger.Debug("turn state", zap.String("state", stateReceived),
		zap.String("conversationID", msg.ConversationID))

	conv, err := s.Conversations.Get(ctx, msg.ConversationID)
	if err != nil {
		logger.Warn("failed to load conversation, starting fresh",
			zap.String("conversationID", msg.ConversationID), zap.Error(err))
		conv = &models.Conversation{}
	}

	extracted, err := s.extractWithRetry(ctx, msg, conv)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Error("intent extraction failed", zap.String("state", stateFailed),
			zap.String("conversationID", msg.ConversationID), zap.Error(err))
		return s.finishTurn(ctx, msg, conv, &models.BookingResult{
			Status:         models.StatusFailed,
			Message:        "I couldn't process that message right now. Please try again in a moment.",
			ConversationID: msg.ConversationID,
			RequiresInput:  true,
		}), nil
	}
	logger.Debug("turn state", zap.String("state", stateExtracted),
		zap.String("kind", string(extracted.Kind)),
		zap.Float64("confidence", extracted.Confidence))

	var result *models.BookingResult
	if extracted.Kind == models.IntentList && extracted.Confidence >= s.Policy.ConfidenceThreshold {
		// LIST bypasses slot computation entirely.
		result = s.handleList(ctx, msg, extracted, conv)
	} else {
		result = s.handleDecision(ctx, msg, extracted, conv)
	}

	return s.finishTurn(ctx, msg, conv, result), nil
}

func (s *DefaultBookingService) handleDecision(ctx context.Context, msg models.RawMessage, it models.Intent, conv *models.Conversation) *models.BookingResult {
	logger := utils.GetLogger()

	var avail models.AvailabilitySet
	if it.Kind == models.IntentBook && it.Confidence >= s.Policy.ConfidenceThreshold {
		err := s.withRetry(ctx, "freebusy", func(callCtx context.Context) error {
			var rerr error
			avail, rerr = s.Availability.Resolve(callCtx, it.Date, models.NoWindow, models.NoWindow, it.DurationMinutes)
			return rerr
		})
		if err != nil {
			logger.Error("availability resolution failed", zap.String("state", stateFailed), zap.Error(err))
			return &models.BookingResult{
				Status:         models.StatusFailed,
				Message:        calendarFailureMessage,
				ConversationID: msg.ConversationID,
				RequiresInput:  true,
			}
		}
	}

	decision := Reconcile(it, avail, s.Policy)
	logger.Debug("turn state", zap.String("state", stateResolved),
		zap.String("decision", string(decision.Kind)))

	switch decision.Kind {
	case DecisionClarify:
		return &models.BookingResult{
			Status:         models.StatusClarificationNeeded,
			Message:        decision.Question,
			ConversationID: msg.ConversationID,
			RequiresInput:  true,
		}
	case DecisionPropose:
		return &models.BookingResult{
			Status:         models.StatusClarificationNeeded,
			Message:        proposalMessage(decision.Candidates, it.HasWindow()),
			SuggestedSlots: decision.Candidates,
			ConversationID: msg.ConversationID,
			RequiresInput:  true,
		}
	case DecisionReject:
		return &models.BookingResult{
			Status:         models.StatusConflict,
			Message:        decision.Reason,
			ConversationID: msg.ConversationID,
			RequiresInput:  true,
		}
	case DecisionProceed:
		if it.Kind == models.IntentDelete {
			eventID, res := s.resolveDeleteTarget(ctx, msg, it, conv)
			if res != nil {
				return res
			}
			decision.EventID = eventID
		}
		return s.mutate(ctx, msg, it, decision)
	}

	return &models.BookingResult{
		Status:         models.StatusFailed,
		Message:        "I couldn't work out what to do with that request.",
		ConversationID: msg.ConversationID,
		RequiresInput:  true,
	}
}

// mutate issues the single calendar mutation behind the idempotency cache.
// Duplicate submissions with the same key wait for the first one's result
// instead of reaching the calendar again.
func (s *DefaultBookingService) mutate(ctx context.Context, msg models.RawMessage, it models.Intent, decision Decision) *models.BookingResult {
	logger := utils.GetLogger()
	plan := BuildPlan(msg.ConversationID, it, decision)

	entry, owner := s.Idempotency.Begin(plan.IdempotencyKey)
	if !owner {
		logger.Info("duplicate submission, serving cached result",
			zap.String("idempotencyKey", plan.IdempotencyKey))
		cached, err := entry.Wait(ctx)
		if err != nil {
			return &models.BookingResult{
				Status:         models.StatusFailed,
				Message:        "The request was cancelled before the original booking finished.",
				ConversationID: msg.ConversationID,
				RequiresInput:  true,
			}
		}
		dup := *cached
		dup.ConversationID = msg.ConversationID
		return &dup
	}

	logger.Debug("turn state", zap.String("state", stateMutating),
		zap.String("action", string(plan.Action)),
		zap.String("idempotencyKey", plan.IdempotencyKey))

	// Once dispatched, the mutation is never cancelled by the caller: the
	// turn always finishes and records its key, so a client retry cannot
	// double-book.
	result := s.dispatch(msg.ConversationID, plan)
	s.Idempotency.Complete(entry, result)

	state := stateDone
	if result.Status == models.StatusFailed {
		state = stateFailed
	}
	logger.Debug("turn state", zap.String("state", state), zap.String("status", string(result.Status)))
	return result
}

func (s *DefaultBookingService) dispatch(conversationID string, plan models.BookingPlan) *models.BookingResult {
	ctx := context.Background()

	switch plan.Action {
	case models.PlanCreate:
		title := plan.Title
		if title == "" {
			title = "Meeting"
		}
		var event *models.Event
		err := s.withRetry(ctx, "create event", func(callCtx context.Context) error {
			var rerr error
			event, rerr = s.Calendar.CreateEvent(callCtx, title, *plan.Slot, plan.Attendees, "Booked via assistant")
			return rerr
		})
		if err != nil {
			return &models.BookingResult{
				Status:         models.StatusFailed,
				Message:        calendarFailureMessage,
				ConversationID: conversationID,
				RequiresInput:  true,
			}
		}
		return &models.BookingResult{
			Status:         models.StatusConfirmed,
			EventID:        event.ID,
			Message:        confirmationMessage(title, *plan.Slot),
			CalendarLink:   event.Link,
			ConversationID: conversationID,
		}

	case models.PlanDelete:
		err := s.withRetry(ctx, "delete event", func(callCtx context.Context) error {
			return s.Calendar.DeleteEvent(callCtx, plan.EventID)
		})
		if errors.Is(err, calendar.ErrEventNotFound) {
			return &models.BookingResult{
				Status:         models.StatusConflict,
				Message:        "I couldn't find that event on the calendar. It may already be cancelled.",
				ConversationID: conversationID,
				RequiresInput:  true,
			}
		}
		if err != nil {
			return &models.BookingResult{
				Status:         models.StatusFailed,
				Message:        calendarFailureMessage,
				ConversationID: conversationID,
				RequiresInput:  true,
			}
		}
		return &models.BookingResult{
			Status:         models.StatusConfirmed,
			EventID:        plan.EventID,
			Message:        deletionMessage(plan.EventID),
			ConversationID: conversationID,
		}
	}

	return &models.BookingResult{
		Status:         models.StatusFailed,
		Message:        "Unknown mutation.",
		ConversationID: conversationID,
		RequiresInput:  true,
	}
}

// handleList fetches the day's events directly and records a title→id index
// in the conversation so follow-up cancellations can name events by title.
func (s *DefaultBookingService) handleList(ctx context.Context, msg models.RawMessage, it models.Intent, conv *models.Conversation) *models.BookingResult {
	day := s.dayStart(it.Date)
	events, err := s.listEvents(ctx, day)
	if err != nil {
		return &models.BookingResult{
			Status:         models.StatusFailed,
			Message:        calendarFailureMessage,
			ConversationID: msg.ConversationID,
			RequiresInput:  true,
		}
	}

	if len(events) > 0 {
		if conv.EventIndex == nil {
			conv.EventIndex = make(map[string]string)
		}
		for _, event := range events {
			conv.EventIndex[strings.ToLower(event.Title)] = event.ID
		}
	}

	return &models.BookingResult{
		Status:         models.StatusConfirmed,
		Message:        listMessage(events, day),
		ConversationID: msg.ConversationID,
	}
}

// resolveDeleteTarget fills in the event id for a deletion: "last" means the
// day's most recent event, and a bare title is resolved through the
// conversation's event index, then through a title scan of the day's events.
// A non-nil result short-circuits the deletion.
func (s *DefaultBookingService) resolveDeleteTarget(ctx context.Context, msg models.RawMessage, it models.Intent, conv *models.Conversation) (string, *models.BookingResult) {
	if it.TargetEventID != "" && it.TargetEventID != "last" {
		return it.TargetEventID, nil
	}

	day := s.dayStart(it.Date)
	if it.TargetEventID == "last" {
		events, err := s.listEvents(ctx, day)
		if err != nil {
			return "", &models.BookingResult{
				Status:         models.StatusFailed,
				Message:        calendarFailureMessage,
				ConversationID: msg.ConversationID,
				RequiresInput:  true,
			}
		}
		if len(events) == 0 {
			return "", &models.BookingResult{
				Status:         models.StatusConflict,
				Message:        "I couldn't find any recent event to cancel.",
				ConversationID: msg.ConversationID,
				RequiresInput:  true,
			}
		}
		return events[len(events)-1].ID, nil
	}

	title := strings.ToLower(it.Title)

	var indexed []string
	for name, id := range conv.EventIndex {
		if strings.Contains(name, title) {
			indexed = append(indexed, id)
		}
	}
	if len(indexed) == 1 {
		return indexed[0], nil
	}

	events, err := s.listEvents(ctx, day)
	if err != nil {
		return "", &models.BookingResult{
			Status:         models.StatusFailed,
			Message:        calendarFailureMessage,
			ConversationID: msg.ConversationID,
			RequiresInput:  true,
		}
	}

	var matches []models.Event
	for _, event := range events {
		if strings.Contains(strings.ToLower(event.Title), title) {
			matches = append(matches, event)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0].ID, nil
	case 0:
		return "", &models.BookingResult{
			Status:         models.StatusConflict,
			Message:        "I couldn't find an event matching that description. Try listing your events first.",
			ConversationID: msg.ConversationID,
			RequiresInput:  true,
		}
	default:
		return "", &models.BookingResult{
			Status:         models.StatusClarificationNeeded,
			Message:        "I found several events with that title. Could you list them and tell me the event id?",
			ConversationID: msg.ConversationID,
			RequiresInput:  true,
		}
	}
}

func (s *DefaultBookingService) extractWithRetry(ctx context.Context, msg models.RawMessage, conv *models.Conversation) (models.Intent, error) {
	var it models.Intent
	err := s.withRetry(ctx, "intent extraction", func(callCtx context.Context) error {
		var rerr error
		it, rerr = s.Extractor.Extract(callCtx, msg, conv)
		return rerr
	})
	return it, err
}

// withRetry runs fn under the per-call timeout, retrying transient failures
// with exponential backoff. Deterministic outcomes (event not found) are
// never retried.
func (s *DefaultBookingService) withRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	logger := utils.GetLogger()

	var err error
	for attempt := 0; attempt <= s.MaxRetries; attempt++ {
		if attempt > 0 {
			s.sleep(s.BackoffBase << (attempt - 1))
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		callCtx, cancel := context.WithTimeout(ctx, s.CallTimeout)
		err = fn(callCtx)
		cancel()

		if err == nil {
			return nil
		}
		if errors.Is(err, calendar.ErrEventNotFound) {
			return err
		}
		logger.Warn("operation failed",
			zap.String("op", op), zap.Int("attempt", attempt), zap.Error(err))
	}
	return err
}

// finishTurn appends the turn to the conversation history and persists it.
// Store failures are logged, not surfaced; the user still gets the result.
func (s *DefaultBookingService) finishTurn(ctx context.Context, msg models.RawMessage, conv *models.Conversation, result *models.BookingResult) *models.BookingResult {
	if result.ConversationID == "" {
		result.ConversationID = msg.ConversationID
	}

	now := s.now()
	conv.Turns = append(conv.Turns,
		models.ConversationTurn{Role: "user", Content: msg.Text, Timestamp: now},
		models.ConversationTurn{Role: "assistant", Content: result.Message, Timestamp: now},
	)
	if len(conv.Turns) > historyCap {
		conv.Turns = conv.Turns[len(conv.Turns)-historyCap:]
	}

	if err := s.Conversations.Save(ctx, msg.ConversationID, conv); err != nil {
		utils.GetLogger().Warn("failed to save conversation",
			zap.String("conversationID", msg.ConversationID), zap.Error(err))
	}
	return result
}

func (s *DefaultBookingService) listEvents(ctx context.Context, day time.Time) ([]models.Event, error) {
	var events []models.Event
	err := s.withRetry(ctx, "list events", func(callCtx context.Context) error {
		var rerr error
		events, rerr = s.Calendar.ListEvents(callCtx, day, day.AddDate(0, 0, 1))
		return rerr
	})
	return events, err
}

// dayStart returns midnight of the given date (or today when empty) in the
// scheduling timezone.
func (s *DefaultBookingService) dayStart(date string) time.Time {
	loc := s.Policy.Location
	if date != "" {
		if day, err := time.ParseInLocation("2006-01-02", date, loc); err == nil {
			return day
		}
	}
	now := s.now().In(loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
}

func (s *DefaultBookingService) sleep(d time.Duration) {
	if s.Sleep != nil {
		s.Sleep(d)
		return
	}
	time.Sleep(d)
}

func (s *DefaultBookingService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
