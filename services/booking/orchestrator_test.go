package booking

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookify/models"
	"bookify/services/availability"
	"bookify/services/calendar"
	"bookify/services/intent"
)

// scriptedLLM returns its replies in order, repeating the last one.
type scriptedLLM struct {
	replies []string
	errs    []error
	calls   int
}

func (f *scriptedLLM) GenerateContent(ctx context.Context, prompt string) (string, error) {
	i := f.calls
	f.calls++
	if i >= len(f.replies) {
		i = len(f.replies) - 1
	}
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return f.replies[i], err
}

type stubCalendar struct {
	mu sync.Mutex

	busy        []models.Slot
	events      []models.Event
	freeBusyErr error
	createErr   error
	deleteErr   error

	created []models.Slot
	deleted []string
}

func (f *stubCalendar) FreeBusy(ctx context.Context, start, end time.Time) ([]models.Slot, error) {
	return f.busy, f.freeBusyErr
}

func (f *stubCalendar) ListEvents(ctx context.Context, start, end time.Time) ([]models.Event, error) {
	return f.events, nil
}

func (f *stubCalendar) CreateEvent(ctx context.Context, title string, slot models.Slot, attendees []string, description string) (*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, slot)
	return &models.Event{ID: "ev-new", Title: title, Start: slot.Start, End: slot.End, Link: "https://calendar.example/ev-new"}, nil
}

func (f *stubCalendar) DeleteEvent(ctx context.Context, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, eventID)
	return nil
}

type memoryStore struct {
	mu    sync.Mutex
	convs map[string]*models.Conversation
}

func newMemoryStore() *memoryStore {
	return &memoryStore{convs: make(map[string]*models.Conversation)}
}

func (m *memoryStore) Get(ctx context.Context, id string) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if conv, ok := m.convs[id]; ok {
		return conv, nil
	}
	return &models.Conversation{}, nil
}

func (m *memoryStore) Save(ctx context.Context, id string, conv *models.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.convs[id] = conv
	return nil
}

func (m *memoryStore) Clear(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.convs, id)
	return nil
}

func fixedNow() time.Time {
	return time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
}

func newService(llm intent.Client, cal calendar.Service, store *memoryStore) *DefaultBookingService {
	extractor := &intent.Extractor{
		LLM:                 llm,
		Location:            time.UTC,
		ConfidenceThreshold: 0.5,
		DefaultDuration:     60,
		HistoryWindow:       5,
		Now:                 fixedNow,
	}
	resolver := &availability.Resolver{
		Calendar:           cal,
		Location:           time.UTC,
		WorkStart:          540,
		WorkEnd:            1080,
		GranularityMinutes: 30,
		LookaheadDays:      7,
		Now:                fixedNow,
	}
	return &DefaultBookingService{
		Extractor:     extractor,
		Availability:  resolver,
		Calendar:      cal,
		Conversations: store,
		Idempotency:   NewIdempotencyCache(32),
		Policy: Policy{
			ConfidenceThreshold: 0.5,
			MaxCandidates:       3,
			AllowFallback:       true,
			Location:            time.UTC,
		},
		CallTimeout: time.Second,
		MaxRetries:  2,
		BackoffBase: time.Millisecond,
		Sleep:       func(time.Duration) {},
		Now:         fixedNow,
	}
}

const bookReply = `{"kind":"book","date":"2025-03-11","start_time":"14:00","duration_minutes":60,"title":"Team sync","confidence":0.9}`

func TestProcessMessageBooksFreeSlot(t *testing.T) {
	llm := &scriptedLLM{replies: []string{bookReply}}
	cal := &stubCalendar{}
	store := newMemoryStore()
	svc := newService(llm, cal, store)

	res, err := svc.ProcessMessage(context.Background(),
		models.RawMessage{Text: "book a team sync tomorrow at 2pm", ConversationID: "c1"})
	require.NoError(t, err)

	assert.Equal(t, models.StatusConfirmed, res.Status)
	assert.Equal(t, "ev-new", res.EventID)
	assert.NotEmpty(t, res.CalendarLink)
	assert.Contains(t, res.Message, "Team sync")
	require.Len(t, cal.created, 1)
	assert.Equal(t, time.Date(2025, 3, 11, 14, 0, 0, 0, time.UTC), cal.created[0].Start)

	// Both sides of the turn are persisted.
	conv := store.convs["c1"]
	require.NotNil(t, conv)
	require.Len(t, conv.Turns, 2)
	assert.Equal(t, "user", conv.Turns[0].Role)
	assert.Equal(t, "assistant", conv.Turns[1].Role)
}

func TestProcessMessageProposesWhenRequestedTimeBusy(t *testing.T) {
	llm := &scriptedLLM{replies: []string{bookReply}}
	cal := &stubCalendar{busy: []models.Slot{{
		Start: time.Date(2025, 3, 11, 14, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 3, 11, 15, 0, 0, 0, time.UTC),
	}}}
	svc := newService(llm, cal, newMemoryStore())

	res, err := svc.ProcessMessage(context.Background(),
		models.RawMessage{Text: "book a team sync tomorrow at 2pm", ConversationID: "c1"})
	require.NoError(t, err)

	assert.Equal(t, models.StatusClarificationNeeded, res.Status)
	assert.True(t, res.RequiresInput)
	require.Len(t, res.SuggestedSlots, 3)
	assert.Equal(t, time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC), res.SuggestedSlots[0].Start)
	assert.Empty(t, cal.created, "no event may be created on a conflict")
}

func TestProcessMessageRetriesMalformedRepliesThenFails(t *testing.T) {
	llm := &scriptedLLM{replies: []string{"sure, booking that now!"}}
	svc := newService(llm, &stubCalendar{}, newMemoryStore())

	res, err := svc.ProcessMessage(context.Background(),
		models.RawMessage{Text: "book a meeting", ConversationID: "c1"})
	require.NoError(t, err)

	assert.Equal(t, models.StatusFailed, res.Status)
	assert.True(t, res.RequiresInput)
	assert.Equal(t, 3, llm.calls, "initial attempt plus two retries")
}

func TestProcessMessageRecoversAfterOneMalformedReply(t *testing.T) {
	llm := &scriptedLLM{replies: []string{"not json", bookReply}}
	cal := &stubCalendar{}
	svc := newService(llm, cal, newMemoryStore())

	res, err := svc.ProcessMessage(context.Background(),
		models.RawMessage{Text: "book a team sync tomorrow at 2pm", ConversationID: "c1"})
	require.NoError(t, err)

	assert.Equal(t, models.StatusConfirmed, res.Status)
	assert.Equal(t, 2, llm.calls)
}

func TestProcessMessageDuplicateSubmissionHitsCacheOnce(t *testing.T) {
	llm := &scriptedLLM{replies: []string{bookReply}}
	cal := &stubCalendar{}
	svc := newService(llm, cal, newMemoryStore())

	msg := models.RawMessage{Text: "book a team sync tomorrow at 2pm", ConversationID: "c1"}

	first, err := svc.ProcessMessage(context.Background(), msg)
	require.NoError(t, err)
	second, err := svc.ProcessMessage(context.Background(), msg)
	require.NoError(t, err)

	assert.Equal(t, models.StatusConfirmed, second.Status)
	assert.Equal(t, first.EventID, second.EventID)
	assert.Len(t, cal.created, 1, "the duplicate must not reach the calendar")
}

func TestProcessMessageUnsupportedIntent(t *testing.T) {
	llm := &scriptedLLM{replies: []string{`{"kind":"chat","confidence":0.9}`}}
	svc := newService(llm, &stubCalendar{}, newMemoryStore())

	res, err := svc.ProcessMessage(context.Background(),
		models.RawMessage{Text: "tell me a joke", ConversationID: "c1"})
	require.NoError(t, err)

	assert.Equal(t, models.StatusConflict, res.Status)
	assert.Contains(t, res.Message, "booking, listing or cancelling")
}

func TestProcessMessageCalendarDownFailsGracefully(t *testing.T) {
	llm := &scriptedLLM{replies: []string{bookReply}}
	cal := &stubCalendar{freeBusyErr: calendar.NewUnavailableError("backend down", nil)}
	svc := newService(llm, cal, newMemoryStore())

	res, err := svc.ProcessMessage(context.Background(),
		models.RawMessage{Text: "book a team sync tomorrow at 2pm", ConversationID: "c1"})
	require.NoError(t, err)

	assert.Equal(t, models.StatusFailed, res.Status)
	assert.Equal(t, calendarFailureMessage, res.Message)
}

func TestProcessMessageListsEventsAndIndexesThem(t *testing.T) {
	llm := &scriptedLLM{replies: []string{`{"kind":"list","date":"2025-03-11","confidence":0.9}`}}
	cal := &stubCalendar{events: []models.Event{
		{ID: "ev1", Title: "Standup", Start: time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC), End: time.Date(2025, 3, 11, 9, 30, 0, 0, time.UTC)},
		{ID: "ev2", Title: "Design review", Start: time.Date(2025, 3, 11, 11, 0, 0, 0, time.UTC), End: time.Date(2025, 3, 11, 12, 0, 0, 0, time.UTC)},
	}}
	store := newMemoryStore()
	svc := newService(llm, cal, store)

	res, err := svc.ProcessMessage(context.Background(),
		models.RawMessage{Text: "what's on tomorrow?", ConversationID: "c1"})
	require.NoError(t, err)

	assert.Equal(t, models.StatusConfirmed, res.Status)
	assert.Contains(t, res.Message, "Standup")
	assert.Contains(t, res.Message, "ev2")

	conv := store.convs["c1"]
	require.NotNil(t, conv)
	assert.Equal(t, "ev1", conv.EventIndex["standup"])
	assert.Equal(t, "ev2", conv.EventIndex["design review"])
}

func TestProcessMessageDeletesByTitleViaIndex(t *testing.T) {
	llm := &scriptedLLM{replies: []string{`{"kind":"delete","title":"standup","confidence":0.9}`}}
	cal := &stubCalendar{}
	store := newMemoryStore()
	store.convs["c1"] = &models.Conversation{
		EventIndex: map[string]string{"standup": "ev1"},
	}
	svc := newService(llm, cal, store)

	res, err := svc.ProcessMessage(context.Background(),
		models.RawMessage{Text: "cancel the standup", ConversationID: "c1"})
	require.NoError(t, err)

	assert.Equal(t, models.StatusConfirmed, res.Status)
	assert.Equal(t, []string{"ev1"}, cal.deleted)
	assert.Contains(t, res.Message, "ev1")
}

func TestProcessMessageDeleteUnknownEventIsConflict(t *testing.T) {
	llm := &scriptedLLM{replies: []string{`{"kind":"delete","event_id":"ghost","confidence":0.9}`}}
	cal := &stubCalendar{deleteErr: calendar.ErrEventNotFound}
	svc := newService(llm, cal, newMemoryStore())

	res, err := svc.ProcessMessage(context.Background(),
		models.RawMessage{Text: "cancel event ghost", ConversationID: "c1"})
	require.NoError(t, err)

	assert.Equal(t, models.StatusConflict, res.Status)
	assert.True(t, strings.Contains(res.Message, "couldn't find"))
}

func TestProcessMessageDeleteWithNoTargetClarifies(t *testing.T) {
	llm := &scriptedLLM{replies: []string{`{"kind":"delete","confidence":0.9}`}}
	svc := newService(llm, &stubCalendar{}, newMemoryStore())

	res, err := svc.ProcessMessage(context.Background(),
		models.RawMessage{Text: "cancel it", ConversationID: "c1"})
	require.NoError(t, err)

	assert.Equal(t, models.StatusClarificationNeeded, res.Status)
	assert.True(t, res.RequiresInput)
}

func TestProcessMessageHistoryIsCapped(t *testing.T) {
	llm := &scriptedLLM{replies: []string{`{"kind":"chat","confidence":0.9}`}}
	store := newMemoryStore()
	svc := newService(llm, &stubCalendar{}, store)

	for i := 0; i < 15; i++ {
		_, err := svc.ProcessMessage(context.Background(),
			models.RawMessage{Text: "hello", ConversationID: "c1"})
		require.NoError(t, err)
	}

	assert.Len(t, store.convs["c1"].Turns, historyCap)
}
