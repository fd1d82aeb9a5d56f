package intent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookify/models"
)

type fakeLLM struct {
	reply string
	err   error
	calls int
}

func (f *fakeLLM) GenerateContent(ctx context.Context, prompt string) (string, error) {
	f.calls++
	return f.reply, f.err
}

func newExtractor(llm *fakeLLM) *Extractor {
	return &Extractor{
		LLM:                 llm,
		Location:            time.UTC,
		ConfidenceThreshold: 0.5,
		DefaultDuration:     60,
		HistoryWindow:       5,
		Now: func() time.Time {
			return time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)
		},
	}
}

func TestExtractBookIntent(t *testing.T) {
	llm := &fakeLLM{reply: `{"kind":"book","date":"tomorrow","start_time":"14:00","duration_minutes":30,"title":"Team sync","confidence":0.9}`}
	e := newExtractor(llm)

	it, err := e.Extract(context.Background(), models.RawMessage{Text: "book a team sync tomorrow at 2pm for 30 minutes"}, &models.Conversation{})
	require.NoError(t, err)

	assert.Equal(t, models.IntentBook, it.Kind)
	assert.Equal(t, "2025-03-13", it.Date)
	assert.Equal(t, 840, it.WindowStart)
	assert.Equal(t, 870, it.WindowEnd) // derived from start + duration
	assert.Equal(t, 30, it.DurationMinutes)
	assert.Equal(t, "Team sync", it.Title)
	assert.Equal(t, 1, llm.calls)
}

func TestExtractStripsCodeFence(t *testing.T) {
	llm := &fakeLLM{reply: "```json\n{\"kind\":\"list\",\"date\":\"today\",\"confidence\":0.8}\n```"}
	e := newExtractor(llm)

	it, err := e.Extract(context.Background(), models.RawMessage{Text: "what's on my calendar?"}, &models.Conversation{})
	require.NoError(t, err)
	assert.Equal(t, models.IntentList, it.Kind)
	assert.Equal(t, "2025-03-12", it.Date)
}

func TestExtractDerivesDurationFromWindow(t *testing.T) {
	llm := &fakeLLM{reply: `{"kind":"book","date":"2025-03-14","start_time":"09:00","end_time":"10:30","confidence":0.8}`}
	e := newExtractor(llm)

	it, err := e.Extract(context.Background(), models.RawMessage{Text: "book 9 to 10:30 on friday"}, &models.Conversation{})
	require.NoError(t, err)
	assert.Equal(t, 90, it.DurationMinutes)
}

func TestExtractDefaultsDuration(t *testing.T) {
	llm := &fakeLLM{reply: `{"kind":"book","date":"tomorrow","confidence":0.7}`}
	e := newExtractor(llm)

	it, err := e.Extract(context.Background(), models.RawMessage{Text: "book something tomorrow"}, &models.Conversation{})
	require.NoError(t, err)
	assert.Equal(t, 60, it.DurationMinutes)
	assert.False(t, it.HasWindow())
}

func TestExtractLowConfidenceBecomesAmbiguous(t *testing.T) {
	llm := &fakeLLM{reply: `{"kind":"book","date":"tomorrow","confidence":0.2}`}
	e := newExtractor(llm)

	it, err := e.Extract(context.Background(), models.RawMessage{Text: "maybe something sometime?"}, &models.Conversation{})
	require.NoError(t, err)
	assert.Equal(t, models.IntentAmbiguous, it.Kind)
}

func TestExtractMalformedReplyIsRetryableError(t *testing.T) {
	llm := &fakeLLM{reply: "I'd be happy to help you book that!"}
	e := newExtractor(llm)

	_, err := e.Extract(context.Background(), models.RawMessage{Text: "book a meeting"}, &models.Conversation{})
	require.Error(t, err)
	var xerr *ExtractionError
	assert.True(t, errors.As(err, &xerr))
}

func TestExtractUnknownKindIsUnsupported(t *testing.T) {
	llm := &fakeLLM{reply: `{"kind":"chat","confidence":0.9}`}
	e := newExtractor(llm)

	it, err := e.Extract(context.Background(), models.RawMessage{Text: "how's the weather?"}, &models.Conversation{})
	require.NoError(t, err)
	assert.Equal(t, models.IntentUnsupported, it.Kind)
}

func TestExtractScrubsNullStrings(t *testing.T) {
	llm := &fakeLLM{reply: `{"kind":"delete","title":"null","event_id":"null","confidence":0.8}`}
	e := newExtractor(llm)

	it, err := e.Extract(context.Background(), models.RawMessage{Text: "cancel it"}, &models.Conversation{})
	require.NoError(t, err)
	assert.Empty(t, it.Title)
	assert.Empty(t, it.TargetEventID)
}

func TestExtractLLMFailure(t *testing.T) {
	llm := &fakeLLM{err: errors.New("rate limited")}
	e := newExtractor(llm)

	_, err := e.Extract(context.Background(), models.RawMessage{Text: "book a meeting"}, &models.Conversation{})
	require.Error(t, err)
	var xerr *ExtractionError
	assert.True(t, errors.As(err, &xerr))
}
