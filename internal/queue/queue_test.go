package queue

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tuition-ledger/internal/logger"
)

func TestFormatLine(t *testing.T) {
	amount := decimal.RequireFromString("1800")
	remaining := 2
	ev := LedgerEvent{
		EventID:    "e-1",
		Type:       RepaymentApplied,
		UserID:     4,
		AdvanceID:  9,
		Amount:     &amount,
		Remaining:  &remaining,
		OccurredAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	assert.Equal(t,
		"[2026-03-01T10:00:00Z] repayment.applied | event_id=e-1 | user_id=4 | advance_id=9 | amount=1800.00 | remaining=2\n",
		FormatLine(ev))
}

func TestNewEventStampsID(t *testing.T) {
	a := NewEvent(AdvanceRequested, 1, time.Now())
	b := NewEvent(AdvanceRequested, 1, time.Now())

	assert.NotEmpty(t, a.EventID)
	assert.NotEqual(t, a.EventID, b.EventID)
	assert.Equal(t, time.UTC, a.OccurredAt.Location())
}

func TestConsumerHandleAppendsLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "ledger.log")
	c := NewConsumer("amqp://unused", path, logger.Discard())

	ev := NewEvent(SavingsGoalReached, 2, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	ev.BucketID = 5
	body, err := json.Marshal(ev)
	require.NoError(t, err)

	require.NoError(t, c.handle(body))
	require.NoError(t, c.handle(body))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, FormatLine(ev)+FormatLine(ev), string(raw))
}

func TestConsumerHandleRejectsGarbage(t *testing.T) {
	c := NewConsumer("amqp://unused", filepath.Join(t.TempDir(), "ledger.log"), logger.Discard())
	assert.Error(t, c.handle([]byte("{not json")))
}

func TestRecorder(t *testing.T) {
	var r Recorder
	require.NoError(t, r.Publish(context.Background(), NewEvent(AdvanceDecided, 1, time.Now())))
	require.NoError(t, NopPublisher{}.Publish(context.Background(), NewEvent(AdvanceDecided, 1, time.Now())))

	assert.Equal(t, []EventType{AdvanceDecided}, r.Types())
	assert.Len(t, r.Events(), 1)
}

func TestAsyncDeliversOnClose(t *testing.T) {
	var r Recorder
	a := NewAsync(&r, 8, logger.Discard())
	for i := 0; i < 3; i++ {
		require.NoError(t, a.Publish(context.Background(), NewEvent(AdvanceRequested, uint64(i+1), time.Now())))
	}
	a.Close()

	assert.Len(t, r.Events(), 3)
}
