// Package queue defines the ledger events exchanged over RabbitMQ, the
// publisher used by the engines and the background consumer that
// appends every event to an audit log file.
package queue

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerQueueName is the durable queue carrying LedgerEvent messages.
const LedgerQueueName = "ledger.events"

// EventType names a ledger state change.
type EventType string

const (
	AdvanceRequested   EventType = "advance.requested"
	AdvanceDecided     EventType = "advance.decided"
	AdvanceCompleted   EventType = "advance.completed"
	AdvanceDefaulted   EventType = "advance.defaulted"
	RepaymentApplied   EventType = "repayment.applied"
	SavingsGoalReached EventType = "savings.goal_reached"
)

// LedgerEvent is published after a ledger transaction commits.  It
// carries enough for downstream consumers to log or notify without
// querying the primary database.
type LedgerEvent struct {
	EventID    string           `json:"event_id"`
	Type       EventType        `json:"type"`
	UserID     uint64           `json:"user_id"`
	AdvanceID  uint64           `json:"advance_id,omitempty"`
	BucketID   uint64           `json:"bucket_id,omitempty"`
	Status     string           `json:"status,omitempty"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
	Remaining  *int             `json:"remaining,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// NewEvent stamps an event with a fresh ID and the given time.
func NewEvent(t EventType, userID uint64, at time.Time) LedgerEvent {
	return LedgerEvent{
		EventID:    uuid.NewString(),
		Type:       t,
		UserID:     userID,
		OccurredAt: at.UTC(),
	}
}
