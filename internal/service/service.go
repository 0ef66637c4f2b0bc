// Package service implements the ledger engines: the advance lifecycle
// and repayment schedule, savings buckets, and admin oversight.  Every
// mutating operation runs in a single database transaction and publishes
// a ledger event once that transaction has committed.
package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/tuition-ledger/internal/apperr"
	"github.com/iliyamo/tuition-ledger/internal/model"
	"github.com/iliyamo/tuition-ledger/internal/queue"
)

// Principal is the authenticated actor invoking an operation.
type Principal struct {
	UserID uint64
	Role   model.Role
}

func (p Principal) IsAdmin() bool { return p.Role == model.RoleAdmin }

func requireRole(p Principal, role model.Role) error {
	if p.Role != role {
		return apperr.New(apperr.KindForbidden, "operation requires the "+string(role)+" role")
	}
	return nil
}

// Clock returns the current time.  Engines stamp rows with it so tests
// can pin time.
type Clock func() time.Time

// SystemClock is UTC wall time at microsecond precision, the finest
// precision both storage dialects keep.
func SystemClock() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

// eventSink publishes events after commit and only logs failures.
type eventSink struct {
	pub queue.Publisher
	log *logrus.Logger
}

func (s eventSink) emit(ctx context.Context, ev queue.LedgerEvent) {
	if s.pub == nil {
		return
	}
	if err := s.pub.Publish(ctx, ev); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"event_id":   ev.EventID,
			"event_type": ev.Type,
		}).Warn("ledger event not published")
	}
}
