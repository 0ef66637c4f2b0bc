package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/tuition-ledger/internal/apperr"
	"github.com/iliyamo/tuition-ledger/internal/model"
	"github.com/iliyamo/tuition-ledger/internal/queue"
	"github.com/iliyamo/tuition-ledger/internal/repository"
)

var (
	errPendingAdvanceNotFound = apperr.NotFound("pending advance not found")
	errActiveAdvanceNotFound  = apperr.NotFound("active advance not found")
	errNoPendingRepayments    = apperr.Conflict("no pending repayments")
	errSchoolNotEligible      = apperr.NotFound("school not found or not verified")
)

// AdvanceService runs the advance lifecycle: requests, admin decisions,
// repayments and default declarations.
type AdvanceService struct {
	store      *repository.Store
	users      *repository.UserRepo
	schools    *repository.SchoolRepo
	advances   *repository.AdvanceRepo
	repayments *repository.RepaymentRepo
	events     eventSink
	log        *logrus.Logger
	now        Clock
}

func NewAdvanceService(store *repository.Store, pub queue.Publisher, log *logrus.Logger, now Clock) *AdvanceService {
	if now == nil {
		now = SystemClock
	}
	return &AdvanceService{
		store:      store,
		users:      repository.NewUserRepo(store),
		schools:    repository.NewSchoolRepo(store),
		advances:   repository.NewAdvanceRepo(store),
		repayments: repository.NewRepaymentRepo(store),
		events:     eventSink{pub: pub, log: log},
		log:        log,
		now:        now,
	}
}

// AdvanceRequest is the input of RequestAdvance.
type AdvanceRequest struct {
	SchoolID       uint64
	Amount         decimal.Decimal
	DurationMonths int
}

// RequestedAdvance is a newly created pending advance and its quote.
type RequestedAdvance struct {
	Advance model.Advance
	Quote   Quote
}

// RequestAdvance creates a pending advance for a student.  The student
// may not already hold a pending or active advance, and the school must
// be verified.
func (s *AdvanceService) RequestAdvance(ctx context.Context, p Principal, req AdvanceRequest) (RequestedAdvance, error) {
	if err := requireRole(p, model.RoleStudent); err != nil {
		return RequestedAdvance{}, err
	}
	if err := ValidateAdvanceTerms(req.Amount, req.DurationMonths); err != nil {
		return RequestedAdvance{}, err
	}
	q := QuoteAdvance(req.Amount, req.DurationMonths)
	a := model.Advance{
		UserID:         p.UserID,
		SchoolID:       req.SchoolID,
		Amount:         req.Amount,
		DurationMonths: req.DurationMonths,
		InterestRate:   q.InterestRate,
		TotalRepayment: q.TotalRepayment,
		Status:         model.AdvancePending,
		CreatedAt:      s.now(),
	}

	err := s.store.WithinTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.users.LockTx(ctx, tx, p.UserID); err != nil {
			return err
		}
		school, err := s.schools.GetTx(ctx, tx, req.SchoolID)
		if err != nil {
			if errors.Is(err, repository.ErrSchoolNotFound) {
				return errSchoolNotEligible
			}
			return err
		}
		if !school.Verified {
			return errSchoolNotEligible
		}
		open, err := s.advances.HasOpenTx(ctx, tx, p.UserID)
		if err != nil {
			return err
		}
		if open {
			return repository.ErrOpenAdvanceExists
		}
		return s.advances.CreateTx(ctx, tx, &a)
	})
	if err != nil {
		return RequestedAdvance{}, err
	}

	s.log.WithFields(logrus.Fields{
		"advance_id": a.ID,
		"user_id":    a.UserID,
		"school_id":  a.SchoolID,
		"amount":     a.Amount.StringFixed(2),
		"months":     a.DurationMonths,
	}).Info("advance requested")

	ev := queue.NewEvent(queue.AdvanceRequested, a.UserID, a.CreatedAt)
	ev.AdvanceID = a.ID
	ev.Status = string(a.Status)
	ev.Amount = &a.Amount
	s.events.emit(ctx, ev)

	return RequestedAdvance{Advance: a, Quote: q}, nil
}

// DecisionResult is the outcome of DecideAdvance.
type DecisionResult struct {
	Advance  model.Advance
	Schedule []model.Repayment
}

// DecideAdvance approves or rejects a pending advance.  Approval
// activates it and writes its repayment schedule in the same
// transaction.  Empty notes are stored as NULL.
func (s *AdvanceService) DecideAdvance(ctx context.Context, p Principal, advanceID uint64, decision, notes string) (DecisionResult, error) {
	if err := requireRole(p, model.RoleAdmin); err != nil {
		return DecisionResult{}, err
	}
	d, err := model.ParseDecision(decision)
	if err != nil {
		return DecisionResult{}, err
	}
	var notesPtr *string
	if n := strings.TrimSpace(notes); n != "" {
		notesPtr = &n
	}

	var out DecisionResult
	err = s.store.WithinTx(ctx, func(tx *sql.Tx) error {
		a, err := s.advances.GetForUpdateTx(ctx, tx, advanceID)
		if err != nil {
			if errors.Is(err, repository.ErrAdvanceNotFound) {
				return errPendingAdvanceNotFound
			}
			return err
		}
		if a.Status != model.AdvancePending {
			return errPendingAdvanceNotFound
		}
		next, err := d.Apply(a.Status)
		if err != nil {
			return err
		}

		var approvedAt *time.Time
		if next == model.AdvanceActive {
			t := s.now()
			approvedAt = &t
		}
		if err := s.advances.TransitionTx(ctx, tx, a.ID, a.Status, next, notesPtr, approvedAt); err != nil {
			return err
		}
		a.Status = next
		a.ApprovedAt = approvedAt
		if notesPtr != nil {
			a.AdminNotes = notesPtr
		}

		if next == model.AdvanceActive {
			out.Schedule = BuildSchedule(a.ID, a.TotalRepayment, a.DurationMonths, *approvedAt)
			if err := s.repayments.CreateScheduleTx(ctx, tx, out.Schedule); err != nil {
				return err
			}
		}
		out.Advance = a
		return nil
	})
	if err != nil {
		return DecisionResult{}, err
	}

	s.log.WithFields(logrus.Fields{
		"advance_id":   out.Advance.ID,
		"decision":     string(d),
		"admin_id":     p.UserID,
		"installments": len(out.Schedule),
	}).Info("advance decided")

	ev := queue.NewEvent(queue.AdvanceDecided, out.Advance.UserID, s.now())
	ev.AdvanceID = out.Advance.ID
	ev.Status = string(out.Advance.Status)
	ev.Amount = &out.Advance.Amount
	s.events.emit(ctx, ev)

	return out, nil
}

// RepaymentResult reports the installment settled by ApplyRepayment.
type RepaymentResult struct {
	Paid          model.Repayment
	Remaining     int
	AdvanceStatus model.AdvanceStatus
}

// ApplyRepayment settles the earliest-due pending installment of the
// caller's active advance and completes the advance when nothing is left
// to pay.
func (s *AdvanceService) ApplyRepayment(ctx context.Context, p Principal, advanceID uint64) (RepaymentResult, error) {
	if err := requireRole(p, model.RoleStudent); err != nil {
		return RepaymentResult{}, err
	}

	var (
		out RepaymentResult
		a   model.Advance
	)
	err := s.store.WithinTx(ctx, func(tx *sql.Tx) error {
		var err error
		a, err = s.advances.GetForUpdateTx(ctx, tx, advanceID)
		if err != nil {
			if errors.Is(err, repository.ErrAdvanceNotFound) {
				return errActiveAdvanceNotFound
			}
			return err
		}
		if a.UserID != p.UserID || a.Status != model.AdvanceActive {
			return errActiveAdvanceNotFound
		}

		next, err := s.repayments.NextPendingTx(ctx, tx, a.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errNoPendingRepayments
			}
			return err
		}
		paidAt := s.now()
		if err := s.repayments.MarkPaidTx(ctx, tx, next.ID, paidAt); err != nil {
			return err
		}
		next.Status = model.RepaymentPaid
		next.PaidAt = &paidAt

		remaining, err := s.repayments.CountPendingTx(ctx, tx, a.ID)
		if err != nil {
			return err
		}
		if remaining == 0 {
			done, err := a.Status.Complete()
			if err != nil {
				return err
			}
			if err := s.advances.TransitionTx(ctx, tx, a.ID, a.Status, done, nil, nil); err != nil {
				return err
			}
			a.Status = done
		}
		out = RepaymentResult{Paid: next, Remaining: remaining, AdvanceStatus: a.Status}
		return nil
	})
	if err != nil {
		return RepaymentResult{}, err
	}

	s.log.WithFields(logrus.Fields{
		"advance_id":   a.ID,
		"repayment_id": out.Paid.ID,
		"remaining":    out.Remaining,
	}).Info("repayment applied")

	ev := queue.NewEvent(queue.RepaymentApplied, a.UserID, *out.Paid.PaidAt)
	ev.AdvanceID = a.ID
	ev.Amount = &out.Paid.Amount
	ev.Remaining = &out.Remaining
	s.events.emit(ctx, ev)
	if out.AdvanceStatus == model.AdvanceCompleted {
		done := queue.NewEvent(queue.AdvanceCompleted, a.UserID, *out.Paid.PaidAt)
		done.AdvanceID = a.ID
		done.Status = string(model.AdvanceCompleted)
		s.events.emit(ctx, done)
	}
	return out, nil
}

// DeclareDefault marks an active advance as defaulted.  There is no
// automatic overdue policy; an administrator makes the call.
func (s *AdvanceService) DeclareDefault(ctx context.Context, p Principal, advanceID uint64, notes string) (model.Advance, error) {
	if err := requireRole(p, model.RoleAdmin); err != nil {
		return model.Advance{}, err
	}
	var notesPtr *string
	if n := strings.TrimSpace(notes); n != "" {
		notesPtr = &n
	}

	var a model.Advance
	err := s.store.WithinTx(ctx, func(tx *sql.Tx) error {
		var err error
		a, err = s.advances.GetForUpdateTx(ctx, tx, advanceID)
		if err != nil {
			return err
		}
		next, err := a.Status.Default()
		if err != nil {
			return err
		}
		if err := s.advances.TransitionTx(ctx, tx, a.ID, a.Status, next, notesPtr, nil); err != nil {
			return err
		}
		a.Status = next
		if notesPtr != nil {
			a.AdminNotes = notesPtr
		}
		return nil
	})
	if err != nil {
		return model.Advance{}, err
	}

	s.log.WithFields(logrus.Fields{"advance_id": a.ID, "admin_id": p.UserID}).Warn("advance declared defaulted")

	ev := queue.NewEvent(queue.AdvanceDefaulted, a.UserID, s.now())
	ev.AdvanceID = a.ID
	ev.Status = string(a.Status)
	s.events.emit(ctx, ev)
	return a, nil
}

// ListAdvances returns the caller's own advances, or every advance for
// an admin.  status, when non-empty, filters by lifecycle state.
func (s *AdvanceService) ListAdvances(ctx context.Context, p Principal, status string) ([]model.AdvanceDetail, error) {
	var f repository.AdvanceFilter
	if status != "" {
		st, err := model.ParseAdvanceStatus(status)
		if err != nil {
			return nil, apperr.Validation("unknown status filter %q", status)
		}
		f.Status = st
	}
	if !p.IsAdmin() {
		f.UserID = p.UserID
	}
	return s.advances.List(ctx, f)
}

// AdvanceView is an advance with its repayment schedule.
type AdvanceView struct {
	Advance  model.AdvanceDetail
	Schedule []model.Repayment
}

// GetAdvance returns one advance and its schedule ordered by due date.
// Students only see their own advances.
func (s *AdvanceService) GetAdvance(ctx context.Context, p Principal, advanceID uint64) (AdvanceView, error) {
	d, err := s.advances.GetDetail(ctx, advanceID)
	if err != nil {
		return AdvanceView{}, err
	}
	if !p.IsAdmin() && d.UserID != p.UserID {
		return AdvanceView{}, repository.ErrAdvanceNotFound
	}
	schedule, err := s.repayments.ListByAdvance(ctx, advanceID)
	if err != nil {
		return AdvanceView{}, err
	}
	return AdvanceView{Advance: d, Schedule: schedule}, nil
}

// ListVerifiedSchools returns the schools a student may request an
// advance for.
func (s *AdvanceService) ListVerifiedSchools(ctx context.Context) ([]model.School, error) {
	return s.schools.ListVerified(ctx)
}
