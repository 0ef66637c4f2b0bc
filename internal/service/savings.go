package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/tuition-ledger/internal/apperr"
	"github.com/iliyamo/tuition-ledger/internal/model"
	"github.com/iliyamo/tuition-ledger/internal/queue"
	"github.com/iliyamo/tuition-ledger/internal/repository"
)

var errActiveBucketNotFound = apperr.NotFound("active bucket not found")

// SavingsService manages savings buckets and their transaction ledger.
// The cached balance on a bucket and the ledger row explaining it are
// always written together.
type SavingsService struct {
	store   *repository.Store
	savings *repository.SavingsRepo
	events  eventSink
	log     *logrus.Logger
	now     Clock
}

func NewSavingsService(store *repository.Store, pub queue.Publisher, log *logrus.Logger, now Clock) *SavingsService {
	if now == nil {
		now = SystemClock
	}
	return &SavingsService{
		store:   store,
		savings: repository.NewSavingsRepo(store),
		events:  eventSink{pub: pub, log: log},
		log:     log,
		now:     now,
	}
}

// NewBucket is the input of CreateBucket.
type NewBucket struct {
	Name         string
	TargetAmount decimal.Decimal
	Frequency    string
}

// CreateBucket opens an empty savings goal for the caller.
func (s *SavingsService) CreateBucket(ctx context.Context, p Principal, in NewBucket) (model.SavingsBucket, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.SavingsBucket{}, apperr.Validation("name is required")
	}
	if in.TargetAmount.LessThan(MinSavingsTarget) {
		return model.SavingsBucket{}, apperr.Validation("target amount must be at least %s", MinSavingsTarget)
	}
	if !in.TargetAmount.Equal(in.TargetAmount.Round(2)) {
		return model.SavingsBucket{}, apperr.Validation("target amount must have at most 2 decimal places")
	}
	freq, err := model.ParseFrequency(in.Frequency)
	if err != nil {
		return model.SavingsBucket{}, err
	}
	b := model.SavingsBucket{
		UserID:        p.UserID,
		Name:          name,
		TargetAmount:  in.TargetAmount,
		CurrentAmount: decimal.Zero,
		Frequency:     freq,
		Status:        model.BucketActive,
		CreatedAt:     s.now(),
	}
	if err := s.savings.CreateBucket(ctx, &b); err != nil {
		return model.SavingsBucket{}, err
	}
	s.log.WithFields(logrus.Fields{"bucket_id": b.ID, "user_id": b.UserID}).Info("savings bucket created")
	return b, nil
}

// BucketBalance is the state of a bucket after a deposit or withdrawal.
type BucketBalance struct {
	Bucket      model.SavingsBucket
	Transaction model.SavingsTransaction
	Progress    decimal.Decimal // percent of target, one decimal place
}

func validateMovement(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperr.Validation("amount must be greater than zero")
	}
	if !amount.Equal(amount.Round(2)) {
		return apperr.Validation("amount must have at most 2 decimal places")
	}
	return nil
}

// Deposit adds money to an active bucket owned by the caller.  Reaching
// the target completes the bucket.
func (s *SavingsService) Deposit(ctx context.Context, p Principal, bucketID uint64, amount decimal.Decimal) (BucketBalance, error) {
	if err := validateMovement(amount); err != nil {
		return BucketBalance{}, err
	}

	var (
		out     BucketBalance
		reached bool
	)
	err := s.store.WithinTx(ctx, func(tx *sql.Tx) error {
		b, err := s.savings.GetForUpdateTx(ctx, tx, bucketID, p.UserID)
		if err != nil {
			return err
		}
		if !b.Status.AcceptsDeposits() {
			return errActiveBucketNotFound
		}
		balance := b.CurrentAmount.Add(amount)
		status := b.StatusAfterDeposit(balance)
		reached = status == model.BucketCompleted

		t := model.SavingsTransaction{BucketID: b.ID, Amount: amount, Type: model.TxnDeposit, CreatedAt: s.now()}
		if err := s.savings.InsertTxnTx(ctx, tx, &t); err != nil {
			return err
		}
		if err := s.savings.UpdateBalanceTx(ctx, tx, b.ID, balance, status); err != nil {
			return err
		}
		b.CurrentAmount = balance
		b.Status = status
		out = BucketBalance{Bucket: b, Transaction: t, Progress: b.Progress()}
		return nil
	})
	if err != nil {
		return BucketBalance{}, err
	}

	s.log.WithFields(logrus.Fields{
		"bucket_id": out.Bucket.ID,
		"amount":    amount.StringFixed(2),
		"balance":   out.Bucket.CurrentAmount.StringFixed(2),
	}).Info("savings deposit")

	if reached {
		ev := queue.NewEvent(queue.SavingsGoalReached, p.UserID, out.Transaction.CreatedAt)
		ev.BucketID = out.Bucket.ID
		ev.Status = string(out.Bucket.Status)
		ev.Amount = &out.Bucket.CurrentAmount
		s.events.emit(ctx, ev)
	}
	return out, nil
}

// Withdraw takes money out of a bucket owned by the caller.  Any bucket
// status allows it, and the bucket is active afterwards.
func (s *SavingsService) Withdraw(ctx context.Context, p Principal, bucketID uint64, amount decimal.Decimal) (BucketBalance, error) {
	if err := validateMovement(amount); err != nil {
		return BucketBalance{}, err
	}

	var out BucketBalance
	err := s.store.WithinTx(ctx, func(tx *sql.Tx) error {
		b, err := s.savings.GetForUpdateTx(ctx, tx, bucketID, p.UserID)
		if err != nil {
			return err
		}
		if amount.GreaterThan(b.CurrentAmount) {
			return apperr.InsufficientFunds("insufficient funds")
		}
		balance := b.CurrentAmount.Sub(amount)
		status := b.StatusAfterWithdrawal()

		t := model.SavingsTransaction{BucketID: b.ID, Amount: amount, Type: model.TxnWithdrawal, CreatedAt: s.now()}
		if err := s.savings.InsertTxnTx(ctx, tx, &t); err != nil {
			return err
		}
		if err := s.savings.UpdateBalanceTx(ctx, tx, b.ID, balance, status); err != nil {
			return err
		}
		b.CurrentAmount = balance
		b.Status = status
		out = BucketBalance{Bucket: b, Transaction: t, Progress: b.Progress()}
		return nil
	})
	if err != nil {
		return BucketBalance{}, err
	}

	s.log.WithFields(logrus.Fields{
		"bucket_id": out.Bucket.ID,
		"amount":    amount.StringFixed(2),
		"balance":   out.Bucket.CurrentAmount.StringFixed(2),
	}).Info("savings withdrawal")
	return out, nil
}

// ListBuckets returns the caller's buckets, newest first.
func (s *SavingsService) ListBuckets(ctx context.Context, p Principal) ([]model.SavingsBucket, error) {
	return s.savings.ListByUser(ctx, p.UserID)
}

// BucketView is a bucket with its ledger, newest entry first.
type BucketView struct {
	Bucket       model.SavingsBucket
	Transactions []model.SavingsTransaction
}

// GetBucket returns one of the caller's buckets with its transactions.
func (s *SavingsService) GetBucket(ctx context.Context, p Principal, bucketID uint64) (BucketView, error) {
	b, err := s.savings.GetForUser(ctx, bucketID, p.UserID)
	if err != nil {
		return BucketView{}, err
	}
	txns, err := s.savings.ListTxns(ctx, b.ID)
	if err != nil {
		return BucketView{}, err
	}
	return BucketView{Bucket: b, Transactions: txns}, nil
}

// Reconcile recomputes balances from the transaction log and returns the
// buckets whose cached balance disagrees.  bucketID 0 checks all buckets.
func (s *SavingsService) Reconcile(ctx context.Context, bucketID uint64) ([]model.BucketDrift, error) {
	rows, err := s.savings.Ledger(ctx, bucketID)
	if err != nil {
		return nil, err
	}
	if bucketID != 0 && len(rows) == 0 {
		return nil, repository.ErrBucketNotFound
	}
	var drift []model.BucketDrift
	for _, d := range rows {
		if !d.Delta().IsZero() {
			drift = append(drift, d)
		}
	}
	if len(drift) > 0 {
		s.log.WithField("buckets", len(drift)).Error("savings balance drift detected")
	}
	return drift, nil
}
