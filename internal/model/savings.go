package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SavingsBucket is a named savings goal.  CurrentAmount caches the sum of
// the bucket's transactions and is updated in the same transaction as
// every ledger insert.
type SavingsBucket struct {
	ID            uint64          // savings_buckets.id
	UserID        uint64          // savings_buckets.user_id
	Name          string          // savings_buckets.name
	TargetAmount  decimal.Decimal // savings_buckets.target_amount
	CurrentAmount decimal.Decimal // savings_buckets.current_amount
	Frequency     Frequency       // savings_buckets.frequency
	Status        BucketStatus    // savings_buckets.status
	CreatedAt     time.Time       // savings_buckets.created_at
}

// StatusAfterDeposit returns the status a bucket holds once its balance
// reaches newBalance through a deposit.
func (b SavingsBucket) StatusAfterDeposit(newBalance decimal.Decimal) BucketStatus {
	if newBalance.GreaterThanOrEqual(b.TargetAmount) {
		return BucketCompleted
	}
	return b.Status
}

// StatusAfterWithdrawal always reopens the bucket.
func (b SavingsBucket) StatusAfterWithdrawal() BucketStatus { return BucketActive }

// Progress is the balance as a percentage of the target, one decimal place.
func (b SavingsBucket) Progress() decimal.Decimal {
	if b.TargetAmount.IsZero() {
		return decimal.Zero
	}
	return b.CurrentAmount.Div(b.TargetAmount).Mul(decimal.NewFromInt(100)).Round(1)
}

// SavingsTransaction is an append-only ledger entry.
type SavingsTransaction struct {
	ID        uint64          // savings_transactions.id
	BucketID  uint64          // savings_transactions.bucket_id
	Amount    decimal.Decimal // savings_transactions.amount
	Type      TxnType         // savings_transactions.type
	CreatedAt time.Time       // savings_transactions.created_at
}

// BucketDrift reports a bucket whose cached balance disagrees with its
// transaction log.
type BucketDrift struct {
	BucketID uint64
	UserID   uint64
	Cached   decimal.Decimal
	Ledger   decimal.Decimal
}

// Delta is cached minus ledger.
func (d BucketDrift) Delta() decimal.Decimal { return d.Cached.Sub(d.Ledger) }
