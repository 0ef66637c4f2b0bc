package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/tuition-ledger/internal/apperr"
	"github.com/iliyamo/tuition-ledger/internal/model"
)

// Advance limits.
var (
	MinAdvanceAmount = decimal.NewFromInt(1000)
	MaxAdvanceAmount = decimal.NewFromInt(500000)
	MonthlyRate      = decimal.RequireFromString("0.02")
)

const (
	MinDurationMonths = 3
	MaxDurationMonths = 6
)

// MinSavingsTarget is the smallest goal a bucket may have.
var MinSavingsTarget = decimal.NewFromInt(1000)

var hundred = decimal.NewFromInt(100)

// Quote is the cost of an advance, fixed at request time.
type Quote struct {
	InterestRate   decimal.Decimal
	TotalRepayment decimal.Decimal
	MonthlyPayment decimal.Decimal
}

// ValidateAdvanceTerms checks amount and duration against the product
// limits.
func ValidateAdvanceTerms(amount decimal.Decimal, months int) error {
	if amount.LessThan(MinAdvanceAmount) || amount.GreaterThan(MaxAdvanceAmount) {
		return apperr.Validation("amount must be between %s and %s", MinAdvanceAmount, MaxAdvanceAmount)
	}
	if !amount.Equal(amount.Round(2)) {
		return apperr.Validation("amount must have at most 2 decimal places")
	}
	if months < MinDurationMonths || months > MaxDurationMonths {
		return apperr.Validation("duration must be between %d and %d months", MinDurationMonths, MaxDurationMonths)
	}
	return nil
}

// QuoteAdvance computes simple interest of 2% per month of term.
// MonthlyPayment is rounded to cents for display only.
func QuoteAdvance(amount decimal.Decimal, months int) Quote {
	rate := MonthlyRate.Mul(decimal.NewFromInt(int64(months)))
	total := amount.Mul(decimal.NewFromInt(1).Add(rate))
	return Quote{
		InterestRate:   rate,
		TotalRepayment: total,
		MonthlyPayment: total.Div(decimal.NewFromInt(int64(months))).Round(2),
	}
}

// BuildSchedule splits total into months installments due one calendar
// month apart starting a month after approvedAt.  Installments are equal
// at cent precision; the last one absorbs the rounding remainder so the
// schedule sums to total rounded to cents.
func BuildSchedule(advanceID uint64, total decimal.Decimal, months int, approvedAt time.Time) []model.Repayment {
	if months <= 0 {
		return nil
	}
	n := decimal.NewFromInt(int64(months))
	owed := total.Round(2)
	base := owed.Div(n).Round(2)
	last := owed.Sub(base.Mul(decimal.NewFromInt(int64(months - 1))))

	out := make([]model.Repayment, months)
	for i := 0; i < months; i++ {
		amt := base
		if i == months-1 {
			amt = last
		}
		out[i] = model.Repayment{
			AdvanceID: advanceID,
			Amount:    amt,
			DueDate:   approvedAt.AddDate(0, i+1, 0),
			Status:    model.RepaymentPending,
		}
	}
	return out
}
