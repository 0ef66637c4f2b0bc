package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Advance represents a row in the `advances` table.  InterestRate and
// TotalRepayment are computed once at request time and never change.
//
// Fields:
//  ID             – primary key identifier.
//  UserID         – requesting student.
//  SchoolID       – payee school.
//  Amount         – principal, two decimal places.
//  DurationMonths – repayment term, 3 to 6 months.
//  InterestRate   – 0.02 per month of term.
//  TotalRepayment – Amount * (1 + InterestRate).
//  Status         – lifecycle state.
//  AdminNotes     – optional note recorded with a decision.
//  CreatedAt      – request time.
//  ApprovedAt     – approval time; nil unless approved.
type Advance struct {
	ID             uint64          // advances.id
	UserID         uint64          // advances.user_id
	SchoolID       uint64          // advances.school_id
	Amount         decimal.Decimal // advances.amount
	DurationMonths int             // advances.duration_months
	InterestRate   decimal.Decimal // advances.interest_rate
	TotalRepayment decimal.Decimal // advances.total_repayment
	Status         AdvanceStatus   // advances.status
	AdminNotes     *string         // advances.admin_notes (nullable)
	CreatedAt      time.Time       // advances.created_at
	ApprovedAt     *time.Time      // advances.approved_at (nullable)
}

// AdvanceDetail is an advance joined with the display fields of its
// school and owner, as returned by list queries.
type AdvanceDetail struct {
	Advance
	SchoolName   string
	SchoolWallet string
	UserEmail    string
	UserFullName string
}

// Repayment is one installment of an approved advance.
type Repayment struct {
	ID        uint64          // repayments.id
	AdvanceID uint64          // repayments.advance_id
	Amount    decimal.Decimal // repayments.amount
	DueDate   time.Time       // repayments.due_date
	PaidAt    *time.Time      // repayments.paid_at (nullable)
	Status    RepaymentStatus // repayments.status
}
