package model

import (
	"strings"

	"github.com/iliyamo/tuition-ledger/internal/apperr"
)

// Role is the role stored on users.role.  It is fixed at creation.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// ParseRole validates a role string.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleStudent, RoleAdmin:
		return r, nil
	}
	return "", apperr.DomainConstraint("unknown role %q", s)
}

// AdvanceStatus is the lifecycle state of an advance.
//
//	pending -> active -> completed
//	pending -> rejected
//	active  -> defaulted
type AdvanceStatus string

const (
	AdvancePending   AdvanceStatus = "pending"
	AdvanceActive    AdvanceStatus = "active"
	AdvanceCompleted AdvanceStatus = "completed"
	AdvanceRejected  AdvanceStatus = "rejected"
	AdvanceDefaulted AdvanceStatus = "defaulted"
)

// ParseAdvanceStatus validates an advance status string.
func ParseAdvanceStatus(s string) (AdvanceStatus, error) {
	switch st := AdvanceStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case AdvancePending, AdvanceActive, AdvanceCompleted, AdvanceRejected, AdvanceDefaulted:
		return st, nil
	}
	return "", apperr.DomainConstraint("unknown advance status %q", s)
}

// Open reports whether the advance blocks its owner from requesting another.
func (s AdvanceStatus) Open() bool {
	return s == AdvancePending || s == AdvanceActive
}

// Terminal reports whether no further transition is possible.
func (s AdvanceStatus) Terminal() bool {
	return s == AdvanceCompleted || s == AdvanceRejected || s == AdvanceDefaulted
}

func (s AdvanceStatus) transition(from, to AdvanceStatus) (AdvanceStatus, error) {
	if s != from {
		return s, apperr.Conflict("advance is %s, expected %s", s, from)
	}
	return to, nil
}

// Approve moves a pending advance to active.
func (s AdvanceStatus) Approve() (AdvanceStatus, error) {
	return s.transition(AdvancePending, AdvanceActive)
}

// Reject moves a pending advance to rejected.
func (s AdvanceStatus) Reject() (AdvanceStatus, error) {
	return s.transition(AdvancePending, AdvanceRejected)
}

// Complete moves an active advance to completed once nothing is owed.
func (s AdvanceStatus) Complete() (AdvanceStatus, error) {
	return s.transition(AdvanceActive, AdvanceCompleted)
}

// Default moves an active advance to defaulted.
func (s AdvanceStatus) Default() (AdvanceStatus, error) {
	return s.transition(AdvanceActive, AdvanceDefaulted)
}

// Decision is an admin verdict on a pending advance.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// ParseDecision validates a decision string.  Unlike the status parsers
// an unknown decision is caller input and reported as a validation error.
func ParseDecision(s string) (Decision, error) {
	switch d := Decision(strings.ToLower(strings.TrimSpace(s))); d {
	case DecisionApproved, DecisionRejected:
		return d, nil
	}
	return "", apperr.Validation("decision must be approved or rejected")
}

// Apply returns the advance status produced by the decision.
func (d Decision) Apply(s AdvanceStatus) (AdvanceStatus, error) {
	if d == DecisionApproved {
		return s.Approve()
	}
	return s.Reject()
}

// RepaymentStatus is the state of a single installment.  Nothing in the
// service marks installments overdue; the value exists so stored rows
// and stats can carry it.
type RepaymentStatus string

const (
	RepaymentPending RepaymentStatus = "pending"
	RepaymentPaid    RepaymentStatus = "paid"
	RepaymentOverdue RepaymentStatus = "overdue"
)

func ParseRepaymentStatus(s string) (RepaymentStatus, error) {
	switch st := RepaymentStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case RepaymentPending, RepaymentPaid, RepaymentOverdue:
		return st, nil
	}
	return "", apperr.DomainConstraint("unknown repayment status %q", s)
}

// BucketStatus is the state of a savings bucket.
type BucketStatus string

const (
	BucketActive    BucketStatus = "active"
	BucketCompleted BucketStatus = "completed"
	BucketCancelled BucketStatus = "cancelled"
)

func ParseBucketStatus(s string) (BucketStatus, error) {
	switch st := BucketStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case BucketActive, BucketCompleted, BucketCancelled:
		return st, nil
	}
	return "", apperr.DomainConstraint("unknown bucket status %q", s)
}

// AcceptsDeposits reports whether money can be added to the bucket.
func (s BucketStatus) AcceptsDeposits() bool { return s == BucketActive }

// TxnType is the direction of a savings transaction.
type TxnType string

const (
	TxnDeposit    TxnType = "deposit"
	TxnWithdrawal TxnType = "withdrawal"
)

func ParseTxnType(s string) (TxnType, error) {
	switch t := TxnType(strings.ToLower(strings.TrimSpace(s))); t {
	case TxnDeposit, TxnWithdrawal:
		return t, nil
	}
	return "", apperr.DomainConstraint("unknown transaction type %q", s)
}

// Frequency is the intended saving cadence of a bucket.  It is
// informational only.
type Frequency string

const (
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
)

// ParseFrequency validates a frequency; an empty string yields weekly.
func ParseFrequency(s string) (Frequency, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FrequencyWeekly, nil
	}
	switch f := Frequency(s); f {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
		return f, nil
	}
	return "", apperr.DomainConstraint("unknown frequency %q", s)
}
