package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/tuition-ledger/internal/model"
	"github.com/iliyamo/tuition-ledger/internal/service"
)

// Response bodies.  Money is rendered as a fixed two-decimal string so
// clients never see float rounding.

func money(d decimal.Decimal) string { return d.StringFixed(2) }

type userView struct {
	ID            uint64    `json:"id"`
	Email         string    `json:"email"`
	FullName      string    `json:"full_name"`
	Role          string    `json:"role"`
	WalletAddress *string   `json:"wallet_address"`
	CreatedAt     time.Time `json:"created_at"`
}

func newUserView(u model.User) userView {
	return userView{
		ID:            u.ID,
		Email:         u.Email,
		FullName:      u.FullName,
		Role:          string(u.Role),
		WalletAddress: u.WalletAddress,
		CreatedAt:     u.CreatedAt,
	}
}

type schoolView struct {
	ID            uint64    `json:"id"`
	Name          string    `json:"name"`
	WalletAddress string    `json:"wallet_address"`
	Verified      bool      `json:"verified"`
	CreatedAt     time.Time `json:"created_at"`
}

func newSchoolViews(ss []model.School) []schoolView {
	out := make([]schoolView, 0, len(ss))
	for _, s := range ss {
		out = append(out, schoolView(s))
	}
	return out
}

type advanceView struct {
	ID             uint64     `json:"id"`
	UserID         uint64     `json:"user_id"`
	SchoolID       uint64     `json:"school_id"`
	Amount         string     `json:"amount"`
	DurationMonths int        `json:"duration_months"`
	InterestRate   string     `json:"interest_rate"`
	TotalRepayment string     `json:"total_repayment"`
	Status         string     `json:"status"`
	AdminNotes     *string    `json:"admin_notes"`
	CreatedAt      time.Time  `json:"created_at"`
	ApprovedAt     *time.Time `json:"approved_at"`

	SchoolName   string `json:"school_name,omitempty"`
	SchoolWallet string `json:"school_wallet,omitempty"`
	UserEmail    string `json:"user_email,omitempty"`
	UserFullName string `json:"user_full_name,omitempty"`
}

func newAdvanceView(a model.Advance) advanceView {
	return advanceView{
		ID:             a.ID,
		UserID:         a.UserID,
		SchoolID:       a.SchoolID,
		Amount:         money(a.Amount),
		DurationMonths: a.DurationMonths,
		InterestRate:   a.InterestRate.StringFixed(4),
		TotalRepayment: money(a.TotalRepayment),
		Status:         string(a.Status),
		AdminNotes:     a.AdminNotes,
		CreatedAt:      a.CreatedAt,
		ApprovedAt:     a.ApprovedAt,
	}
}

func newAdvanceDetailView(d model.AdvanceDetail) advanceView {
	v := newAdvanceView(d.Advance)
	v.SchoolName = d.SchoolName
	v.SchoolWallet = d.SchoolWallet
	v.UserEmail = d.UserEmail
	v.UserFullName = d.UserFullName
	return v
}

func newAdvanceDetailViews(ds []model.AdvanceDetail) []advanceView {
	out := make([]advanceView, 0, len(ds))
	for _, d := range ds {
		out = append(out, newAdvanceDetailView(d))
	}
	return out
}

type quoteView struct {
	InterestRate   string `json:"interest_rate"`
	TotalRepayment string `json:"total_repayment"`
	MonthlyPayment string `json:"monthly_payment"`
}

func newQuoteView(q service.Quote) quoteView {
	return quoteView{
		InterestRate:   q.InterestRate.StringFixed(4),
		TotalRepayment: money(q.TotalRepayment),
		MonthlyPayment: money(q.MonthlyPayment),
	}
}

type repaymentView struct {
	ID        uint64     `json:"id"`
	AdvanceID uint64     `json:"advance_id"`
	Amount    string     `json:"amount"`
	DueDate   time.Time  `json:"due_date"`
	PaidAt    *time.Time `json:"paid_at"`
	Status    string     `json:"status"`
}

func newRepaymentView(r model.Repayment) repaymentView {
	return repaymentView{
		ID:        r.ID,
		AdvanceID: r.AdvanceID,
		Amount:    money(r.Amount),
		DueDate:   r.DueDate,
		PaidAt:    r.PaidAt,
		Status:    string(r.Status),
	}
}

func newRepaymentViews(rs []model.Repayment) []repaymentView {
	out := make([]repaymentView, 0, len(rs))
	for _, r := range rs {
		out = append(out, newRepaymentView(r))
	}
	return out
}

type bucketView struct {
	ID            uint64    `json:"id"`
	Name          string    `json:"name"`
	TargetAmount  string    `json:"target_amount"`
	CurrentAmount string    `json:"current_amount"`
	Frequency     string    `json:"frequency"`
	Status        string    `json:"status"`
	Progress      string    `json:"progress"`
	CreatedAt     time.Time `json:"created_at"`
}

func newBucketView(b model.SavingsBucket) bucketView {
	return bucketView{
		ID:            b.ID,
		Name:          b.Name,
		TargetAmount:  money(b.TargetAmount),
		CurrentAmount: money(b.CurrentAmount),
		Frequency:     string(b.Frequency),
		Status:        string(b.Status),
		Progress:      b.Progress().StringFixed(1),
		CreatedAt:     b.CreatedAt,
	}
}

type txnView struct {
	ID        uint64    `json:"id"`
	Amount    string    `json:"amount"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

func newTxnView(t model.SavingsTransaction) txnView {
	return txnView{ID: t.ID, Amount: money(t.Amount), Type: string(t.Type), CreatedAt: t.CreatedAt}
}

type statsView struct {
	Students          int64  `json:"students"`
	AdvancesTotal     int64  `json:"advances_total"`
	AdvancesPending   int64  `json:"advances_pending"`
	AdvancesActive    int64  `json:"advances_active"`
	AdvancesCompleted int64  `json:"advances_completed"`
	AdvancesRejected  int64  `json:"advances_rejected"`
	AdvancesDefaulted int64  `json:"advances_defaulted"`
	FundsDisbursed    string `json:"funds_disbursed"`
	TotalSavings      string `json:"total_savings"`
	RepaymentsPaid    int64  `json:"repayments_paid"`
	RepaymentsPending int64  `json:"repayments_pending"`
	RepaymentsOverdue int64  `json:"repayments_overdue"`
	CollectionRate    string `json:"collection_rate"`
}

func newStatsView(s model.Stats) statsView {
	return statsView{
		Students:          s.Students,
		AdvancesTotal:     s.AdvancesTotal,
		AdvancesPending:   s.AdvancesPending,
		AdvancesActive:    s.AdvancesActive,
		AdvancesCompleted: s.AdvancesCompleted,
		AdvancesRejected:  s.AdvancesRejected,
		AdvancesDefaulted: s.AdvancesDefaulted,
		FundsDisbursed:    money(s.FundsDisbursed),
		TotalSavings:      money(s.TotalSavings),
		RepaymentsPaid:    s.RepaymentsPaid,
		RepaymentsPending: s.RepaymentsPending,
		RepaymentsOverdue: s.RepaymentsOverdue,
		CollectionRate:    s.CollectionRate.StringFixed(1),
	}
}

type driftView struct {
	BucketID uint64 `json:"bucket_id"`
	UserID   uint64 `json:"user_id"`
	Cached   string `json:"cached"`
	Ledger   string `json:"ledger"`
	Delta    string `json:"delta"`
}

func newDriftViews(ds []model.BucketDrift) []driftView {
	out := make([]driftView, 0, len(ds))
	for _, d := range ds {
		out = append(out, driftView{
			BucketID: d.BucketID,
			UserID:   d.UserID,
			Cached:   money(d.Cached),
			Ledger:   money(d.Ledger),
			Delta:    money(d.Delta()),
		})
	}
	return out
}
