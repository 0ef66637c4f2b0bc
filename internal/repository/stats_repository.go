package repository

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/tuition-ledger/internal/model"
)

// StatsRepo runs the aggregate queries behind the admin dashboard.
type StatsRepo struct{ db *sql.DB }

func NewStatsRepo(s *Store) *StatsRepo { return &StatsRepo{db: s.db} }

// Collect fills every counter of model.Stats except CollectionRate,
// which is derived by the caller.
func (r *StatsRepo) Collect(ctx context.Context) (model.Stats, error) {
	var st model.Stats

	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE role=?", string(model.RoleStudent)).Scan(&st.Students); err != nil {
		return st, err
	}

	byStatus, err := r.countBy(ctx, "SELECT status, COUNT(*) FROM advances GROUP BY status")
	if err != nil {
		return st, err
	}
	st.AdvancesPending = byStatus[string(model.AdvancePending)]
	st.AdvancesActive = byStatus[string(model.AdvanceActive)]
	st.AdvancesCompleted = byStatus[string(model.AdvanceCompleted)]
	st.AdvancesRejected = byStatus[string(model.AdvanceRejected)]
	st.AdvancesDefaulted = byStatus[string(model.AdvanceDefaulted)]
	for _, n := range byStatus {
		st.AdvancesTotal += n
	}

	if err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount), 0) FROM advances WHERE status IN (?,?)",
		string(model.AdvanceActive), string(model.AdvanceCompleted)).Scan(&st.FundsDisbursed); err != nil {
		return st, err
	}
	if err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(current_amount), 0) FROM savings_buckets").Scan(&st.TotalSavings); err != nil {
		return st, err
	}
	st.FundsDisbursed = st.FundsDisbursed.Round(2)
	st.TotalSavings = st.TotalSavings.Round(2)

	byRepayment, err := r.countBy(ctx, "SELECT status, COUNT(*) FROM repayments GROUP BY status")
	if err != nil {
		return st, err
	}
	st.RepaymentsPaid = byRepayment[string(model.RepaymentPaid)]
	st.RepaymentsPending = byRepayment[string(model.RepaymentPending)]
	st.RepaymentsOverdue = byRepayment[string(model.RepaymentOverdue)]
	st.CollectionRate = decimal.Zero
	return st, nil
}

func (r *StatsRepo) countBy(ctx context.Context, query string) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int64{}
	for rows.Next() {
		var (
			k string
			n int64
		)
		if err := rows.Scan(&k, &n); err != nil {
			return nil, err
		}
		out[k] = n
	}
	return out, rows.Err()
}
