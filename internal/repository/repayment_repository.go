package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/tuition-ledger/internal/model"
)

const repaymentColumns = "id,advance_id,amount,due_date,paid_at,status"

// RepaymentRepo provides data access to the repayments table.  Rows are
// created once when an advance is approved and are never deleted.
type RepaymentRepo struct{ db *sql.DB }

func NewRepaymentRepo(s *Store) *RepaymentRepo { return &RepaymentRepo{db: s.db} }

// CreateScheduleTx inserts the installments of an approved advance and
// fills in their IDs.
func (r *RepaymentRepo) CreateScheduleTx(ctx context.Context, tx *sql.Tx, schedule []model.Repayment) error {
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO repayments (advance_id, amount, due_date, status) VALUES (?,?,?,?)")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i := range schedule {
		p := &schedule[i]
		res, err := stmt.ExecContext(ctx, p.AdvanceID, p.Amount, p.DueDate, string(p.Status))
		if err != nil {
			return classify(err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		p.ID = uint64(id)
	}
	return nil
}

// NextPendingTx returns the earliest-due pending installment of an
// advance, or sql.ErrNoRows when none is left.
func (r *RepaymentRepo) NextPendingTx(ctx context.Context, tx *sql.Tx, advanceID uint64) (model.Repayment, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT "+repaymentColumns+" FROM repayments WHERE advance_id=? AND status=? ORDER BY due_date, id LIMIT 1",
		advanceID, string(model.RepaymentPending))
	return scanRepayment(row)
}

// MarkPaidTx settles a pending installment.
func (r *RepaymentRepo) MarkPaidTx(ctx context.Context, tx *sql.Tx, id uint64, paidAt time.Time) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE repayments SET status=?, paid_at=? WHERE id=? AND status=?",
		string(model.RepaymentPaid), paidAt, id, string(model.RepaymentPending))
	if err != nil {
		return classify(err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return ErrStaleState
	}
	return nil
}

// CountPendingTx counts the installments still owed on an advance.
func (r *RepaymentRepo) CountPendingTx(ctx context.Context, tx *sql.Tx, advanceID uint64) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM repayments WHERE advance_id=? AND status=?",
		advanceID, string(model.RepaymentPending)).Scan(&n)
	return n, err
}

// ListByAdvance returns the full schedule of an advance ordered by due date.
func (r *RepaymentRepo) ListByAdvance(ctx context.Context, advanceID uint64) ([]model.Repayment, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+repaymentColumns+" FROM repayments WHERE advance_id=? ORDER BY due_date, id", advanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Repayment
	for rows.Next() {
		p, err := scanRepayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanRepayment(s rowScanner) (model.Repayment, error) {
	var (
		p      model.Repayment
		paidAt sql.NullTime
		status string
	)
	if err := s.Scan(&p.ID, &p.AdvanceID, &p.Amount, &p.DueDate, &paidAt, &status); err != nil {
		return p, err
	}
	p.Status = model.RepaymentStatus(status)
	if paidAt.Valid {
		t := paidAt.Time
		p.PaidAt = &t
	}
	return p, nil
}
