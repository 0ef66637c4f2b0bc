package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/tuition-ledger/internal/database"
	"github.com/iliyamo/tuition-ledger/internal/model"
)

const advanceColumns = "a.id,a.user_id,a.school_id,a.amount,a.duration_months,a.interest_rate," +
	"a.total_repayment,a.status,a.admin_notes,a.created_at,a.approved_at"

const advanceDetailSelect = "SELECT " + advanceColumns + ",s.name,s.wallet_address,u.email,u.full_name " +
	"FROM advances a JOIN schools s ON s.id=a.school_id JOIN users u ON u.id=a.user_id"

// AdvanceRepo provides data access to the advances table.
type AdvanceRepo struct {
	db      *sql.DB
	dialect database.Dialect
}

func NewAdvanceRepo(s *Store) *AdvanceRepo { return &AdvanceRepo{db: s.db, dialect: s.dialect} }

// CreateTx inserts a pending advance and fills in its ID.  The storage
// constraint on open advances surfaces as ErrOpenAdvanceExists.
func (r *AdvanceRepo) CreateTx(ctx context.Context, tx *sql.Tx, a *model.Advance) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO advances (user_id, school_id, amount, duration_months, interest_rate, total_repayment, status, created_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		a.UserID, a.SchoolID, a.Amount, a.DurationMonths, a.InterestRate, a.TotalRepayment,
		string(a.Status), a.CreatedAt)
	if err != nil {
		return classifyAs(err, ErrOpenAdvanceExists)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// HasOpenTx reports whether the user has a pending or active advance.
func (r *AdvanceRepo) HasOpenTx(ctx context.Context, tx *sql.Tx, userID uint64) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM advances WHERE user_id=? AND status IN (?,?)",
		userID, string(model.AdvancePending), string(model.AdvanceActive)).Scan(&n)
	return n > 0, err
}

// GetForUpdateTx loads an advance inside tx and locks it on MySQL.
func (r *AdvanceRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Advance, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT "+advanceColumns+" FROM advances a WHERE a.id=?"+forUpdate(r.dialect), id)
	a, err := scanAdvance(row)
	return a, notFound(err, ErrAdvanceNotFound)
}

// TransitionTx moves an advance from one status to another.  The update
// is conditional on the current status, so a concurrent transition makes
// it fail with ErrStaleState instead of overwriting.  Nil notes or
// approvedAt leave the stored values untouched.
func (r *AdvanceRepo) TransitionTx(ctx context.Context, tx *sql.Tx, id uint64, from, to model.AdvanceStatus, notes *string, approvedAt *time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE advances
		    SET status=?, admin_notes=COALESCE(?, admin_notes), approved_at=COALESCE(?, approved_at)
		  WHERE id=? AND status=?`,
		string(to), nullString(notes), nullTime(approvedAt), id, string(from))
	if err != nil {
		return classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return ErrStaleState
	}
	return nil
}

// GetDetail returns one advance with its school and owner fields.
func (r *AdvanceRepo) GetDetail(ctx context.Context, id uint64) (model.AdvanceDetail, error) {
	row := r.db.QueryRowContext(ctx, advanceDetailSelect+" WHERE a.id=?", id)
	d, err := scanAdvanceDetail(row)
	return d, notFound(err, ErrAdvanceNotFound)
}

// AdvanceFilter narrows List.  Zero values mean no filter.
type AdvanceFilter struct {
	UserID uint64
	Status model.AdvanceStatus
}

// List returns advances matching f, newest first.
func (r *AdvanceRepo) List(ctx context.Context, f AdvanceFilter) ([]model.AdvanceDetail, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != 0 {
		where = append(where, "a.user_id=?")
		args = append(args, f.UserID)
	}
	if f.Status != "" {
		where = append(where, "a.status=?")
		args = append(args, string(f.Status))
	}
	q := advanceDetailSelect
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY a.created_at DESC, a.id DESC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.AdvanceDetail
	for rows.Next() {
		d, err := scanAdvanceDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanAdvance(s rowScanner) (model.Advance, error) {
	var (
		a        model.Advance
		status   string
		notes    sql.NullString
		approved sql.NullTime
	)
	if err := s.Scan(advanceDest(&a, &status, &notes, &approved)...); err != nil {
		return a, err
	}
	finishAdvance(&a, status, notes, approved)
	return a, nil
}

// advanceDest returns scan targets for advanceColumns.  The caller passes
// holders for the columns that need post-processing and must call
// finishAdvance after a successful scan.
func advanceDest(a *model.Advance, status *string, notes *sql.NullString, approved *sql.NullTime) []any {
	return []any{&a.ID, &a.UserID, &a.SchoolID, &a.Amount, &a.DurationMonths, &a.InterestRate,
		&a.TotalRepayment, status, notes, &a.CreatedAt, approved}
}

func finishAdvance(a *model.Advance, status string, notes sql.NullString, approved sql.NullTime) {
	a.Status = model.AdvanceStatus(status)
	if notes.Valid {
		a.AdminNotes = &notes.String
	}
	if approved.Valid {
		t := approved.Time
		a.ApprovedAt = &t
	}
}

func scanAdvanceDetail(s rowScanner) (model.AdvanceDetail, error) {
	var (
		d        model.AdvanceDetail
		status   string
		notes    sql.NullString
		approved sql.NullTime
	)
	dest := append(advanceDest(&d.Advance, &status, &notes, &approved),
		&d.SchoolName, &d.SchoolWallet, &d.UserEmail, &d.UserFullName)
	if err := s.Scan(dest...); err != nil {
		return d, err
	}
	finishAdvance(&d.Advance, status, notes, approved)
	return d, nil
}
