package repository

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/tuition-ledger/internal/database"
	"github.com/iliyamo/tuition-ledger/internal/model"
)

const bucketColumns = "id,user_id,name,target_amount,current_amount,frequency,status,created_at"

// SavingsRepo provides data access to savings buckets and their
// transaction log.
type SavingsRepo struct {
	db      *sql.DB
	dialect database.Dialect
}

func NewSavingsRepo(s *Store) *SavingsRepo { return &SavingsRepo{db: s.db, dialect: s.dialect} }

// CreateBucket inserts an empty active bucket.
func (r *SavingsRepo) CreateBucket(ctx context.Context, b *model.SavingsBucket) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO savings_buckets (user_id, name, target_amount, current_amount, frequency, status, created_at)
		 VALUES (?,?,?,?,?,?,?)`,
		b.UserID, b.Name, b.TargetAmount, b.CurrentAmount, string(b.Frequency), string(b.Status), b.CreatedAt)
	if err != nil {
		return classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// GetForUpdateTx loads a bucket owned by userID inside tx, locking it on
// MySQL.  A bucket owned by someone else is reported as not found.
func (r *SavingsRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id, userID uint64) (model.SavingsBucket, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT "+bucketColumns+" FROM savings_buckets WHERE id=? AND user_id=?"+forUpdate(r.dialect), id, userID)
	b, err := scanBucket(row)
	return b, notFound(err, ErrBucketNotFound)
}

// UpdateBalanceTx writes the cached balance and status of a bucket.
func (r *SavingsRepo) UpdateBalanceTx(ctx context.Context, tx *sql.Tx, id uint64, balance decimal.Decimal, status model.BucketStatus) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE savings_buckets SET current_amount=?, status=? WHERE id=?",
		balance, string(status), id)
	if err != nil {
		return classify(err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return ErrBucketNotFound
	}
	return nil
}

// InsertTxnTx appends a ledger entry and fills in its ID.
func (r *SavingsRepo) InsertTxnTx(ctx context.Context, tx *sql.Tx, t *model.SavingsTransaction) error {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO savings_transactions (bucket_id, amount, type, created_at) VALUES (?,?,?,?)",
		t.BucketID, t.Amount, string(t.Type), t.CreatedAt)
	if err != nil {
		return classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// GetForUser returns a bucket owned by userID.
func (r *SavingsRepo) GetForUser(ctx context.Context, id, userID uint64) (model.SavingsBucket, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+bucketColumns+" FROM savings_buckets WHERE id=? AND user_id=?", id, userID)
	b, err := scanBucket(row)
	return b, notFound(err, ErrBucketNotFound)
}

// ListByUser returns a user's buckets, newest first.
func (r *SavingsRepo) ListByUser(ctx context.Context, userID uint64) ([]model.SavingsBucket, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+bucketColumns+" FROM savings_buckets WHERE user_id=? ORDER BY created_at DESC, id DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SavingsBucket
	for rows.Next() {
		b, err := scanBucket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListTxns returns a bucket's ledger, newest first.
func (r *SavingsRepo) ListTxns(ctx context.Context, bucketID uint64) ([]model.SavingsTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id,bucket_id,amount,type,created_at FROM savings_transactions WHERE bucket_id=? ORDER BY created_at DESC, id DESC",
		bucketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SavingsTransaction
	for rows.Next() {
		var (
			t  model.SavingsTransaction
			tt string
		)
		if err := rows.Scan(&t.ID, &t.BucketID, &t.Amount, &tt, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Type = model.TxnType(tt)
		out = append(out, t)
	}
	return out, rows.Err()
}

// Ledger returns, per bucket, the cached balance next to the balance
// recomputed from the transaction log.  bucketID 0 selects every bucket.
func (r *SavingsRepo) Ledger(ctx context.Context, bucketID uint64) ([]model.BucketDrift, error) {
	q := `SELECT b.id, b.user_id, b.current_amount,
	             COALESCE(SUM(CASE WHEN t.type='deposit' THEN t.amount ELSE -t.amount END), 0)
	        FROM savings_buckets b
	        LEFT JOIN savings_transactions t ON t.bucket_id=b.id`
	var args []any
	if bucketID != 0 {
		q += " WHERE b.id=?"
		args = append(args, bucketID)
	}
	q += " GROUP BY b.id, b.user_id, b.current_amount ORDER BY b.id"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.BucketDrift
	for rows.Next() {
		var d model.BucketDrift
		if err := rows.Scan(&d.BucketID, &d.UserID, &d.Cached, &d.Ledger); err != nil {
			return nil, err
		}
		// SQLite sums in floating point.
		d.Cached = d.Cached.Round(2)
		d.Ledger = d.Ledger.Round(2)
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanBucket(s rowScanner) (model.SavingsBucket, error) {
	var (
		b         model.SavingsBucket
		frequency string
		status    string
	)
	if err := s.Scan(&b.ID, &b.UserID, &b.Name, &b.TargetAmount, &b.CurrentAmount, &frequency, &status, &b.CreatedAt); err != nil {
		return b, err
	}
	b.Frequency = model.Frequency(frequency)
	b.Status = model.BucketStatus(status)
	return b, nil
}
