package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/tuition-ledger/internal/model"
)

const schoolColumns = "id,name,wallet_address,verified,created_at"

// SchoolRepo manages the payee whitelist.
type SchoolRepo struct{ db *sql.DB }

func NewSchoolRepo(s *Store) *SchoolRepo { return &SchoolRepo{db: s.db} }

// Create inserts a school.  A wallet address already on file yields
// ErrWalletExists.
func (r *SchoolRepo) Create(ctx context.Context, name, wallet string, verified bool) (model.School, error) {
	s := model.School{
		Name:          strings.TrimSpace(name),
		WalletAddress: strings.TrimSpace(wallet),
		Verified:      verified,
		CreatedAt:     time.Now().UTC(),
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO schools (name, wallet_address, verified, created_at) VALUES (?,?,?,?)",
		s.Name, s.WalletAddress, s.Verified, s.CreatedAt)
	if err != nil {
		return model.School{}, classifyAs(err, ErrWalletExists)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.School{}, err
	}
	s.ID = uint64(id)
	return s, nil
}

// GetByID fetches a school regardless of its verified flag.
func (r *SchoolRepo) GetByID(ctx context.Context, id uint64) (model.School, error) {
	return r.get(ctx, r.db, id)
}

// GetTx fetches a school inside tx.
func (r *SchoolRepo) GetTx(ctx context.Context, tx *sql.Tx, id uint64) (model.School, error) {
	return r.get(ctx, tx, id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *SchoolRepo) get(ctx context.Context, q queryRower, id uint64) (model.School, error) {
	var s model.School
	err := q.QueryRowContext(ctx,
		"SELECT "+schoolColumns+" FROM schools WHERE id=?", id).
		Scan(&s.ID, &s.Name, &s.WalletAddress, &s.Verified, &s.CreatedAt)
	return s, notFound(err, ErrSchoolNotFound)
}

// ListAll returns every school ordered by name.
func (r *SchoolRepo) ListAll(ctx context.Context) ([]model.School, error) {
	return r.list(ctx, "SELECT "+schoolColumns+" FROM schools ORDER BY name, id")
}

// ListVerified returns the schools a student may choose.
func (r *SchoolRepo) ListVerified(ctx context.Context) ([]model.School, error) {
	return r.list(ctx, "SELECT "+schoolColumns+" FROM schools WHERE verified=? ORDER BY name, id", true)
}

func (r *SchoolRepo) list(ctx context.Context, query string, args ...any) ([]model.School, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.School
	for rows.Next() {
		var s model.School
		if err := rows.Scan(&s.ID, &s.Name, &s.WalletAddress, &s.Verified, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SetVerified flips the verified flag.
func (r *SchoolRepo) SetVerified(ctx context.Context, id uint64, verified bool) (model.School, error) {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE schools SET verified=? WHERE id=?", verified, id); err != nil {
		return model.School{}, classify(err)
	}
	// MySQL reports zero affected rows when the value is unchanged, so
	// existence is checked by reading the row back.
	return r.GetByID(ctx, id)
}

// ExistsByWallet reports whether a school with wallet is on file.
func (r *SchoolRepo) ExistsByWallet(ctx context.Context, wallet string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM schools WHERE wallet_address=?", strings.TrimSpace(wallet)).Scan(&n)
	return n > 0, err
}
