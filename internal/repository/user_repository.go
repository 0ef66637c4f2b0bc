package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/tuition-ledger/internal/database"
	"github.com/iliyamo/tuition-ledger/internal/model"
	"github.com/iliyamo/tuition-ledger/internal/utils"
)

const userColumns = "id,email,password_hash,full_name,role,wallet_address,created_at,updated_at"

type UserRepo struct {
	DB      *sql.DB
	dialect database.Dialect
}

func NewUserRepo(s *Store) *UserRepo { return &UserRepo{DB: s.db, dialect: s.dialect} }

// NewUser carries the fields needed to create an account.
type NewUser struct {
	Email    string
	Password string
	FullName string
	Role     model.Role
}

// Create hashes the password, inserts the user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, u NewUser, cost int) (uint64, error) {
	email := strings.ToLower(strings.TrimSpace(u.Email))
	hash, err := utils.HashPassword(u.Password, cost)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, full_name, role, created_at, updated_at) VALUES (?,?,?,?,?,?)",
		email, hash, strings.TrimSpace(u.FullName), string(u.Role), now, now)
	if err != nil {
		return 0, classifyAs(err, ErrEmailExists)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
	u, err := scanUser(row)
	return u, notFound(err, ErrUserNotFound)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	u, err := scanUser(row)
	return u, notFound(err, ErrUserNotFound)
}

// LockTx loads the user row inside tx, locking it on MySQL.  Advance
// creation locks the requesting user so two concurrent requests from the
// same student serialize on the open-advance check.
func (r *UserRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) (model.User, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=?"+forUpdate(r.dialect), id)
	u, err := scanUser(row)
	return u, notFound(err, ErrUserNotFound)
}

// List returns all users, newest first.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpdateWallet sets or clears the user's wallet address.
func (r *UserRepo) UpdateWallet(ctx context.Context, id uint64, wallet *string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET wallet_address=?, updated_at=? WHERE id=?",
		nullString(wallet), time.Now().UTC(), id)
	if err != nil {
		return classify(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// CountByRole counts users holding role.
func (r *UserRepo) CountByRole(ctx context.Context, role model.Role) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE role=?", string(role)).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (model.User, error) {
	var (
		u      model.User
		role   string
		wallet sql.NullString
	)
	err := s.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &role, &wallet, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return u, err
	}
	u.Role = model.Role(role)
	if wallet.Valid {
		u.WalletAddress = &wallet.String
	}
	return u, nil
}

func nullString(s *string) sql.NullString {
	if s == nil || strings.TrimSpace(*s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: strings.TrimSpace(*s), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
