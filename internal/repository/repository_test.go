package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tuition-ledger/internal/apperr"
	"github.com/iliyamo/tuition-ledger/internal/database"
	"github.com/iliyamo/tuition-ledger/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, database.SQLite))
	return NewStore(db, database.SQLite)
}

func TestClassifyMySQLErrors(t *testing.T) {
	cases := []struct {
		number uint16
		want   apperr.Kind
	}{
		{mysqlDupEntry, apperr.KindConflict},
		{mysqlRowIsReferenced, apperr.KindReferentialIntegrity},
		{mysqlNoReferencedRow, apperr.KindReferentialIntegrity},
		{mysqlCheckViolated, apperr.KindDomainConstraint},
		{mysqlBadNull, apperr.KindDomainConstraint},
		{1205, apperr.KindInternal},
	}
	for _, c := range cases {
		err := classify(fmt.Errorf("exec: %w", &mysql.MySQLError{Number: c.number, Message: "boom"}))
		assert.Equal(t, c.want, apperr.KindOf(err), "error %d", c.number)
	}
	assert.Nil(t, classify(nil))

	err := classifyAs(&mysql.MySQLError{Number: mysqlDupEntry}, ErrEmailExists)
	assert.Same(t, ErrEmailExists, err)
}

func TestDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	users := NewUserRepo(s)

	id, err := users.Create(ctx, NewUser{Email: " Ana@Example.com ", Password: "secret1", FullName: "Ana", Role: model.RoleStudent}, 4)
	require.NoError(t, err)

	_, err = users.Create(ctx, NewUser{Email: "ana@example.com", Password: "secret2", FullName: "Ana 2", Role: model.RoleStudent}, 4)
	assert.True(t, errors.Is(err, ErrEmailExists))

	u, err := users.GetByEmail(ctx, "ANA@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.Nil(t, u.WalletAddress)

	_, err = users.GetByID(ctx, 999)
	assert.True(t, errors.Is(err, ErrUserNotFound))
}

func TestStorageConstraints(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	uid, err := NewUserRepo(s).Create(ctx, NewUser{Email: "ana@example.com", Password: "secret1", FullName: "Ana", Role: model.RoleStudent}, 4)
	require.NoError(t, err)
	sc, err := NewSchoolRepo(s).Create(ctx, "UP Diliman", "0xabc", true)
	require.NoError(t, err)

	_, err = NewSchoolRepo(s).Create(ctx, "Copy", "0xabc", true)
	assert.True(t, errors.Is(err, ErrWalletExists))

	advances := NewAdvanceRepo(s)
	insert := func(a model.Advance) error {
		return s.WithinTx(ctx, func(tx *sql.Tx) error { return advances.CreateTx(ctx, tx, &a) })
	}
	base := model.Advance{
		UserID: uid, SchoolID: sc.ID, Amount: decimal.NewFromInt(5000), DurationMonths: 3,
		InterestRate: decimal.RequireFromString("0.06"), TotalRepayment: decimal.NewFromInt(5300),
		Status: model.AdvancePending, CreatedAt: now,
	}

	orphan := base
	orphan.SchoolID = 999
	assert.Equal(t, apperr.KindReferentialIntegrity, apperr.KindOf(insert(orphan)))

	tooLong := base
	tooLong.DurationMonths = 9
	assert.Equal(t, apperr.KindDomainConstraint, apperr.KindOf(insert(tooLong)))

	tooSmall := base
	tooSmall.Amount = decimal.NewFromInt(10)
	assert.Equal(t, apperr.KindDomainConstraint, apperr.KindOf(insert(tooSmall)))

	badStatus := base
	badStatus.Status = "archived"
	assert.Equal(t, apperr.KindDomainConstraint, apperr.KindOf(insert(badStatus)))

	require.NoError(t, insert(base))
	assert.True(t, errors.Is(insert(base), ErrOpenAdvanceExists))

	closed := base
	closed.Status = model.AdvanceRejected
	require.NoError(t, insert(closed))
}

func TestWithinTxRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schools (name, wallet_address, verified, created_at) VALUES (?,?,?,?)",
			"Ghost", "0xghost", true, time.Now().UTC()); err != nil {
			return err
		}
		return boom
	})
	assert.Same(t, boom, err)

	exists, err := NewSchoolRepo(s).ExistsByWallet(ctx, "0xghost")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.Panics(t, func() {
		_ = s.WithinTx(ctx, func(tx *sql.Tx) error { panic("kaboom") })
	})
	// The connection must be usable again after the panic.
	_, err = NewSchoolRepo(s).ListAll(ctx)
	require.NoError(t, err)
}

func TestAdvanceTransitionCompareAndSet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	uid, err := NewUserRepo(s).Create(ctx, NewUser{Email: "ana@example.com", Password: "secret1", FullName: "Ana", Role: model.RoleStudent}, 4)
	require.NoError(t, err)
	sc, err := NewSchoolRepo(s).Create(ctx, "UP Diliman", "0xabc", true)
	require.NoError(t, err)

	advances := NewAdvanceRepo(s)
	a := model.Advance{
		UserID: uid, SchoolID: sc.ID, Amount: decimal.NewFromInt(5000), DurationMonths: 3,
		InterestRate: decimal.RequireFromString("0.06"), TotalRepayment: decimal.NewFromInt(5300),
		Status: model.AdvancePending, CreatedAt: now,
	}
	require.NoError(t, s.WithinTx(ctx, func(tx *sql.Tx) error { return advances.CreateTx(ctx, tx, &a) }))

	approvedAt := now.Add(time.Hour)
	err = s.WithinTx(ctx, func(tx *sql.Tx) error {
		return advances.TransitionTx(ctx, tx, a.ID, model.AdvancePending, model.AdvanceActive, nil, &approvedAt)
	})
	require.NoError(t, err)

	err = s.WithinTx(ctx, func(tx *sql.Tx) error {
		return advances.TransitionTx(ctx, tx, a.ID, model.AdvancePending, model.AdvanceRejected, nil, nil)
	})
	assert.True(t, errors.Is(err, ErrStaleState))

	d, err := advances.GetDetail(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AdvanceActive, d.Status)
	require.NotNil(t, d.ApprovedAt)
	assert.True(t, d.ApprovedAt.Equal(approvedAt))
	assert.Equal(t, "ana@example.com", d.UserEmail)
	assert.Equal(t, "0xabc", d.SchoolWallet)
	assert.True(t, d.Amount.Equal(decimal.NewFromInt(5000)))
}
