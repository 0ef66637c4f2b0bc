package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tuition-ledger/internal/database"
	"github.com/iliyamo/tuition-ledger/internal/logger"
	"github.com/iliyamo/tuition-ledger/internal/model"
	"github.com/iliyamo/tuition-ledger/internal/queue"
	"github.com/iliyamo/tuition-ledger/internal/repository"
)

// fixture wires the engines over a fresh in-memory SQLite database with
// a controllable clock.
type fixture struct {
	t        *testing.T
	ctx      context.Context
	store    *repository.Store
	events   *queue.Recorder
	mu       sync.Mutex
	clock    time.Time
	advances *AdvanceService
	savings  *SavingsService
	admin    *AdminService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(ctx, db, database.SQLite))

	f := &fixture{
		t:      t,
		ctx:    ctx,
		store:  repository.NewStore(db, database.SQLite),
		events: &queue.Recorder{},
		clock:  time.Date(2026, 1, 31, 9, 0, 0, 0, time.UTC),
	}
	log := logger.Discard()
	f.advances = NewAdvanceService(f.store, f.events, log, f.now)
	f.savings = NewSavingsService(f.store, f.events, log, f.now)
	f.admin = NewAdminService(f.store, f.advances, f.savings, log)
	return f
}

// now advances the fixture clock by one second per call so rows get
// distinct, ordered timestamps.
func (f *fixture) now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fixture) user(email string, role model.Role) Principal {
	f.t.Helper()
	id, err := repository.NewUserRepo(f.store).Create(f.ctx, repository.NewUser{
		Email: email, Password: "secret1", FullName: email, Role: role,
	}, 4)
	require.NoError(f.t, err)
	return Principal{UserID: id, Role: role}
}

func (f *fixture) student(email string) Principal { return f.user(email, model.RoleStudent) }

func (f *fixture) adminUser() Principal { return f.user("admin@example.com", model.RoleAdmin) }

func (f *fixture) school(wallet string, verified bool) model.School {
	f.t.Helper()
	s, err := repository.NewSchoolRepo(f.store).Create(f.ctx, "School "+wallet, wallet, verified)
	require.NoError(f.t, err)
	return s
}

func (f *fixture) request(p Principal, schoolID uint64, amount string, months int) model.Advance {
	f.t.Helper()
	res, err := f.advances.RequestAdvance(f.ctx, p, AdvanceRequest{
		SchoolID: schoolID, Amount: dec(amount), DurationMonths: months,
	})
	require.NoError(f.t, err)
	return res.Advance
}

func (f *fixture) approve(admin Principal, advanceID uint64) DecisionResult {
	f.t.Helper()
	res, err := f.advances.DecideAdvance(f.ctx, admin, advanceID, "approved", "")
	require.NoError(f.t, err)
	return res
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
