package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/tuition-ledger/internal/apperr"
	"github.com/iliyamo/tuition-ledger/internal/model"
	"github.com/iliyamo/tuition-ledger/internal/repository"
)

// AdminService exposes oversight operations: platform statistics, user
// and school management, and the admin side of the advance lifecycle.
type AdminService struct {
	users    *repository.UserRepo
	schools  *repository.SchoolRepo
	stats    *repository.StatsRepo
	advances *AdvanceService
	savings  *SavingsService
	log      *logrus.Logger
}

func NewAdminService(store *repository.Store, advances *AdvanceService, savings *SavingsService, log *logrus.Logger) *AdminService {
	return &AdminService{
		users:    repository.NewUserRepo(store),
		schools:  repository.NewSchoolRepo(store),
		stats:    repository.NewStatsRepo(store),
		advances: advances,
		savings:  savings,
		log:      log,
	}
}

// Stats aggregates platform counters.  The collection rate is the share
// of settled installments among paid and pending ones, as a percentage
// with one decimal, and zero when there are none.
func (s *AdminService) Stats(ctx context.Context, p Principal) (model.Stats, error) {
	if err := requireRole(p, model.RoleAdmin); err != nil {
		return model.Stats{}, err
	}
	st, err := s.stats.Collect(ctx)
	if err != nil {
		return model.Stats{}, err
	}
	st.CollectionRate = CollectionRate(st.RepaymentsPaid, st.RepaymentsPending)
	return st, nil
}

// CollectionRate returns paid/(paid+pending) as a percentage.
func CollectionRate(paid, pending int64) decimal.Decimal {
	den := paid + pending
	if den == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(paid).Mul(hundred).Div(decimal.NewFromInt(den)).Round(1)
}

// ListUsers returns every account, newest first.
func (s *AdminService) ListUsers(ctx context.Context, p Principal) ([]model.User, error) {
	if err := requireRole(p, model.RoleAdmin); err != nil {
		return nil, err
	}
	return s.users.List(ctx)
}

// ListSchools returns every school, verified or not.
func (s *AdminService) ListSchools(ctx context.Context, p Principal) ([]model.School, error) {
	if err := requireRole(p, model.RoleAdmin); err != nil {
		return nil, err
	}
	return s.schools.ListAll(ctx)
}

// AddSchool registers a payee.  Wallet addresses are unique.
func (s *AdminService) AddSchool(ctx context.Context, p Principal, name, wallet string, verified bool) (model.School, error) {
	if err := requireRole(p, model.RoleAdmin); err != nil {
		return model.School{}, err
	}
	name, wallet = strings.TrimSpace(name), strings.TrimSpace(wallet)
	if name == "" || wallet == "" {
		return model.School{}, apperr.Validation("name and wallet address are required")
	}
	sc, err := s.schools.Create(ctx, name, wallet, verified)
	if err != nil {
		return model.School{}, err
	}
	s.log.WithFields(logrus.Fields{"school_id": sc.ID, "verified": sc.Verified, "admin_id": p.UserID}).Info("school added")
	return sc, nil
}

// SetSchoolVerified toggles whether students may select a school.
// Existing advances are unaffected.
func (s *AdminService) SetSchoolVerified(ctx context.Context, p Principal, schoolID uint64, verified bool) (model.School, error) {
	if err := requireRole(p, model.RoleAdmin); err != nil {
		return model.School{}, err
	}
	sc, err := s.schools.SetVerified(ctx, schoolID, verified)
	if err != nil {
		return model.School{}, err
	}
	s.log.WithFields(logrus.Fields{"school_id": sc.ID, "verified": sc.Verified, "admin_id": p.UserID}).Info("school verification changed")
	return sc, nil
}

// ListAdvances lists every advance, optionally filtered by status.
func (s *AdminService) ListAdvances(ctx context.Context, p Principal, status string) ([]model.AdvanceDetail, error) {
	if err := requireRole(p, model.RoleAdmin); err != nil {
		return nil, err
	}
	return s.advances.ListAdvances(ctx, p, status)
}

// DecideAdvance delegates to the advance engine.
func (s *AdminService) DecideAdvance(ctx context.Context, p Principal, advanceID uint64, decision, notes string) (DecisionResult, error) {
	return s.advances.DecideAdvance(ctx, p, advanceID, decision, notes)
}

// DeclareDefault delegates to the advance engine.
func (s *AdminService) DeclareDefault(ctx context.Context, p Principal, advanceID uint64, notes string) (model.Advance, error) {
	return s.advances.DeclareDefault(ctx, p, advanceID, notes)
}

// Reconcile reports savings buckets whose cached balance has drifted
// from their transaction log.
func (s *AdminService) Reconcile(ctx context.Context, p Principal) ([]model.BucketDrift, error) {
	if err := requireRole(p, model.RoleAdmin); err != nil {
		return nil, err
	}
	return s.savings.Reconcile(ctx, 0)
}
