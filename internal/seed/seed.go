// Package seed bootstraps a fresh database with an administrator and a
// starter set of verified schools.  Run is idempotent.
package seed

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/tuition-ledger/internal/model"
	"github.com/iliyamo/tuition-ledger/internal/repository"
)

// Config names the bootstrap administrator.
type Config struct {
	AdminEmail    string
	AdminPassword string
	AdminName     string
	BcryptCost    int
}

// School is a seeded payee.
type School struct {
	Name   string
	Wallet string
}

// DefaultSchools are created verified on first start.
var DefaultSchools = []School{
	{Name: "University of the Philippines", Wallet: "0x1234567890abcdef1234567890abcdef12345678"},
	{Name: "Ateneo de Manila University", Wallet: "0xabcdef1234567890abcdef1234567890abcdef12"},
	{Name: "De La Salle University", Wallet: "0x567890abcdef1234567890abcdef123456789012"},
	{Name: "University of Santo Tomas", Wallet: "0x90abcdef1234567890abcdef12345678901234ab"},
}

// Result counts the rows Run created.
type Result struct {
	AdminCreated   bool
	SchoolsCreated int
}

// Run creates the administrator and default schools that do not exist
// yet.  Existing rows are left untouched.
func Run(ctx context.Context, store *repository.Store, cfg Config, log *logrus.Logger) (Result, error) {
	var res Result
	users := repository.NewUserRepo(store)
	schools := repository.NewSchoolRepo(store)

	if cfg.AdminEmail != "" {
		_, err := users.GetByEmail(ctx, cfg.AdminEmail)
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			name := cfg.AdminName
			if name == "" {
				name = "System Admin"
			}
			if _, err := users.Create(ctx, repository.NewUser{
				Email:    cfg.AdminEmail,
				Password: cfg.AdminPassword,
				FullName: name,
				Role:     model.RoleAdmin,
			}, cfg.BcryptCost); err != nil {
				return res, err
			}
			res.AdminCreated = true
			log.WithField("email", cfg.AdminEmail).Info("seed: admin created")
		case err != nil:
			return res, err
		}
	}

	for _, s := range DefaultSchools {
		exists, err := schools.ExistsByWallet(ctx, s.Wallet)
		if err != nil {
			return res, err
		}
		if exists {
			continue
		}
		if _, err := schools.Create(ctx, s.Name, s.Wallet, true); err != nil {
			return res, err
		}
		res.SchoolsCreated++
	}
	if res.SchoolsCreated > 0 {
		log.WithField("schools", res.SchoolsCreated).Info("seed: schools created")
	}
	return res, nil
}
