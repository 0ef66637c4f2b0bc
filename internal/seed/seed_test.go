package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tuition-ledger/internal/database"
	"github.com/iliyamo/tuition-ledger/internal/logger"
	"github.com/iliyamo/tuition-ledger/internal/model"
	"github.com/iliyamo/tuition-ledger/internal/repository"
	"github.com/iliyamo/tuition-ledger/internal/utils"
)

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(ctx, db, database.SQLite))
	store := repository.NewStore(db, database.SQLite)

	cfg := Config{AdminEmail: "Admin@EduFund.ph", AdminPassword: "admin123", BcryptCost: 4}

	first, err := Run(ctx, store, cfg, logger.Discard())
	require.NoError(t, err)
	assert.True(t, first.AdminCreated)
	assert.Equal(t, len(DefaultSchools), first.SchoolsCreated)

	second, err := Run(ctx, store, cfg, logger.Discard())
	require.NoError(t, err)
	assert.False(t, second.AdminCreated)
	assert.Zero(t, second.SchoolsCreated)

	admin, err := repository.NewUserRepo(store).GetByEmail(ctx, "admin@edufund.ph")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, admin.Role)
	assert.True(t, utils.VerifyPassword(admin.PasswordHash, "admin123"))

	verified, err := repository.NewSchoolRepo(store).ListVerified(ctx)
	require.NoError(t, err)
	assert.Len(t, verified, len(DefaultSchools))
}
