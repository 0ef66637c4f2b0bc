package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tuition-ledger/internal/apperr"
	"github.com/iliyamo/tuition-ledger/internal/model"
)

func TestStatsAggregates(t *testing.T) {
	f := newFixture(t)
	admin := f.adminUser()
	ana := f.student("ana@example.com")
	ben := f.student("ben@example.com")
	sc := f.school("0xaaa", true)

	empty, err := f.admin.Stats(f.ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, int64(2), empty.Students)
	assert.Zero(t, empty.AdvancesTotal)
	assert.True(t, empty.CollectionRate.IsZero())
	assert.True(t, empty.FundsDisbursed.IsZero())

	a := f.request(ana, sc.ID, "50000", 6)
	f.approve(admin, a.ID)
	for i := 0; i < 2; i++ {
		_, err := f.advances.ApplyRepayment(f.ctx, ana, a.ID)
		require.NoError(t, err)
	}
	b := f.request(ben, sc.ID, "2000", 3)
	_, err = f.admin.DecideAdvance(f.ctx, admin, b.ID, "rejected", "")
	require.NoError(t, err)

	bucket := f.bucket(ben, "5000")
	_, err = f.savings.Deposit(f.ctx, ben, bucket.ID, dec("1500.75"))
	require.NoError(t, err)

	st, err := f.admin.Stats(f.ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.AdvancesTotal)
	assert.Equal(t, int64(1), st.AdvancesActive)
	assert.Equal(t, int64(1), st.AdvancesRejected)
	assert.Zero(t, st.AdvancesPending)
	assert.True(t, st.FundsDisbursed.Equal(dec("50000")), st.FundsDisbursed.String())
	assert.True(t, st.TotalSavings.Equal(dec("1500.75")), st.TotalSavings.String())
	assert.Equal(t, int64(2), st.RepaymentsPaid)
	assert.Equal(t, int64(4), st.RepaymentsPending)
	assert.True(t, st.CollectionRate.Equal(dec("33.3")), st.CollectionRate.String())
}

func TestAddSchool(t *testing.T) {
	f := newFixture(t)
	admin := f.adminUser()

	sc, err := f.admin.AddSchool(f.ctx, admin, "  Ateneo  ", " 0xabc ", false)
	require.NoError(t, err)
	assert.Equal(t, "Ateneo", sc.Name)
	assert.Equal(t, "0xabc", sc.WalletAddress)
	assert.False(t, sc.Verified)

	_, err = f.admin.AddSchool(f.ctx, admin, "Other", "0xabc", true)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = f.admin.AddSchool(f.ctx, admin, "", "0xdef", true)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	schools, err := f.admin.ListSchools(f.ctx, admin)
	require.NoError(t, err)
	assert.Len(t, schools, 1)

	verified, err := f.advances.ListVerifiedSchools(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, verified)
}

func TestSetSchoolVerified(t *testing.T) {
	f := newFixture(t)
	admin := f.adminUser()
	st := f.student("ana@example.com")
	sc := f.school("0xaaa", false)

	got, err := f.admin.SetSchoolVerified(f.ctx, admin, sc.ID, true)
	require.NoError(t, err)
	assert.True(t, got.Verified)

	a := f.request(st, sc.ID, "5000", 3)

	got, err = f.admin.SetSchoolVerified(f.ctx, admin, sc.ID, false)
	require.NoError(t, err)
	assert.False(t, got.Verified)

	// Existing advances keep going.
	f.approve(admin, a.ID)

	_, err = f.admin.SetSchoolVerified(f.ctx, admin, 999, true)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestListUsersNewestFirst(t *testing.T) {
	f := newFixture(t)
	admin := f.adminUser()
	f.student("ana@example.com")
	f.student("ben@example.com")

	users, err := f.admin.ListUsers(f.ctx, admin)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "ben@example.com", users[0].Email)
	assert.Equal(t, model.RoleAdmin, users[2].Role)
}

func TestReconcileDetectsDrift(t *testing.T) {
	f := newFixture(t)
	admin := f.adminUser()
	st := f.student("ana@example.com")
	good := f.bucket(st, "5000")
	bad := f.bucket(st, "5000")
	for _, id := range []uint64{good.ID, bad.ID} {
		_, err := f.savings.Deposit(f.ctx, st, id, dec("1000"))
		require.NoError(t, err)
	}

	drift, err := f.admin.Reconcile(f.ctx, admin)
	require.NoError(t, err)
	assert.Empty(t, drift)

	_, err = f.store.DB().ExecContext(f.ctx, "UPDATE savings_buckets SET current_amount=? WHERE id=?", "1234.56", bad.ID)
	require.NoError(t, err)

	drift, err = f.admin.Reconcile(f.ctx, admin)
	require.NoError(t, err)
	require.Len(t, drift, 1)
	assert.Equal(t, bad.ID, drift[0].BucketID)
	assert.True(t, drift[0].Cached.Equal(dec("1234.56")))
	assert.True(t, drift[0].Ledger.Equal(dec("1000")))
	assert.True(t, drift[0].Delta().Equal(dec("234.56")), drift[0].Delta().String())
}

func TestAdminOperationsRequireAdmin(t *testing.T) {
	f := newFixture(t)
	st := f.student("ana@example.com")

	_, err := f.admin.Stats(f.ctx, st)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	_, err = f.admin.ListUsers(f.ctx, st)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	_, err = f.admin.ListSchools(f.ctx, st)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	_, err = f.admin.AddSchool(f.ctx, st, "X", "0x1", true)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	_, err = f.admin.SetSchoolVerified(f.ctx, st, 1, true)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	_, err = f.admin.ListAdvances(f.ctx, st, "")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	_, err = f.admin.Reconcile(f.ctx, st)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	_, err = f.admin.DecideAdvance(f.ctx, st, 1, "approved", "")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}
