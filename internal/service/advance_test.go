package service

import (
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tuition-ledger/internal/apperr"
	"github.com/iliyamo/tuition-ledger/internal/model"
	"github.com/iliyamo/tuition-ledger/internal/queue"
	"github.com/iliyamo/tuition-ledger/internal/repository"
)

func TestRequestAdvanceQuotesAndPersists(t *testing.T) {
	f := newFixture(t)
	st := f.student("ana@example.com")
	sc := f.school("0xaaa", true)

	res, err := f.advances.RequestAdvance(f.ctx, st, AdvanceRequest{
		SchoolID: sc.ID, Amount: dec("50000"), DurationMonths: 6,
	})
	require.NoError(t, err)

	assert.NotZero(t, res.Advance.ID)
	assert.Equal(t, model.AdvancePending, res.Advance.Status)
	assert.True(t, res.Quote.InterestRate.Equal(dec("0.12")))
	assert.True(t, res.Quote.TotalRepayment.Equal(dec("56000")))
	assert.True(t, res.Quote.MonthlyPayment.Equal(dec("9333.33")))

	view, err := f.advances.GetAdvance(f.ctx, st, res.Advance.ID)
	require.NoError(t, err)
	assert.True(t, view.Advance.Amount.Equal(dec("50000")))
	assert.True(t, view.Advance.TotalRepayment.Equal(dec("56000")))
	assert.Equal(t, sc.Name, view.Advance.SchoolName)
	assert.Nil(t, view.Advance.ApprovedAt)
	assert.Empty(t, view.Schedule)

	assert.Equal(t, []queue.EventType{queue.AdvanceRequested}, f.events.Types())
}

func TestRequestAdvanceRejectsSecondOpenAdvance(t *testing.T) {
	f := newFixture(t)
	st := f.student("ana@example.com")
	admin := f.adminUser()
	sc := f.school("0xaaa", true)

	first := f.request(st, sc.ID, "5000", 3)

	_, err := f.advances.RequestAdvance(f.ctx, st, AdvanceRequest{SchoolID: sc.ID, Amount: dec("2000"), DurationMonths: 3})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	f.approve(admin, first.ID)
	_, err = f.advances.RequestAdvance(f.ctx, st, AdvanceRequest{SchoolID: sc.ID, Amount: dec("2000"), DurationMonths: 3})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err), "active advance still blocks")

	other := f.student("ben@example.com")
	f.request(other, sc.ID, "2000", 3)
}

func TestRequestAdvanceAllowedAfterRejection(t *testing.T) {
	f := newFixture(t)
	st := f.student("ana@example.com")
	admin := f.adminUser()
	sc := f.school("0xaaa", true)

	a := f.request(st, sc.ID, "5000", 3)
	_, err := f.advances.DecideAdvance(f.ctx, admin, a.ID, "rejected", "incomplete documents")
	require.NoError(t, err)

	f.request(st, sc.ID, "4000", 4)
}

func TestRequestAdvanceConcurrentRequestsYieldOneAdvance(t *testing.T) {
	f := newFixture(t)
	st := f.student("ana@example.com")
	sc := f.school("0xaaa", true)

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.advances.RequestAdvance(f.ctx, st, AdvanceRequest{SchoolID: sc.ID, Amount: dec("3000"), DurationMonths: 3})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case apperr.KindOf(err) == apperr.KindConflict:
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conflicts)
}

func TestOpenAdvanceUniqueIndex(t *testing.T) {
	f := newFixture(t)
	st := f.student("ana@example.com")
	sc := f.school("0xaaa", true)
	repo := repository.NewAdvanceRepo(f.store)

	insert := func() error {
		return f.store.WithinTx(f.ctx, func(tx *sql.Tx) error {
			a := model.Advance{
				UserID: st.UserID, SchoolID: sc.ID, Amount: dec("1000"), DurationMonths: 3,
				InterestRate: dec("0.06"), TotalRepayment: dec("1060"), Status: model.AdvancePending,
				CreatedAt: f.now(),
			}
			return repo.CreateTx(f.ctx, tx, &a)
		})
	}
	require.NoError(t, insert())
	err := insert()
	assert.True(t, errors.Is(err, repository.ErrOpenAdvanceExists))
}

func TestRequestAdvanceSchoolChecks(t *testing.T) {
	f := newFixture(t)
	st := f.student("ana@example.com")
	unverified := f.school("0xbbb", false)

	_, err := f.advances.RequestAdvance(f.ctx, st, AdvanceRequest{SchoolID: unverified.ID, Amount: dec("5000"), DurationMonths: 3})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = f.advances.RequestAdvance(f.ctx, st, AdvanceRequest{SchoolID: 999, Amount: dec("5000"), DurationMonths: 3})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestRequestAdvanceValidation(t *testing.T) {
	f := newFixture(t)
	st := f.student("ana@example.com")
	sc := f.school("0xaaa", true)

	for _, req := range []AdvanceRequest{
		{SchoolID: sc.ID, Amount: dec("999"), DurationMonths: 3},
		{SchoolID: sc.ID, Amount: dec("600000"), DurationMonths: 3},
		{SchoolID: sc.ID, Amount: dec("5000"), DurationMonths: 12},
		{SchoolID: sc.ID, Amount: dec("5000.001"), DurationMonths: 3},
	} {
		_, err := f.advances.RequestAdvance(f.ctx, st, req)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	}

	_, err := f.advances.RequestAdvance(f.ctx, f.adminUser(), AdvanceRequest{SchoolID: sc.ID, Amount: dec("5000"), DurationMonths: 3})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	assert.Empty(t, f.events.Events())
}

func TestApproveGeneratesSchedule(t *testing.T) {
	f := newFixture(t)
	st := f.student("ana@example.com")
	admin := f.adminUser()
	sc := f.school("0xaaa", true)
	a := f.request(st, sc.ID, "50000", 6)

	res, err := f.advances.DecideAdvance(f.ctx, admin, a.ID, "approved", "  ")
	require.NoError(t, err)
	assert.Equal(t, model.AdvanceActive, res.Advance.Status)
	require.NotNil(t, res.Advance.ApprovedAt)
	assert.Nil(t, res.Advance.AdminNotes)

	view, err := f.advances.GetAdvance(f.ctx, st, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AdvanceActive, view.Advance.Status)
	require.NotNil(t, view.Advance.ApprovedAt)
	assert.Nil(t, view.Advance.AdminNotes)
	require.Len(t, view.Schedule, 6)

	sum := decimal.Zero
	for i, p := range view.Schedule {
		sum = sum.Add(p.Amount)
		assert.Equal(t, model.RepaymentPending, p.Status)
		assert.True(t, p.DueDate.Equal(res.Advance.ApprovedAt.AddDate(0, i+1, 0)), "installment %d due %s", i, p.DueDate)
		if i > 0 {
			assert.True(t, p.DueDate.After(view.Schedule[i-1].DueDate))
		}
	}
	assert.True(t, sum.Equal(dec("56000")), sum.String())
	assert.Equal(t, []queue.EventType{queue.AdvanceRequested, queue.AdvanceDecided}, f.events.Types())
}

func TestRejectIsTerminal(t *testing.T) {
	f := newFixture(t)
	st := f.student("ana@example.com")
	admin := f.adminUser()
	sc := f.school("0xaaa", true)
	a := f.request(st, sc.ID, "5000", 3)

	res, err := f.advances.DecideAdvance(f.ctx, admin, a.ID, "rejected", "missing enrolment proof")
	require.NoError(t, err)
	assert.Equal(t, model.AdvanceRejected, res.Advance.Status)
	assert.Empty(t, res.Schedule)

	view, err := f.advances.GetAdvance(f.ctx, admin, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AdvanceRejected, view.Advance.Status)
	require.NotNil(t, view.Advance.AdminNotes)
	assert.Equal(t, "missing enrolment proof", *view.Advance.AdminNotes)
	assert.Nil(t, view.Advance.ApprovedAt)
	assert.Empty(t, view.Schedule)

	_, err = f.advances.DecideAdvance(f.ctx, admin, a.ID, "approved", "")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = f.advances.ApplyRepayment(f.ctx, st, a.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = f.advances.DeclareDefault(f.ctx, admin, a.ID, "")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestDecideAdvanceErrors(t *testing.T) {
	f := newFixture(t)
	st := f.student("ana@example.com")
	admin := f.adminUser()
	sc := f.school("0xaaa", true)
	a := f.request(st, sc.ID, "5000", 3)

	_, err := f.advances.DecideAdvance(f.ctx, admin, a.ID, "maybe", "")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = f.advances.DecideAdvance(f.ctx, admin, 12345, "approved", "")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = f.advances.DecideAdvance(f.ctx, st, a.ID, "approved", "")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestApplyRepaymentPaysEarliestFirstAndCompletes(t *testing.T) {
	f := newFixture(t)
	st := f.student("ana@example.com")
	admin := f.adminUser()
	sc := f.school("0xaaa", true)
	a := f.request(st, sc.ID, "3000", 3)
	approved := f.approve(admin, a.ID)

	for i := 0; i < 3; i++ {
		res, err := f.advances.ApplyRepayment(f.ctx, st, a.ID)
		require.NoError(t, err)
		assert.Equal(t, approved.Schedule[i].ID, res.Paid.ID, "installment %d", i)
		assert.Equal(t, 2-i, res.Remaining)
		if i < 2 {
			assert.Equal(t, model.AdvanceActive, res.AdvanceStatus)
		} else {
			assert.Equal(t, model.AdvanceCompleted, res.AdvanceStatus)
		}
	}

	view, err := f.advances.GetAdvance(f.ctx, st, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AdvanceCompleted, view.Advance.Status)
	for _, p := range view.Schedule {
		assert.Equal(t, model.RepaymentPaid, p.Status)
		assert.NotNil(t, p.PaidAt)
	}

	_, err = f.advances.ApplyRepayment(f.ctx, st, a.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	types := f.events.Types()
	assert.Equal(t, queue.AdvanceCompleted, types[len(types)-1])

	f.request(st, sc.ID, "2000", 3)
}

func TestApplyRepaymentOwnershipAndState(t *testing.T) {
	f := newFixture(t)
	st := f.student("ana@example.com")
	other := f.student("ben@example.com")
	admin := f.adminUser()
	sc := f.school("0xaaa", true)
	a := f.request(st, sc.ID, "3000", 3)

	_, err := f.advances.ApplyRepayment(f.ctx, st, a.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err), "pending advance cannot be repaid")

	f.approve(admin, a.ID)
	_, err = f.advances.ApplyRepayment(f.ctx, other, a.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = f.advances.ApplyRepayment(f.ctx, admin, a.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestApplyRepaymentWithNothingPendingConflicts(t *testing.T) {
	f := newFixture(t)
	st := f.student("ana@example.com")
	admin := f.adminUser()
	sc := f.school("0xaaa", true)
	a := f.request(st, sc.ID, "3000", 3)
	f.approve(admin, a.ID)

	_, err := f.store.DB().ExecContext(f.ctx, "UPDATE repayments SET status='overdue' WHERE advance_id=?", a.ID)
	require.NoError(t, err)

	_, err = f.advances.ApplyRepayment(f.ctx, st, a.ID)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestDeclareDefault(t *testing.T) {
	f := newFixture(t)
	st := f.student("ana@example.com")
	admin := f.adminUser()
	sc := f.school("0xaaa", true)
	a := f.request(st, sc.ID, "3000", 3)

	_, err := f.advances.DeclareDefault(f.ctx, admin, a.ID, "")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err), "pending cannot default")

	f.approve(admin, a.ID)
	got, err := f.advances.DeclareDefault(f.ctx, admin, a.ID, "no payment for 90 days")
	require.NoError(t, err)
	assert.Equal(t, model.AdvanceDefaulted, got.Status)

	_, err = f.advances.ApplyRepayment(f.ctx, st, a.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = f.advances.DeclareDefault(f.ctx, admin, 4242, "")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	f.request(st, sc.ID, "2000", 3)
}

func TestListAdvances(t *testing.T) {
	f := newFixture(t)
	ana := f.student("ana@example.com")
	ben := f.student("ben@example.com")
	admin := f.adminUser()
	sc := f.school("0xaaa", true)

	a1 := f.request(ana, sc.ID, "3000", 3)
	_, err := f.advances.DecideAdvance(f.ctx, admin, a1.ID, "rejected", "")
	require.NoError(t, err)
	a2 := f.request(ana, sc.ID, "4000", 4)
	b1 := f.request(ben, sc.ID, "5000", 5)

	own, err := f.advances.ListAdvances(f.ctx, ana, "")
	require.NoError(t, err)
	require.Len(t, own, 2)
	assert.Equal(t, a2.ID, own[0].ID)
	assert.Equal(t, a1.ID, own[1].ID)
	assert.Equal(t, sc.WalletAddress, own[0].SchoolWallet)

	all, err := f.admin.ListAdvances(f.ctx, admin, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, b1.ID, all[0].ID)
	assert.Equal(t, "ben@example.com", all[0].UserEmail)

	pending, err := f.admin.ListAdvances(f.ctx, admin, "pending")
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	_, err = f.advances.ListAdvances(f.ctx, admin, "lost")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = f.advances.GetAdvance(f.ctx, ben, a2.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestListVerifiedSchools(t *testing.T) {
	f := newFixture(t)
	f.school("0xaaa", true)
	f.school("0xbbb", false)

	got, err := f.advances.ListVerifiedSchools(f.ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "0xaaa", got[0].WalletAddress)
}
