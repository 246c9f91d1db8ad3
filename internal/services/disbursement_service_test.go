package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/sjperalta/coachpay-api/internal/models"
	"github.com/sjperalta/coachpay-api/internal/paymentrail"
	"github.com/sjperalta/coachpay-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scheduleCoach records a platform-sourced enrollment paying coach 50% of amount
func scheduleCoach(t *testing.T, env *testEnv, enrollmentID uint, coach *models.Payee, amount string) *models.RevenueSplit {
	t.Helper()
	split, err := env.splits.OnEnrollmentPaid(context.Background(), EnrollmentPaidEvent{
		EnrollmentID: enrollmentID,
		Amount:       dec(amount),
		CoachPayeeID: coach.ID,
		LeadSource:   models.LeadSourcePlatform,
	})
	require.NoError(t, err)
	return split
}

func installmentsOf(t *testing.T, env *testEnv, payeeID uint) []models.PayoutInstallment {
	t.Helper()
	var rows []models.PayoutInstallment
	require.NoError(t, env.db.Where("payee_id = ?", payeeID).Order("id").Find(&rows).Error)
	return rows
}

func at(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

var (
	sep6 = time.Date(2025, time.September, 6, 10, 0, 0, 0, models.IST)
	oct6 = time.Date(2025, time.October, 6, 10, 0, 0, 0, models.IST)
)

func TestProcessDuePayouts_PaysOncePerPayee(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	group := createGroup(t, env.db, "rising", "20", "50", "30", false)
	coach := createPayee(t, env.db, "coach", &group.ID, true)
	split := scheduleCoach(t, env, 1, coach, "59990")

	env.payouts.now = at(sep6)
	summary, err := env.payouts.ProcessDuePayouts(ctx, TriggerManual)
	require.NoError(t, err)

	assert.Equal(t, models.PayoutRunStatusCompleted, summary.Status)
	assert.Equal(t, 1, summary.PayeesProcessed)
	assert.Equal(t, 1, summary.Succeeded)
	assert.True(t, summary.TotalDisbursed.Equal(dec("19996")))
	require.Len(t, summary.Results, 1)
	result := summary.Results[0]
	assert.Equal(t, PayeeOutcomePaid, result.Outcome)
	assert.Len(t, result.InstallmentIDs, 2)
	assert.Equal(t, "pout_1", result.SettlementID)

	require.Len(t, env.rail.payouts, 1)
	req := env.rail.payouts[0]
	assert.True(t, req.Amount.Equal(dec("19996")))
	assert.Equal(t, req.Reference, req.IdempotencyKey)
	assert.True(t, strings.HasPrefix(req.Reference, "po_"))
	assert.Equal(t, "fa_1", req.FundAccountID)
	assert.Equal(t, "IMPS", req.Mode)
	assert.Equal(t, []string{"123456789012"}, env.rail.decryptedAccounts)

	rows := installmentsOf(t, env, coach.ID)
	require.Len(t, rows, 3)
	for _, r := range rows[:2] {
		assert.Equal(t, models.InstallmentStatusPaid, r.Status)
		require.NotNil(t, r.SettlementID)
		assert.Equal(t, "pout_1", *r.SettlementID)
		require.NotNil(t, r.ClaimRef)
		assert.Equal(t, req.Reference, *r.ClaimRef)
	}
	assert.Equal(t, models.InstallmentStatusScheduled, rows[2].Status)
	assert.Nil(t, rows[2].ClaimRef)

	// the third installment is still outstanding
	stored, err := env.repos.RevenueSplit.FindByID(ctx, split.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SplitStatusScheduled, stored.Status)

	payee, err := env.repos.Payee.FindByID(ctx, coach.ID)
	require.NoError(t, err)
	require.NotNil(t, payee.RailFundAccountID)
	assert.Equal(t, "fa_1", *payee.RailFundAccountID)

	require.Len(t, env.mailer.confirmations, 1)
	assert.True(t, env.mailer.confirmations[0].Amount.Equal(dec("19996")))
	assert.Equal(t, 2, env.mailer.confirmations[0].Installments)

	t.Run("second run pays nothing", func(t *testing.T) {
		env.payouts.now = at(sep6.Add(time.Hour))
		again, err := env.payouts.ProcessDuePayouts(ctx, TriggerScheduler)
		require.NoError(t, err)
		assert.Zero(t, again.PayeesProcessed)
		assert.True(t, again.TotalDisbursed.IsZero())
		assert.Len(t, env.rail.payouts, 1)
	})

	t.Run("next month reuses the fund account and completes the split", func(t *testing.T) {
		env.payouts.now = at(oct6)
		next, err := env.payouts.ProcessDuePayouts(ctx, TriggerScheduler)
		require.NoError(t, err)
		assert.Equal(t, 1, next.Succeeded)
		assert.True(t, next.TotalDisbursed.Equal(dec("9999")))
		assert.Equal(t, 1, env.rail.contacts)
		assert.Equal(t, 1, env.rail.fundAccounts)

		stored, err := env.repos.RevenueSplit.FindByID(ctx, split.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SplitStatusCompleted, stored.Status)
	})

	runs, err := env.payouts.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestProcessDuePayouts_OverlappingRunsPayOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	group := createGroup(t, env.db, "rising", "20", "50", "30", false)
	first := createPayee(t, env.db, "first", &group.ID, true)
	second := createPayee(t, env.db, "second", &group.ID, true)
	scheduleCoach(t, env, 1, first, "59990")
	scheduleCoach(t, env, 2, second, "59990")

	other := NewDisbursementService(env.repos, env.repos, env.rail, testCipher, env.tds, env.audit, env.mailer, env.runner, env.policy, 0)
	other.now = at(sep6.Add(time.Minute))
	env.payouts.now = at(sep6)

	// the other run starts while the first one is paying its first payee; by then
	// the first run has already loaded the second payee's installments as due
	var overlapping *PayoutRunSummary
	firstPrefix := fmt.Sprintf("po_%d_", first.ID)
	env.rail.mockCreatePayout = func(ctx context.Context, req paymentrail.PayoutRequest) (*paymentrail.PayoutResult, error) {
		if overlapping == nil && strings.HasPrefix(req.Reference, firstPrefix) {
			run, err := other.ProcessDuePayouts(ctx, TriggerScheduler)
			require.NoError(t, err)
			overlapping = run
		}
		return &paymentrail.PayoutResult{ID: "pout_" + req.Reference, Status: "processing"}, nil
	}

	summary, err := env.payouts.ProcessDuePayouts(ctx, TriggerInternal)
	require.NoError(t, err)
	require.NotNil(t, overlapping)

	require.Len(t, summary.Results, 2)
	assert.Equal(t, first.ID, summary.Results[0].PayeeID)
	assert.Equal(t, PayeeOutcomePaid, summary.Results[0].Outcome)
	assert.Equal(t, second.ID, summary.Results[1].PayeeID)
	assert.Equal(t, PayeeOutcomeNoop, summary.Results[1].Outcome)
	assert.Equal(t, 1, summary.Succeeded)
	assert.True(t, summary.TotalDisbursed.Equal(dec("19996")))

	require.Len(t, overlapping.Results, 1)
	assert.Equal(t, second.ID, overlapping.Results[0].PayeeID)
	assert.Equal(t, PayeeOutcomePaid, overlapping.Results[0].Outcome)

	// one rail payout per payee, never two
	require.Len(t, env.rail.payouts, 2)
	perPayee := map[string]int{}
	for _, p := range env.rail.payouts {
		perPayee[p.Reference[:strings.LastIndex(p.Reference, "_")]]++
	}
	assert.Equal(t, map[string]int{
		fmt.Sprintf("po_%d", first.ID):  1,
		fmt.Sprintf("po_%d", second.ID): 1,
	}, perPayee)

	for _, r := range installmentsOf(t, env, second.ID)[:2] {
		assert.Equal(t, models.InstallmentStatusPaid, r.Status)
		require.NotNil(t, r.ClaimRef)
		assert.Equal(t, overlapping.Results[0].Reference, *r.ClaimRef)
	}
	assert.Len(t, env.mailer.confirmations, 2)
}

func TestProcessDuePayouts_SkipsPayeeWithoutDetails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	group := createGroup(t, env.db, "rising", "20", "50", "30", false)
	coach := createPayee(t, env.db, "coach", &group.ID, false)
	scheduleCoach(t, env, 1, coach, "59990")

	env.payouts.now = at(sep6)
	summary, err := env.payouts.ProcessDuePayouts(ctx, TriggerManual)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, PayeeOutcomeSkipped, summary.Results[0].Outcome)
	assert.ElementsMatch(t, []string{"payout_disabled", "bank_account", "ifsc", "pan"}, summary.Results[0].Missing)
	assert.Empty(t, env.rail.payouts)

	for _, r := range installmentsOf(t, env, coach.ID) {
		assert.Equal(t, models.InstallmentStatusScheduled, r.Status)
		assert.Nil(t, r.ClaimRef)
	}
}

func TestProcessDuePayouts_RailFailureAndRetry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	group := createGroup(t, env.db, "rising", "20", "50", "30", false)
	coach := createPayee(t, env.db, "coach", &group.ID, true)
	scheduleCoach(t, env, 1, coach, "59990")

	env.rail.mockCreatePayout = func(ctx context.Context, req paymentrail.PayoutRequest) (*paymentrail.PayoutResult, error) {
		return nil, errors.New("insufficient balance")
	}
	env.payouts.now = at(sep6)
	summary, err := env.payouts.ProcessDuePayouts(ctx, TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.True(t, summary.TotalDisbursed.IsZero())
	assert.Contains(t, summary.Results[0].Reason, "insufficient balance")
	require.Len(t, env.mailer.alerts, 1)
	assert.Empty(t, env.mailer.confirmations)

	rows := installmentsOf(t, env, coach.ID)
	failed := rows[0]
	assert.Equal(t, models.InstallmentStatusFailed, failed.Status)
	require.NotNil(t, failed.FailureReason)
	assert.Contains(t, *failed.FailureReason, "insufficient balance")
	assert.Equal(t, models.InstallmentStatusFailed, rows[1].Status)

	// failed rows never come back on their own
	env.rail.mockCreatePayout = nil
	env.payouts.now = at(sep6.Add(time.Hour))
	idle, err := env.payouts.ProcessDuePayouts(ctx, TriggerManual)
	require.NoError(t, err)
	assert.Zero(t, idle.PayeesProcessed)

	retried, err := env.payouts.RetryInstallment(ctx, adminActor, failed.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, retried.Attempt)
	assert.Equal(t, models.InstallmentStatusScheduled, retried.Status)
	require.NotNil(t, retried.RetryOfID)
	assert.Equal(t, failed.ID, *retried.RetryOfID)
	assert.Equal(t, time.Date(2025, time.September, 6, 0, 0, 0, 0, time.UTC), retried.ScheduledDate)

	old, err := env.repos.Installment.FindByID(ctx, failed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InstallmentStatusFailed, old.Status)
	require.NotNil(t, old.SupersededByID)
	assert.Equal(t, retried.ID, *old.SupersededByID)

	_, err = env.payouts.RetryInstallment(ctx, adminActor, failed.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = env.payouts.RetryInstallment(ctx, adminActor, rows[2].ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = env.payouts.RetryInstallment(ctx, adminActor, 9999)
	assert.ErrorIs(t, err, ErrNotFound)

	env.payouts.now = at(sep6.Add(2 * time.Hour))
	paid, err := env.payouts.ProcessDuePayouts(ctx, TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, 1, paid.Succeeded)
	assert.Equal(t, []uint{retried.ID}, paid.Results[0].InstallmentIDs)
	assert.True(t, paid.TotalDisbursed.Equal(dec("9998")))

	query := repository.NewListQuery()
	query.Filters["payee_id"] = "1"
	visible, total, err := env.payouts.ListInstallments(ctx, query)
	require.NoError(t, err)
	// superseded attempt is hidden by default
	assert.Equal(t, int64(3), total)
	assert.Len(t, visible, 3)

	var audits int64
	require.NoError(t, env.db.Model(&models.AuditLog{}).Where("action = ?", models.AuditActionRetry).Count(&audits).Error)
	assert.Equal(t, int64(4), audits)
}

func TestProcessDuePayouts_RecordsTDS(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	group := createGroup(t, env.db, "rising", "20", "50", "30", false)
	coach := createPayee(t, env.db, "coach", &group.ID, true)
	require.NoError(t, env.db.Create(&models.PayeeEarningsCounter{
		PayeeID: coach.ID, FiscalYear: "2025-26", CumulativeEarnings: dec("29000"), Version: 1,
	}).Error)
	split := scheduleCoach(t, env, 1, coach, "4000")

	env.payouts.now = at(oct6)
	summary, err := env.payouts.ProcessDuePayouts(ctx, TriggerManual)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Succeeded)
	assert.True(t, summary.TotalDisbursed.Equal(dec("1800")))
	assert.True(t, summary.Results[0].TDSAmount.Equal(dec("200")))

	entries, err := env.tds.ListByFiscalYear(ctx, "2025-26")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	total := dec("0")
	for _, e := range entries {
		assert.Equal(t, "Q3", e.Quarter)
		assert.Equal(t, "pout_1", e.SettlementID)
		assert.False(t, e.Deposited)
		total = total.Add(e.TDSAmount)
	}
	assert.True(t, total.Equal(dec("200")))

	stored, err := env.repos.RevenueSplit.FindByID(ctx, split.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SplitStatusCompleted, stored.Status)
}

func TestProcessDuePayouts_CancelStopsBeforeNextPayee(t *testing.T) {
	env := newTestEnv(t)
	group := createGroup(t, env.db, "rising", "20", "50", "30", false)
	first := createPayee(t, env.db, "first", &group.ID, true)
	second := createPayee(t, env.db, "second", &group.ID, true)
	scheduleCoach(t, env, 1, first, "6000")
	scheduleCoach(t, env, 2, second, "6000")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env.rail.mockCreatePayout = func(ctx context.Context, req paymentrail.PayoutRequest) (*paymentrail.PayoutResult, error) {
		cancel()
		return &paymentrail.PayoutResult{ID: "pout_cancel", Status: "processing"}, nil
	}

	env.payouts.now = at(sep6)
	summary, err := env.payouts.ProcessDuePayouts(ctx, TriggerManual)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, summary)
	assert.Equal(t, models.PayoutRunStatusAborted, summary.Status)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.PayeesProcessed)

	// the payout that reached the rail is still recorded
	for _, r := range installmentsOf(t, env, first.ID)[:2] {
		assert.Equal(t, models.InstallmentStatusPaid, r.Status)
	}
	for _, r := range installmentsOf(t, env, second.ID) {
		assert.Equal(t, models.InstallmentStatusScheduled, r.Status)
		assert.Nil(t, r.ClaimRef)
	}

	runs, err := env.payouts.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.PayoutRunStatusAborted, runs[0].Status)
	assert.NotNil(t, runs[0].FinishedAt)
}

func TestProcessDuePayouts_NoRail(t *testing.T) {
	env := newTestEnv(t)
	env.payouts.rail = nil
	_, err := env.payouts.ProcessDuePayouts(context.Background(), TriggerManual)
	assert.ErrorIs(t, err, ErrRailUnavailable)
}
