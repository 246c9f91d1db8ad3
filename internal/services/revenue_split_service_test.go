package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/coachpay-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeSplit(t *testing.T) {
	rising := &models.CoachGroup{LeadCostPercent: dec("20"), CoachCostPercent: dec("50"), PlatformFeePercent: dec("30")}

	t.Run("referred lead", func(t *testing.T) {
		got := ComputeSplit(dec("59990"), rising, models.LeadSourceReferringPayee)
		assert.True(t, got.LeadCost.Equal(dec("11998")))
		assert.True(t, got.CoachCost.Equal(dec("29995")))
		assert.True(t, got.PlatformFee.Equal(dec("17997")))
	})

	t.Run("platform lead keeps the lead cost", func(t *testing.T) {
		got := ComputeSplit(dec("59990"), rising, models.LeadSourcePlatform)
		assert.True(t, got.LeadCost.IsZero())
		assert.True(t, got.CoachCost.Equal(dec("29995")))
		assert.True(t, got.PlatformFee.Equal(dec("29995")))
	})

	t.Run("platform absorbs rounding", func(t *testing.T) {
		got := ComputeSplit(dec("999"), rising, models.LeadSourceReferringPayee)
		// 199.8 -> 200, 499.5 -> 500
		assert.True(t, got.LeadCost.Equal(dec("200")))
		assert.True(t, got.CoachCost.Equal(dec("500")))
		assert.True(t, got.PlatformFee.Equal(dec("299")))
		assert.True(t, got.LeadCost.Add(got.CoachCost).Add(got.PlatformFee).Equal(dec("999")))
	})

	t.Run("zero platform percent never goes negative", func(t *testing.T) {
		halves := &models.CoachGroup{LeadCostPercent: dec("50"), CoachCostPercent: dec("50")}

		got := ComputeSplit(dec("3"), halves, models.LeadSourceReferringPayee)
		assert.True(t, got.LeadCost.Equal(dec("2")))
		assert.True(t, got.CoachCost.Equal(dec("1")))
		assert.True(t, got.PlatformFee.IsZero())

		got = ComputeSplit(dec("59991"), halves, models.LeadSourceReferringPayee)
		assert.True(t, got.LeadCost.Equal(dec("29996")))
		assert.True(t, got.CoachCost.Equal(dec("29995")))
		assert.True(t, got.PlatformFee.IsZero())
	})

	t.Run("internal group", func(t *testing.T) {
		internal := &models.CoachGroup{PlatformFeePercent: dec("100"), IsInternal: true}
		got := ComputeSplit(dec("59990"), internal, models.LeadSourceReferringPayee)
		assert.True(t, got.LeadCost.IsZero())
		assert.True(t, got.CoachCost.IsZero())
		assert.True(t, got.PlatformFee.Equal(dec("59990")))
	})
}

func TestComputeSplit_PartsSumToAmount(t *testing.T) {
	groups := []*models.CoachGroup{
		{LeadCostPercent: dec("20"), CoachCostPercent: dec("50"), PlatformFeePercent: dec("30")},
		{LeadCostPercent: dec("50"), CoachCostPercent: dec("50"), PlatformFeePercent: dec("0")},
		{LeadCostPercent: dec("33.33"), CoachCostPercent: dec("33.33"), PlatformFeePercent: dec("33.34")},
		{LeadCostPercent: dec("49.5"), CoachCostPercent: dec("50.5"), PlatformFeePercent: dec("0")},
		{LeadCostPercent: dec("0"), CoachCostPercent: dec("100"), PlatformFeePercent: dec("0")},
		{LeadCostPercent: dec("100"), CoachCostPercent: dec("0"), PlatformFeePercent: dec("0")},
		{LeadCostPercent: dec("0.5"), CoachCostPercent: dec("99"), PlatformFeePercent: dec("0.5")},
	}

	var amounts []decimal.Decimal
	for i := int64(1); i <= 1500; i++ {
		amounts = append(amounts, decimal.NewFromInt(i))
		// paise amounts: 0.13, 0.50, 0.87 ...
		amounts = append(amounts, decimal.New(i*37+13, -2))
	}
	amounts = append(amounts, dec("59991"), dec("59990.50"), dec("0.01"), dec("1.50"))

	for _, g := range groups {
		for _, source := range []string{models.LeadSourceReferringPayee, models.LeadSourcePlatform} {
			for _, a := range amounts {
				got := ComputeSplit(a, g, source)
				sum := got.LeadCost.Add(got.CoachCost).Add(got.PlatformFee)
				require.Truef(t, sum.Equal(a), "%s %s/%s/%s %s: parts sum to %s", source,
					g.LeadCostPercent, g.CoachCostPercent, g.PlatformFeePercent, a, sum)
				require.Falsef(t, got.LeadCost.IsNegative(), "lead %s for %s", got.LeadCost, a)
				require.Falsef(t, got.CoachCost.IsNegative(), "coach %s for %s", got.CoachCost, a)
				require.Falsef(t, got.PlatformFee.IsNegative(), "platform %s for %s (%s/%s/%s)", got.PlatformFee, a,
					g.LeadCostPercent, g.CoachCostPercent, g.PlatformFeePercent)
			}
		}
	}
}

func TestEnrollmentPaidEventValidate(t *testing.T) {
	ref := uint(2)
	tests := []struct {
		name string
		ev   EnrollmentPaidEvent
	}{
		{"missing enrollment", EnrollmentPaidEvent{Amount: dec("100"), CoachPayeeID: 1, LeadSource: models.LeadSourcePlatform}},
		{"zero amount", EnrollmentPaidEvent{EnrollmentID: 1, Amount: dec("0"), CoachPayeeID: 1, LeadSource: models.LeadSourcePlatform}},
		{"missing coach", EnrollmentPaidEvent{EnrollmentID: 1, Amount: dec("100"), LeadSource: models.LeadSourcePlatform}},
		{"unknown lead source", EnrollmentPaidEvent{EnrollmentID: 1, Amount: dec("100"), CoachPayeeID: 1, LeadSource: "ads"}},
		{"referrer without id", EnrollmentPaidEvent{EnrollmentID: 1, Amount: dec("100"), CoachPayeeID: 1, LeadSource: models.LeadSourceReferringPayee}},
		{"platform with referrer", EnrollmentPaidEvent{EnrollmentID: 1, Amount: dec("100"), CoachPayeeID: 1, LeadSource: models.LeadSourcePlatform, ReferringPayeeID: &ref}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.ev.Validate(), ErrValidation)
		})
	}
}

func TestOnEnrollmentPaid_SchedulesInstallments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	group := createGroup(t, env.db, "rising", "20", "50", "30", false)
	coach := createPayee(t, env.db, "coach", &group.ID, true)
	referrer := createPayee(t, env.db, "referrer", &group.ID, true)

	split, err := env.splits.OnEnrollmentPaid(ctx, EnrollmentPaidEvent{
		EnrollmentID:     101,
		Amount:           dec("59990"),
		CoachPayeeID:     coach.ID,
		LeadSource:       models.LeadSourceReferringPayee,
		ReferringPayeeID: &referrer.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, models.SplitStatusScheduled, split.Status)
	assert.Equal(t, "2025-26", split.FiscalYear)
	assert.True(t, split.LeadCostAmount.Equal(dec("11998")))
	assert.True(t, split.CoachCostAmount.Equal(dec("29995")))
	assert.True(t, split.PlatformFeeAmount.Equal(dec("17997")))
	assert.False(t, split.TDSApplicable)

	snap, err := split.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "rising", snap.CoachGroupName)
	assert.Equal(t, 3, snap.InstallmentCount)

	var rows []models.PayoutInstallment
	require.NoError(t, env.db.Where("revenue_split_id = ?", split.ID).
		Order("payee_id, installment_number").Find(&rows).Error)
	require.Len(t, rows, 6)

	wantCoach := []string{"9998", "9998", "9999"}
	wantLead := []string{"3999", "3999", "4000"}
	wantDates := []time.Month{time.August, time.September, time.October}
	for i := 0; i < 3; i++ {
		c, l := rows[i], rows[i+3]
		assert.Equal(t, coach.ID, c.PayeeID)
		assert.Equal(t, models.InstallmentTypeCoachCost, c.InstallmentType)
		assert.True(t, c.GrossAmount.Equal(dec(wantCoach[i])), "coach %d: %s", i, c.GrossAmount)
		assert.True(t, c.NetAmount.Equal(c.GrossAmount))
		assert.Equal(t, referrer.ID, l.PayeeID)
		assert.Equal(t, models.InstallmentTypeLeadBonus, l.InstallmentType)
		assert.True(t, l.GrossAmount.Equal(dec(wantLead[i])), "lead %d: %s", i, l.GrossAmount)

		assert.Equal(t, wantDates[i], c.ScheduledDate.Month())
		assert.Equal(t, 5, c.ScheduledDate.Day())
		assert.Equal(t, models.InstallmentStatusScheduled, c.Status)
		assert.Equal(t, 1, c.Attempt)
	}

	counter, err := env.repos.Earnings.Find(ctx, coach.ID, "2025-26")
	require.NoError(t, err)
	assert.True(t, counter.CumulativeEarnings.Equal(dec("29995")))
	assert.Equal(t, int64(1), counter.Version)
}

func TestOnEnrollmentPaid_Duplicate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	group := createGroup(t, env.db, "rising", "20", "50", "30", false)
	coach := createPayee(t, env.db, "coach", &group.ID, true)

	ev := EnrollmentPaidEvent{EnrollmentID: 7, Amount: dec("10000"), CoachPayeeID: coach.ID, LeadSource: models.LeadSourcePlatform}
	first, err := env.splits.OnEnrollmentPaid(ctx, ev)
	require.NoError(t, err)

	again, err := env.splits.OnEnrollmentPaid(ctx, ev)
	assert.ErrorIs(t, err, ErrAlreadySplit)
	require.NotNil(t, again)
	assert.Equal(t, first.ID, again.ID)

	var count int64
	require.NoError(t, env.db.Model(&models.PayoutInstallment{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)

	counter, err := env.repos.Earnings.Find(ctx, coach.ID, "2025-26")
	require.NoError(t, err)
	assert.True(t, counter.CumulativeEarnings.Equal(dec("5000")))
}

func TestOnEnrollmentPaid_AppliesTDSAboveThreshold(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	group := createGroup(t, env.db, "rising", "20", "50", "30", false)
	coach := createPayee(t, env.db, "coach", &group.ID, true)
	require.NoError(t, env.db.Create(&models.PayeeEarningsCounter{
		PayeeID:            coach.ID,
		FiscalYear:         "2025-26",
		CumulativeEarnings: dec("29000"),
		Version:            1,
	}).Error)

	split, err := env.splits.OnEnrollmentPaid(ctx, EnrollmentPaidEvent{
		EnrollmentID: 9,
		Amount:       dec("4000"),
		CoachPayeeID: coach.ID,
		LeadSource:   models.LeadSourcePlatform,
	})
	require.NoError(t, err)
	assert.True(t, split.CoachCostAmount.Equal(dec("2000")))
	assert.True(t, split.TDSApplicable)
	assert.True(t, split.TDSAmount.Equal(dec("200")))
	assert.True(t, split.CoachTDSAmount.Equal(dec("200")))

	var rows []models.PayoutInstallment
	require.NoError(t, env.db.Order("installment_number").Find(&rows).Error)
	require.Len(t, rows, 3)
	wantGross := []string{"666", "666", "668"}
	wantTDS := []string{"66", "66", "68"}
	for i, r := range rows {
		assert.True(t, r.GrossAmount.Equal(dec(wantGross[i])), "gross %d: %s", i, r.GrossAmount)
		assert.True(t, r.TDSAmount.Equal(dec(wantTDS[i])), "tds %d: %s", i, r.TDSAmount)
		assert.True(t, r.NetAmount.Equal(dec("600")), "net %d: %s", i, r.NetAmount)
		assert.True(t, r.TDSRatePercent.Equal(dec("10")))
	}

	counter, err := env.repos.Earnings.Find(ctx, coach.ID, "2025-26")
	require.NoError(t, err)
	assert.True(t, counter.CumulativeEarnings.Equal(dec("31000")))
	assert.Equal(t, int64(2), counter.Version)
}

func TestOnEnrollmentPaid_InternalGroup(t *testing.T) {
	env := newTestEnv(t)
	group := createGroup(t, env.db, "internal", "0", "0", "100", true)
	coach := createPayee(t, env.db, "staff", &group.ID, true)

	split, err := env.splits.OnEnrollmentPaid(context.Background(), EnrollmentPaidEvent{
		EnrollmentID: 11,
		Amount:       dec("59990"),
		CoachPayeeID: coach.ID,
		LeadSource:   models.LeadSourcePlatform,
	})
	require.NoError(t, err)
	assert.Equal(t, models.SplitStatusCompleted, split.Status)
	assert.True(t, split.PlatformFeeAmount.Equal(dec("59990")))

	var count int64
	require.NoError(t, env.db.Model(&models.PayoutInstallment{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestOnEnrollmentPaid_UnknownPayees(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.splits.OnEnrollmentPaid(ctx, EnrollmentPaidEvent{
		EnrollmentID: 1, Amount: dec("100"), CoachPayeeID: 999, LeadSource: models.LeadSourcePlatform,
	})
	assert.ErrorIs(t, err, ErrValidation)

	group := createGroup(t, env.db, "rising", "20", "50", "30", false)
	coach := createPayee(t, env.db, "coach", &group.ID, true)
	missing := uint(999)
	_, err = env.splits.OnEnrollmentPaid(ctx, EnrollmentPaidEvent{
		EnrollmentID: 1, Amount: dec("100"), CoachPayeeID: coach.ID,
		LeadSource: models.LeadSourceReferringPayee, ReferringPayeeID: &missing,
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.repos.RevenueSplit.FindByEnrollment(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOnEnrollmentPaid_AwardsReferralCredit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	group := createGroup(t, env.db, "rising", "20", "50", "30", false)
	coach := createPayee(t, env.db, "coach", &group.ID, true)

	party := &models.ReferringParty{Name: "Green Valley School", CreditBalance: dec("0")}
	require.NoError(t, env.db.Create(party).Error)
	require.NoError(t, env.db.Create(&models.ReferralCoupon{
		Code: "GREEN10", CouponType: models.CouponTypeReferringParty, ReferringPartyID: &party.ID,
		CreditPercent: dec("0"), Active: true,
	}).Error)

	_, err := env.splits.OnEnrollmentPaid(ctx, EnrollmentPaidEvent{
		EnrollmentID: 21, Amount: dec("5000"), CoachPayeeID: coach.ID,
		LeadSource: models.LeadSourcePlatform, ReferralCode: "GREEN10",
	})
	require.NoError(t, err)

	credits, err := env.referral.GetCredits(ctx, party.ID, nil)
	require.NoError(t, err)
	assert.True(t, credits.Party.CreditBalance.Equal(dec("500")))
	require.Len(t, credits.Transactions, 1)
	assert.Equal(t, uint(21), credits.Transactions[0].EnrollmentID)
}

func TestResplit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	group := createGroup(t, env.db, "rising", "20", "50", "30", false)
	coach := createPayee(t, env.db, "coach", &group.ID, true)

	enrollment := &models.Enrollment{
		CoachPayeeID: coach.ID, Amount: dec("6000"),
		LeadSource: models.LeadSourcePlatform, Status: models.EnrollmentStatusActive,
	}
	require.NoError(t, env.db.Create(enrollment).Error)
	pending := &models.Enrollment{
		CoachPayeeID: coach.ID, Amount: dec("6000"),
		LeadSource: models.LeadSourcePlatform, Status: models.EnrollmentStatusPending,
	}
	require.NoError(t, env.db.Create(pending).Error)

	split, err := env.splits.Resplit(ctx, adminActor, enrollment.ID)
	require.NoError(t, err)
	assert.True(t, split.CoachCostAmount.Equal(dec("3000")))

	_, err = env.splits.Resplit(ctx, adminActor, enrollment.ID)
	assert.ErrorIs(t, err, ErrAlreadySplit)

	_, err = env.splits.Resplit(ctx, adminActor, pending.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = env.splits.Resplit(ctx, adminActor, 12345)
	assert.ErrorIs(t, err, ErrNotFound)

	// every attempt is audited under the operator, rejected ones included
	var audits []models.AuditLog
	require.NoError(t, env.db.Where("action = ?", models.AuditActionResplit).Order("id").Find(&audits).Error)
	require.Len(t, audits, 4)
	assert.Equal(t, models.AuditOutcomeSuccess, audits[0].Outcome)
	for _, a := range audits[1:] {
		assert.Equal(t, models.AuditOutcomeFailure, a.Outcome)
		assert.Equal(t, adminActor.UserID, a.UserID)
	}

	var splitAudits int64
	require.NoError(t, env.db.Model(&models.AuditLog{}).Where("action = ?", models.AuditActionSplit).Count(&splitAudits).Error)
	assert.Zero(t, splitAudits)
}

func TestOnEnrollmentPaid_Audited(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	group := createGroup(t, env.db, "rising", "20", "50", "30", false)
	coach := createPayee(t, env.db, "coach", &group.ID, true)

	ev := EnrollmentPaidEvent{EnrollmentID: 31, Amount: dec("10000"), CoachPayeeID: coach.ID, LeadSource: models.LeadSourcePlatform}
	split, err := env.splits.OnEnrollmentPaid(ctx, ev)
	require.NoError(t, err)

	_, err = env.splits.OnEnrollmentPaid(ctx, ev)
	require.ErrorIs(t, err, ErrAlreadySplit)

	_, err = env.splits.OnEnrollmentPaid(ctx, EnrollmentPaidEvent{EnrollmentID: 32, Amount: dec("10000"), CoachPayeeID: 999, LeadSource: models.LeadSourcePlatform})
	require.ErrorIs(t, err, ErrValidation)

	var audits []models.AuditLog
	require.NoError(t, env.db.Where("action = ?", models.AuditActionSplit).Order("id").Find(&audits).Error)
	require.Len(t, audits, 3)

	assert.Equal(t, models.AuditOutcomeSuccess, audits[0].Outcome)
	assert.Equal(t, uint(31), audits[0].EntityID)
	assert.Equal(t, "Enrollment", audits[0].Entity)
	assert.Zero(t, audits[0].UserID)
	assert.Contains(t, audits[0].Details, `"coach_cost":"5000"`)
	assert.Contains(t, audits[0].Details, fmt.Sprintf(`"split_id":%d`, split.ID))

	assert.Equal(t, models.AuditOutcomeFailure, audits[1].Outcome)
	assert.Contains(t, audits[1].Details, "already")

	assert.Equal(t, models.AuditOutcomeFailure, audits[2].Outcome)
	assert.Equal(t, uint(32), audits[2].EntityID)
	assert.Contains(t, audits[2].Details, "coach payee 999 not found")
}
