package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/coachpay-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection so every query sees the same in-memory database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.CoachGroup{},
		&models.Payee{},
		&models.PayeeEarningsCounter{},
		&models.EarningsCounterApplication{},
		&models.Enrollment{},
		&models.Payment{},
		&models.RevenueSplit{},
		&models.PayoutInstallment{},
		&models.TDSLedgerEntry{},
		&models.ReconciliationFinding{},
		&models.ReconciliationRun{},
	))
	return db
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func seedInstallments(t *testing.T, db *gorm.DB, payeeID uint, n int) []models.PayoutInstallment {
	t.Helper()
	due := time.Date(2025, time.May, 5, 0, 0, 0, 0, time.UTC)
	var rows []models.PayoutInstallment
	for i := 1; i <= n; i++ {
		rows = append(rows, models.PayoutInstallment{
			RevenueSplitID:    1,
			PayeeID:           payeeID,
			InstallmentNumber: i,
			InstallmentType:   models.InstallmentTypeCoachCost,
			Attempt:           1,
			GrossAmount:       amount("1000"),
			NetAmount:         amount("1000"),
			ScheduledDate:     due,
			Status:            models.InstallmentStatusScheduled,
		})
	}
	require.NoError(t, NewInstallmentRepository(db).CreateBatch(context.Background(), rows))
	return rows
}

func TestInstallmentClaimIsExclusive(t *testing.T) {
	db := newTestDB(t)
	repo := NewInstallmentRepository(db)
	ctx := context.Background()
	rows := seedInstallments(t, db, 7, 2)
	ids := []uint{rows[0].ID, rows[1].ID}
	now := time.Date(2025, time.May, 5, 10, 0, 0, 0, time.UTC)

	due, err := repo.FindDue(ctx, now)
	require.NoError(t, err)
	assert.Len(t, due, 2)

	first, err := repo.Claim(ctx, ids, "po_7_1", now)
	require.NoError(t, err)
	assert.Len(t, first, 2)

	// a concurrent run that read the same due rows wins nothing
	second, err := repo.Claim(ctx, ids, "po_7_2", now)
	require.NoError(t, err)
	assert.Empty(t, second)

	due, err = repo.FindDue(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestInstallmentMarkPaidOnlyOnce(t *testing.T) {
	db := newTestDB(t)
	repo := NewInstallmentRepository(db)
	ctx := context.Background()
	rows := seedInstallments(t, db, 3, 3)
	now := time.Date(2025, time.May, 5, 10, 0, 0, 0, time.UTC)

	_, err := repo.Claim(ctx, []uint{rows[0].ID, rows[1].ID, rows[2].ID}, "po_3_1", now)
	require.NoError(t, err)

	n, err := repo.MarkPaid(ctx, "po_3_1", "pout_abc", now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = repo.MarkPaid(ctx, "po_3_1", "pout_other", now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = repo.MarkFailed(ctx, "po_3_1", "late failure", now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	got, err := repo.FindByID(ctx, rows[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.InstallmentStatusPaid, got.Status)
	require.NotNil(t, got.SettlementID)
	assert.Equal(t, "pout_abc", *got.SettlementID)

	allPaid, err := repo.AllPaid(ctx, 1)
	require.NoError(t, err)
	assert.True(t, allPaid)
}

func TestInstallmentSupersedeRequiresFailed(t *testing.T) {
	db := newTestDB(t)
	repo := NewInstallmentRepository(db)
	ctx := context.Background()
	rows := seedInstallments(t, db, 4, 1)
	now := time.Date(2025, time.May, 5, 10, 0, 0, 0, time.UTC)

	ok, err := repo.Supersede(ctx, rows[0].ID, 99)
	require.NoError(t, err)
	assert.False(t, ok, "scheduled rows cannot be superseded")

	_, err = repo.Claim(ctx, []uint{rows[0].ID}, "po_4_1", now)
	require.NoError(t, err)
	_, err = repo.MarkFailed(ctx, "po_4_1", "bank rejected", now)
	require.NoError(t, err)

	ok, err = repo.Supersede(ctx, rows[0].ID, 99)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Supersede(ctx, rows[0].ID, 100)
	require.NoError(t, err)
	assert.False(t, ok)

	allPaid, err := repo.AllPaid(ctx, 1)
	require.NoError(t, err)
	assert.True(t, allPaid, "superseded rows do not count as outstanding")
}

func TestEarningsCounterApplyIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	repos := NewRepositories(db)
	ctx := context.Background()

	apply := func(enrollmentID uint, amt string) error {
		return repos.Transaction(ctx, func(tx *Repositories) error {
			counter, err := tx.Earnings.GetForUpdate(ctx, 5, "2025-26")
			if err != nil {
				return err
			}
			app := &models.EarningsCounterApplication{
				EnrollmentID:     enrollmentID,
				PayeeID:          5,
				Component:        models.EarningsComponentCoachCost,
				FiscalYear:       "2025-26",
				Amount:           amount(amt),
				CumulativeBefore: counter.CumulativeEarnings,
				CumulativeAfter:  counter.CumulativeEarnings.Add(amount(amt)),
			}
			return tx.Earnings.Apply(ctx, counter, app)
		})
	}

	require.NoError(t, apply(1, "29000"))
	require.NoError(t, apply(2, "2000"))
	assert.ErrorIs(t, apply(2, "2000"), ErrDuplicate)

	counter, err := repos.Earnings.Find(ctx, 5, "2025-26")
	require.NoError(t, err)
	assert.True(t, counter.CumulativeEarnings.Equal(amount("31000")))
	assert.Equal(t, int64(2), counter.Version)
}

func TestEarningsCounterRejectsStaleVersion(t *testing.T) {
	db := newTestDB(t)
	repo := NewEarningsCounterRepository(db)
	ctx := context.Background()

	counter, err := repo.GetForUpdate(ctx, 9, "2025-26")
	require.NoError(t, err)
	require.NoError(t, repo.Apply(ctx, counter, &models.EarningsCounterApplication{
		EnrollmentID: 1, PayeeID: 9, Component: models.EarningsComponentCoachCost, FiscalYear: "2025-26",
		Amount: amount("100"), CumulativeBefore: amount("0"), CumulativeAfter: amount("100"),
	}))

	stale := &models.PayeeEarningsCounter{ID: counter.ID, PayeeID: 9, FiscalYear: "2025-26", Version: 0}
	err = repo.Apply(ctx, stale, &models.EarningsCounterApplication{
		EnrollmentID: 2, PayeeID: 9, Component: models.EarningsComponentCoachCost, FiscalYear: "2025-26",
		Amount: amount("50"), CumulativeBefore: amount("0"), CumulativeAfter: amount("50"),
	})
	assert.ErrorIs(t, err, ErrConcurrentUpdate)
}

func TestUpsertFindingDeduplicates(t *testing.T) {
	db := newTestDB(t)
	repo := NewReconciliationRepository(db)
	ctx := context.Background()
	t1 := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(6 * time.Hour)

	created, err := repo.UpsertFinding(ctx, &models.ReconciliationFinding{
		Kind: models.FindingKindOrphanCapture, Reference: "pay_X", LastDetectedAt: t1, LastRunID: "run-1",
	})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.UpsertFinding(ctx, &models.ReconciliationFinding{
		Kind: models.FindingKindOrphanCapture, Reference: "pay_X", LastDetectedAt: t2, LastRunID: "run-2",
	})
	require.NoError(t, err)
	assert.False(t, created)

	open, err := repo.ListOpenFindings(ctx, t1.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, 2, open[0].DetectionCount)
	assert.Equal(t, "run-2", open[0].LastRunID)
	assert.True(t, open[0].FirstDetectedAt.Equal(t1))

	ok, err := repo.ResolveFinding(ctx, open[0].ID, models.ResolutionRefunded, "refunded manually", 1, t2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ResolveFinding(ctx, open[0].ID, models.ResolutionIgnored, "", 1, t2)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTDSMarkDepositedTwice(t *testing.T) {
	db := newTestDB(t)
	repos := NewRepositories(db)
	ctx := context.Background()
	deducted := time.Date(2025, time.May, 5, 0, 0, 0, 0, time.UTC)

	for i := uint(1); i <= 2; i++ {
		require.NoError(t, repos.TDS.Create(ctx, &models.TDSLedgerEntry{
			InstallmentID: i, PayeeID: 1, FinancialYear: "2025-26", Quarter: models.QuarterQ1,
			GrossAmount: amount("1000"), TDSRatePercent: amount("10"), TDSAmount: amount("100"), DeductedAt: deducted,
		}))
	}
	assert.ErrorIs(t, repos.TDS.Create(ctx, &models.TDSLedgerEntry{
		InstallmentID: 1, PayeeID: 1, FinancialYear: "2025-26", Quarter: models.QuarterQ1,
		GrossAmount: amount("1000"), TDSRatePercent: amount("10"), TDSAmount: amount("100"), DeductedAt: deducted,
	}), ErrDuplicate)

	mark := func() int64 {
		var n int64
		require.NoError(t, repos.Transaction(ctx, func(tx *Repositories) error {
			rows, err := tx.TDS.LockUndeposited(ctx, "2025-26", models.QuarterQ1, nil)
			if err != nil {
				return err
			}
			ids := make([]uint, 0, len(rows))
			for _, r := range rows {
				ids = append(ids, r.ID)
			}
			n, err = tx.TDS.MarkDeposited(ctx, ids, nil, deducted, 1)
			return err
		}))
		return n
	}

	assert.Equal(t, int64(2), mark())
	assert.Equal(t, int64(0), mark())
}

func TestFindPaidWithoutSplit(t *testing.T) {
	db := newTestDB(t)
	repos := NewRepositories(db)
	ctx := context.Background()
	since := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, db.Create(&[]models.Enrollment{
		{ID: 1, CoachPayeeID: 1, Amount: amount("5000"), Status: models.EnrollmentStatusActive, CreatedAt: since.Add(time.Hour)},
		{ID: 2, CoachPayeeID: 1, Amount: amount("5000"), Status: models.EnrollmentStatusActive, CreatedAt: since.Add(time.Hour)},
		{ID: 3, CoachPayeeID: 1, Amount: amount("5000"), Status: models.EnrollmentStatusPending, CreatedAt: since.Add(time.Hour)},
		{ID: 4, CoachPayeeID: 1, Amount: amount("5000"), Status: models.EnrollmentStatusCompleted, CreatedAt: since.Add(-time.Hour)},
	}).Error)
	require.NoError(t, repos.RevenueSplit.Create(ctx, &models.RevenueSplit{
		EnrollmentID: 2, CoachPayeeID: 1, LeadSource: models.LeadSourcePlatform, CoachGroupID: 1,
		TotalAmount: amount("5000"), FiscalYear: "2025-26", Status: models.SplitStatusScheduled,
	}))

	missing, err := repos.Enrollment.FindPaidWithoutSplit(ctx, since)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, uint(1), missing[0].ID)
}
