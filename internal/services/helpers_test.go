package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/coachpay-api/internal/config"
	"github.com/sjperalta/coachpay-api/internal/database"
	"github.com/sjperalta/coachpay-api/internal/jobs"
	"github.com/sjperalta/coachpay-api/internal/models"
	"github.com/sjperalta/coachpay-api/internal/paymentrail"
	"github.com/sjperalta/coachpay-api/internal/repository"
	"github.com/sjperalta/coachpay-api/internal/secure"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// fixedNow is 10 Jul 2025 11:00 IST, fiscal year 2025-26, quarter Q2
var fixedNow = time.Date(2025, time.July, 10, 11, 0, 0, 0, models.IST)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func testPolicy() *config.Policy {
	return config.DefaultPolicy()
}

func createGroup(t *testing.T, db *gorm.DB, name string, lead, coach, platform string, internal bool) *models.CoachGroup {
	t.Helper()
	g := &models.CoachGroup{
		Name:               name,
		LeadCostPercent:    dec(lead),
		CoachCostPercent:   dec(coach),
		PlatformFeePercent: dec(platform),
		IsInternal:         internal,
	}
	require.NoError(t, db.Create(g).Error)
	return g
}

var testCipher = func() *secure.FieldCipher {
	c, err := secure.NewFieldCipher("test-bank-key")
	if err != nil {
		panic(err)
	}
	return c
}()

func createPayee(t *testing.T, db *gorm.DB, name string, groupID *uint, payable bool) *models.Payee {
	t.Helper()
	p := &models.Payee{
		Name:         name,
		Email:        fmt.Sprintf("%s@example.com", name),
		Phone:        "9999999999",
		CoachGroupID: groupID,
	}
	if payable {
		enc, err := testCipher.Encrypt("123456789012")
		require.NoError(t, err)
		p.PayoutEnabled = true
		p.PAN = "ABCDE1234F"
		p.BankAccountName = name
		p.BankAccountNumberEnc = enc
		p.BankAccountLast4 = "9012"
		p.BankIFSC = "HDFC0000001"
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

// mockRail records calls; behaviour is overridden per test
type mockRail struct {
	paymentrail.Rail
	mu                sync.Mutex
	mockCreatePayout  func(ctx context.Context, req paymentrail.PayoutRequest) (*paymentrail.PayoutResult, error)
	mockListCaptures  func(ctx context.Context, from, to time.Time) ([]paymentrail.Capture, error)
	contacts          int
	fundAccounts      int
	payouts           []paymentrail.PayoutRequest
	decryptedAccounts []string
}

func (m *mockRail) CreateContact(ctx context.Context, req paymentrail.ContactRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contacts++
	return fmt.Sprintf("cont_%d", m.contacts), nil
}

func (m *mockRail) CreateFundAccount(ctx context.Context, req paymentrail.FundAccountRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fundAccounts++
	m.decryptedAccounts = append(m.decryptedAccounts, req.AccountNumber)
	return fmt.Sprintf("fa_%d", m.fundAccounts), nil
}

func (m *mockRail) CreatePayout(ctx context.Context, req paymentrail.PayoutRequest) (*paymentrail.PayoutResult, error) {
	m.mu.Lock()
	m.payouts = append(m.payouts, req)
	n := len(m.payouts)
	m.mu.Unlock()
	if m.mockCreatePayout != nil {
		return m.mockCreatePayout(ctx, req)
	}
	return &paymentrail.PayoutResult{ID: fmt.Sprintf("pout_%d", n), Status: "processing"}, nil
}

func (m *mockRail) ListCaptures(ctx context.Context, from, to time.Time) ([]paymentrail.Capture, error) {
	if m.mockListCaptures != nil {
		return m.mockListCaptures(ctx, from, to)
	}
	return nil, nil
}

// syncRunner runs async jobs inline so tests can observe them
type syncRunner struct {
	ran int
}

func (r *syncRunner) EnqueueAsync(job jobs.Job) {
	r.ran++
	_ = job(context.Background())
}

type mockMailer struct {
	confirmations []PayoutConfirmation
	alerts        []string
}

func (m *mockMailer) SendPayoutConfirmation(ctx context.Context, payee *models.Payee, payout PayoutConfirmation) error {
	m.confirmations = append(m.confirmations, payout)
	return nil
}

func (m *mockMailer) SendOpsAlert(ctx context.Context, subject string, lines []string) error {
	m.alerts = append(m.alerts, subject)
	return nil
}

type testEnv struct {
	db       *gorm.DB
	repos    *repository.Repositories
	policy   *config.Policy
	audit    *AuditService
	groups   *CoachGroupService
	referral *ReferralService
	splits   *RevenueSplitService
	tds      *TDSService
	rail     *mockRail
	mailer   *mockMailer
	runner   *syncRunner
	payouts  *DisbursementService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	repos := repository.NewRepositories(db)
	policy := testPolicy()
	now := func() time.Time { return fixedNow }

	env := &testEnv{
		db:     db,
		repos:  repos,
		policy: policy,
		rail:   &mockRail{},
		mailer: &mockMailer{},
		runner: &syncRunner{},
	}
	env.audit = NewAuditService(repos.Audit)
	env.groups = NewCoachGroupService(repos.CoachGroup, env.audit, policy)
	env.referral = NewReferralService(repos.Referral, repos, policy)
	env.referral.now = now
	env.splits = NewRevenueSplitService(repos, repos, env.groups, NewPayoutScheduler(policy.InstallmentCount, policy.PayoutDayOfMonth), env.referral, env.audit, policy)
	env.splits.now = now
	env.tds = NewTDSService(repos.TDS, repos, env.audit, nil)
	env.tds.now = now
	env.payouts = NewDisbursementService(repos, repos, env.rail, testCipher, env.tds, env.audit, env.mailer, env.runner, policy, 0)
	env.payouts.now = now
	return env
}

var adminActor = Actor{UserID: 1, Role: RoleAdmin, IP: "127.0.0.1"}
