package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	CoachGroup     CoachGroupRepository
	Payee          PayeeRepository
	Earnings       EarningsCounterRepository
	Enrollment     EnrollmentRepository
	Payment        PaymentRepository
	RevenueSplit   RevenueSplitRepository
	Installment    InstallmentRepository
	PayoutRun      PayoutRunRepository
	TDS            TDSLedgerRepository
	Referral       ReferralRepository
	Reconciliation ReconciliationRepository
	Audit          AuditRepository

	db *gorm.DB
}

// NewRepositories creates all repository instances
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		CoachGroup:     NewCoachGroupRepository(db),
		Payee:          NewPayeeRepository(db),
		Earnings:       NewEarningsCounterRepository(db),
		Enrollment:     NewEnrollmentRepository(db),
		Payment:        NewPaymentRepository(db),
		RevenueSplit:   NewRevenueSplitRepository(db),
		Installment:    NewInstallmentRepository(db),
		PayoutRun:      NewPayoutRunRepository(db),
		TDS:            NewTDSLedgerRepository(db),
		Referral:       NewReferralRepository(db),
		Reconciliation: NewReconciliationRepository(db),
		Audit:          NewAuditRepository(db),
		db:             db,
	}
}

// Transactor runs fn with repositories bound to a single database transaction.
type Transactor interface {
	Transaction(ctx context.Context, fn func(tx *Repositories) error) error
}

// Transaction commits when fn returns nil and rolls back otherwise
func (r *Repositories) Transaction(ctx context.Context, fn func(tx *Repositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
