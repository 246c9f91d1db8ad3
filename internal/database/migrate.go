package database

import (
	"fmt"

	"github.com/sjperalta/coachpay-api/internal/models"
	"gorm.io/gorm"
)

// Models lists every table owned or read by the engine, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.CoachGroup{},
		&models.Payee{},
		&models.PayeeEarningsCounter{},
		&models.EarningsCounterApplication{},
		&models.Enrollment{},
		&models.Payment{},
		&models.RevenueSplit{},
		&models.PayoutInstallment{},
		&models.PayoutRun{},
		&models.TDSLedgerEntry{},
		&models.ReferralCoupon{},
		&models.ReferringParty{},
		&models.ReferralCreditTransaction{},
		&models.ReconciliationFinding{},
		&models.ReconciliationRun{},
		&models.AuditLog{},
	}
}

// Migrate creates or updates the schema
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
