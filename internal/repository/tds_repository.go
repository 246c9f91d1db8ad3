package repository

import (
	"context"
	"time"

	"github.com/sjperalta/coachpay-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TDSLedgerRepository defines the interface for TDS ledger data access
type TDSLedgerRepository interface {
	Create(ctx context.Context, entry *models.TDSLedgerEntry) error
	// ListByFiscalYear returns entries of fy with their payee, optionally for a single payee
	ListByFiscalYear(ctx context.Context, fiscalYear string, payeeID *uint) ([]models.TDSLedgerEntry, error)
	ListForCertificate(ctx context.Context, payeeID uint, fiscalYear, quarter string) ([]models.TDSLedgerEntry, error)
	// LockUndeposited locks the not-yet-deposited rows of a quarter, narrowed to ids when given
	LockUndeposited(ctx context.Context, fiscalYear, quarter string, ids []uint) ([]models.TDSLedgerEntry, error)
	MarkDeposited(ctx context.Context, ids []uint, challanNumber *string, depositDate time.Time, userID uint) (int64, error)
}

type tdsLedgerRepository struct {
	db *gorm.DB
}

// NewTDSLedgerRepository creates a new TDS ledger repository
func NewTDSLedgerRepository(db *gorm.DB) TDSLedgerRepository {
	return &tdsLedgerRepository{db: db}
}

func (r *tdsLedgerRepository) Create(ctx context.Context, entry *models.TDSLedgerEntry) error {
	return translateError(r.db.WithContext(ctx).Omit("Payee").Create(entry).Error)
}

func (r *tdsLedgerRepository) ListByFiscalYear(ctx context.Context, fiscalYear string, payeeID *uint) ([]models.TDSLedgerEntry, error) {
	var entries []models.TDSLedgerEntry
	db := r.db.WithContext(ctx).
		Preload("Payee").
		Where("financial_year = ?", fiscalYear)
	if payeeID != nil {
		db = db.Where("payee_id = ?", *payeeID)
	}
	err := db.Order("quarter ASC, payee_id ASC, id ASC").Find(&entries).Error
	return entries, err
}

func (r *tdsLedgerRepository) ListForCertificate(ctx context.Context, payeeID uint, fiscalYear, quarter string) ([]models.TDSLedgerEntry, error) {
	var entries []models.TDSLedgerEntry
	db := r.db.WithContext(ctx).
		Where("payee_id = ? AND financial_year = ?", payeeID, fiscalYear)
	if quarter != "" {
		db = db.Where("quarter = ?", quarter)
	}
	err := db.Order("deducted_at ASC, id ASC").Find(&entries).Error
	return entries, err
}

func (r *tdsLedgerRepository) LockUndeposited(ctx context.Context, fiscalYear, quarter string, ids []uint) ([]models.TDSLedgerEntry, error) {
	var entries []models.TDSLedgerEntry
	db := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("financial_year = ? AND quarter = ? AND deposited = ?", fiscalYear, quarter, false)
	if len(ids) > 0 {
		db = db.Where("id IN ?", ids)
	}
	err := db.Order("id ASC").Find(&entries).Error
	return entries, err
}

func (r *tdsLedgerRepository) MarkDeposited(ctx context.Context, ids []uint, challanNumber *string, depositDate time.Time, userID uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	updates := map[string]interface{}{
		"deposited":            true,
		"deposit_date":         depositDate,
		"deposited_by_user_id": userID,
	}
	if challanNumber != nil {
		updates["challan_number"] = *challanNumber
	}
	result := r.db.WithContext(ctx).Model(&models.TDSLedgerEntry{}).
		Where("id IN ? AND deposited = ?", ids, false).
		Updates(updates)
	return result.RowsAffected, result.Error
}
