package repository

import (
	"context"
	"time"

	"github.com/sjperalta/coachpay-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InstallmentRepository defines the interface for payout installment data access.
// Status changes go through guarded updates so concurrent batch runs cannot
// move the same row twice.
type InstallmentRepository interface {
	CreateBatch(ctx context.Context, installments []models.PayoutInstallment) error
	Create(ctx context.Context, installment *models.PayoutInstallment) error
	FindByID(ctx context.Context, id uint) (*models.PayoutInstallment, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*models.PayoutInstallment, error)
	CountBySplit(ctx context.Context, splitID uint) (int64, error)
	List(ctx context.Context, query *ListQuery) ([]models.PayoutInstallment, int64, error)
	// FindDue returns unclaimed scheduled installments due on or before asOf, ordered by payee
	FindDue(ctx context.Context, asOf time.Time) ([]models.PayoutInstallment, error)
	// Claim stamps ref on the given rows that are still scheduled and unclaimed and returns the rows it won
	Claim(ctx context.Context, ids []uint, ref string, at time.Time) ([]models.PayoutInstallment, error)
	MarkPaid(ctx context.Context, ref, settlementID string, at time.Time) (int64, error)
	MarkFailed(ctx context.Context, ref, reason string, at time.Time) (int64, error)
	// Supersede links a failed row to its retry attempt; false when already superseded or not failed
	Supersede(ctx context.Context, id, replacementID uint) (bool, error)
	// AllPaid reports whether every live (non-superseded) installment of the split is paid
	AllPaid(ctx context.Context, splitID uint) (bool, error)
}

type installmentRepository struct {
	db *gorm.DB
}

// NewInstallmentRepository creates a new installment repository
func NewInstallmentRepository(db *gorm.DB) InstallmentRepository {
	return &installmentRepository{db: db}
}

func (r *installmentRepository) CreateBatch(ctx context.Context, installments []models.PayoutInstallment) error {
	if len(installments) == 0 {
		return nil
	}
	return translateError(r.db.WithContext(ctx).Omit("Payee").Create(&installments).Error)
}

func (r *installmentRepository) Create(ctx context.Context, installment *models.PayoutInstallment) error {
	return translateError(r.db.WithContext(ctx).Omit("Payee").Create(installment).Error)
}

func (r *installmentRepository) FindByID(ctx context.Context, id uint) (*models.PayoutInstallment, error) {
	var inst models.PayoutInstallment
	if err := r.db.WithContext(ctx).First(&inst, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &inst, nil
}

func (r *installmentRepository) FindByIDForUpdate(ctx context.Context, id uint) (*models.PayoutInstallment, error) {
	var inst models.PayoutInstallment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&inst, id).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &inst, nil
}

func (r *installmentRepository) CountBySplit(ctx context.Context, splitID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PayoutInstallment{}).
		Where("revenue_split_id = ?", splitID).
		Count(&count).Error
	return count, err
}

var installmentSortColumns = map[string]string{
	"scheduled_date": "scheduled_date",
	"net_amount":     "net_amount",
	"created_at":     "created_at",
}

func (r *installmentRepository) List(ctx context.Context, query *ListQuery) ([]models.PayoutInstallment, int64, error) {
	var installments []models.PayoutInstallment
	var total int64

	db := r.db.WithContext(ctx).Model(&models.PayoutInstallment{})

	if val := query.Filters["payee_id"]; val != "" {
		db = db.Where("payee_id = ?", val)
	}
	if val := query.Filters["status"]; val != "" {
		db = db.Where("status = ?", val)
	}
	if val := query.Filters["type"]; val != "" {
		db = db.Where("installment_type = ?", val)
	}
	if val := query.Filters["revenue_split_id"]; val != "" {
		db = db.Where("revenue_split_id = ?", val)
	}
	if val := query.Filters["due_before"]; val != "" {
		db = db.Where("scheduled_date <= ?", val)
	}
	if query.Filters["include_superseded"] != "true" {
		db = db.Where("superseded_by_id IS NULL")
	}

	countDB := db.Session(&gorm.Session{})
	if err := countDB.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.paginate(db, installmentSortColumns, "scheduled_date ASC, id ASC").Find(&installments).Error
	return installments, total, err
}

func (r *installmentRepository) FindDue(ctx context.Context, asOf time.Time) ([]models.PayoutInstallment, error) {
	var installments []models.PayoutInstallment
	err := r.db.WithContext(ctx).
		Where("status = ? AND claim_ref IS NULL AND scheduled_date <= ?", models.InstallmentStatusScheduled, asOf).
		Order("payee_id ASC, scheduled_date ASC, id ASC").
		Find(&installments).Error
	return installments, err
}

func (r *installmentRepository) Claim(ctx context.Context, ids []uint, ref string, at time.Time) ([]models.PayoutInstallment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	db := r.db.WithContext(ctx)
	err := db.Model(&models.PayoutInstallment{}).
		Where("id IN ? AND status = ? AND claim_ref IS NULL", ids, models.InstallmentStatusScheduled).
		Updates(map[string]interface{}{
			"claim_ref":  ref,
			"claimed_at": at,
		}).Error
	if err != nil {
		return nil, err
	}

	var claimed []models.PayoutInstallment
	err = db.Where("claim_ref = ? AND status = ?", ref, models.InstallmentStatusScheduled).
		Order("id ASC").
		Find(&claimed).Error
	return claimed, err
}

func (r *installmentRepository) MarkPaid(ctx context.Context, ref, settlementID string, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.PayoutInstallment{}).
		Where("claim_ref = ? AND status = ?", ref, models.InstallmentStatusScheduled).
		Updates(map[string]interface{}{
			"status":        models.InstallmentStatusPaid,
			"settlement_id": settlementID,
			"paid_at":       at,
		})
	return result.RowsAffected, result.Error
}

func (r *installmentRepository) MarkFailed(ctx context.Context, ref, reason string, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.PayoutInstallment{}).
		Where("claim_ref = ? AND status = ?", ref, models.InstallmentStatusScheduled).
		Updates(map[string]interface{}{
			"status":         models.InstallmentStatusFailed,
			"failure_reason": reason,
			"failed_at":      at,
		})
	return result.RowsAffected, result.Error
}

func (r *installmentRepository) Supersede(ctx context.Context, id, replacementID uint) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.PayoutInstallment{}).
		Where("id = ? AND status = ? AND superseded_by_id IS NULL", id, models.InstallmentStatusFailed).
		Update("superseded_by_id", replacementID)
	return result.RowsAffected > 0, result.Error
}

func (r *installmentRepository) AllPaid(ctx context.Context, splitID uint) (bool, error) {
	var outstanding int64
	err := r.db.WithContext(ctx).Model(&models.PayoutInstallment{}).
		Where("revenue_split_id = ? AND superseded_by_id IS NULL AND status <> ?", splitID, models.InstallmentStatusPaid).
		Count(&outstanding).Error
	return outstanding == 0, err
}

// PayoutRunRepository stores disbursement batch summaries
type PayoutRunRepository interface {
	Create(ctx context.Context, run *models.PayoutRun) error
	Update(ctx context.Context, run *models.PayoutRun) error
	ListRecent(ctx context.Context, limit int) ([]models.PayoutRun, error)
}

type payoutRunRepository struct {
	db *gorm.DB
}

// NewPayoutRunRepository creates a new payout run repository
func NewPayoutRunRepository(db *gorm.DB) PayoutRunRepository {
	return &payoutRunRepository{db: db}
}

func (r *payoutRunRepository) Create(ctx context.Context, run *models.PayoutRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *payoutRunRepository) Update(ctx context.Context, run *models.PayoutRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

func (r *payoutRunRepository) ListRecent(ctx context.Context, limit int) ([]models.PayoutRun, error) {
	var runs []models.PayoutRun
	err := r.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&runs).Error
	return runs, err
}
