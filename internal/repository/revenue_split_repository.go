package repository

import (
	"context"

	"github.com/sjperalta/coachpay-api/internal/models"
	"gorm.io/gorm"
)

// RevenueSplitRepository defines the interface for revenue split data access
type RevenueSplitRepository interface {
	Create(ctx context.Context, split *models.RevenueSplit) error
	FindByID(ctx context.Context, id uint) (*models.RevenueSplit, error)
	FindByEnrollment(ctx context.Context, enrollmentID uint) (*models.RevenueSplit, error)
	List(ctx context.Context, query *ListQuery) ([]models.RevenueSplit, int64, error)
	// TransitionStatus moves a split from one status to another; false when it was not in from.
	TransitionStatus(ctx context.Context, id uint, from, to string) (bool, error)
}

type revenueSplitRepository struct {
	db *gorm.DB
}

// NewRevenueSplitRepository creates a new revenue split repository
func NewRevenueSplitRepository(db *gorm.DB) RevenueSplitRepository {
	return &revenueSplitRepository{db: db}
}

func (r *revenueSplitRepository) Create(ctx context.Context, split *models.RevenueSplit) error {
	return translateError(r.db.WithContext(ctx).Omit("Installments").Create(split).Error)
}

func (r *revenueSplitRepository) FindByID(ctx context.Context, id uint) (*models.RevenueSplit, error) {
	var split models.RevenueSplit
	err := r.db.WithContext(ctx).
		Preload("Installments", func(db *gorm.DB) *gorm.DB {
			return db.Order("installment_type ASC, installment_number ASC, attempt ASC")
		}).
		First(&split, id).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &split, nil
}

func (r *revenueSplitRepository) FindByEnrollment(ctx context.Context, enrollmentID uint) (*models.RevenueSplit, error) {
	var split models.RevenueSplit
	if err := r.db.WithContext(ctx).Where("enrollment_id = ?", enrollmentID).First(&split).Error; err != nil {
		return nil, translateError(err)
	}
	return &split, nil
}

var splitSortColumns = map[string]string{
	"created_at":   "created_at",
	"total_amount": "total_amount",
	"status":       "status",
}

func (r *revenueSplitRepository) List(ctx context.Context, query *ListQuery) ([]models.RevenueSplit, int64, error) {
	var splits []models.RevenueSplit
	var total int64

	db := r.db.WithContext(ctx).Model(&models.RevenueSplit{})

	if val := query.Filters["payee_id"]; val != "" {
		db = db.Where("coach_payee_id = ? OR referring_payee_id = ?", val, val)
	}
	if val := query.Filters["status"]; val != "" {
		db = db.Where("status = ?", val)
	}
	if val := query.Filters["enrollment_id"]; val != "" {
		db = db.Where("enrollment_id = ?", val)
	}
	if val := query.Filters["fiscal_year"]; val != "" {
		db = db.Where("fiscal_year = ?", val)
	}

	countDB := db.Session(&gorm.Session{})
	if err := countDB.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.paginate(db, splitSortColumns, "created_at DESC").Find(&splits).Error
	return splits, total, err
}

func (r *revenueSplitRepository) TransitionStatus(ctx context.Context, id uint, from, to string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.RevenueSplit{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return result.RowsAffected > 0, result.Error
}
