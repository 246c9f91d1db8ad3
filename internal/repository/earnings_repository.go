package repository

import (
	"context"
	"errors"

	"github.com/sjperalta/coachpay-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EarningsCounterRepository defines the interface for FY earnings counters
type EarningsCounterRepository interface {
	// GetForUpdate returns the counter row locked for the surrounding transaction.
	// A payee without earnings in fy gets an unsaved zero counter.
	GetForUpdate(ctx context.Context, payeeID uint, fiscalYear string) (*models.PayeeEarningsCounter, error)
	// Apply records app and advances counter to app.CumulativeAfter.
	// Returns ErrDuplicate when the (enrollment, payee, component) key was already applied.
	Apply(ctx context.Context, counter *models.PayeeEarningsCounter, app *models.EarningsCounterApplication) error
	Find(ctx context.Context, payeeID uint, fiscalYear string) (*models.PayeeEarningsCounter, error)
}

type earningsCounterRepository struct {
	db *gorm.DB
}

// NewEarningsCounterRepository creates a new earnings counter repository
func NewEarningsCounterRepository(db *gorm.DB) EarningsCounterRepository {
	return &earningsCounterRepository{db: db}
}

func (r *earningsCounterRepository) GetForUpdate(ctx context.Context, payeeID uint, fiscalYear string) (*models.PayeeEarningsCounter, error) {
	var counter models.PayeeEarningsCounter
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("payee_id = ? AND fiscal_year = ?", payeeID, fiscalYear).
		First(&counter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.PayeeEarningsCounter{PayeeID: payeeID, FiscalYear: fiscalYear}, nil
	}
	if err != nil {
		return nil, err
	}
	return &counter, nil
}

func (r *earningsCounterRepository) Find(ctx context.Context, payeeID uint, fiscalYear string) (*models.PayeeEarningsCounter, error) {
	var counter models.PayeeEarningsCounter
	err := r.db.WithContext(ctx).
		Where("payee_id = ? AND fiscal_year = ?", payeeID, fiscalYear).
		First(&counter).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &counter, nil
}

func (r *earningsCounterRepository) Apply(ctx context.Context, counter *models.PayeeEarningsCounter, app *models.EarningsCounterApplication) error {
	db := r.db.WithContext(ctx)

	app.CounterVersion = counter.Version + 1
	if err := db.Create(app).Error; err != nil {
		return translateError(err)
	}

	if counter.ID == 0 {
		counter.CumulativeEarnings = app.CumulativeAfter
		counter.Version = 1
		if err := db.Create(counter).Error; err != nil {
			if err = translateError(err); errors.Is(err, ErrDuplicate) {
				// another transaction created the row after our read
				return ErrConcurrentUpdate
			}
			return err
		}
		return nil
	}

	result := db.Model(&models.PayeeEarningsCounter{}).
		Where("id = ? AND version = ?", counter.ID, counter.Version).
		Updates(map[string]interface{}{
			"cumulative_earnings": app.CumulativeAfter,
			"version":             counter.Version + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}
	counter.CumulativeEarnings = app.CumulativeAfter
	counter.Version++
	return nil
}
