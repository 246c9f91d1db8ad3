package repository

import (
	"context"
	"time"

	"github.com/sjperalta/coachpay-api/internal/models"
	"gorm.io/gorm"
)

// EnrollmentRepository reads enrollments owned by the enrollment service
type EnrollmentRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Enrollment, error)
	// FindPaidWithoutSplit returns paid enrollments created since the given time
	// that have no revenue split recorded.
	FindPaidWithoutSplit(ctx context.Context, since time.Time) ([]models.Enrollment, error)
}

type enrollmentRepository struct {
	db *gorm.DB
}

// NewEnrollmentRepository creates a new enrollment repository
func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) FindByID(ctx context.Context, id uint) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	if err := r.db.WithContext(ctx).First(&enrollment, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &enrollment, nil
}

func (r *enrollmentRepository) FindPaidWithoutSplit(ctx context.Context, since time.Time) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	err := r.db.WithContext(ctx).
		Joins("LEFT JOIN revenue_splits ON revenue_splits.enrollment_id = enrollments.id").
		Where("enrollments.status IN ?", []string{models.EnrollmentStatusActive, models.EnrollmentStatusCompleted}).
		Where("enrollments.created_at >= ?", since).
		Where("revenue_splits.id IS NULL").
		Order("enrollments.id ASC").
		Find(&enrollments).Error
	return enrollments, err
}

// PaymentRepository reads payment rows written by the payment-verification service
type PaymentRepository interface {
	// GatewayPaymentIDsSince returns the set of gateway payment ids recorded since the given time
	GatewayPaymentIDsSince(ctx context.Context, since time.Time) (map[string]struct{}, error)
}

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) GatewayPaymentIDsSince(ctx context.Context, since time.Time) (map[string]struct{}, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("gateway_payment_id <> '' AND created_at >= ?", since).
		Pluck("gateway_payment_id", &ids).Error
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}
