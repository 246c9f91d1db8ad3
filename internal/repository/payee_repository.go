package repository

import (
	"context"

	"github.com/sjperalta/coachpay-api/internal/models"
	"gorm.io/gorm"
)

// PayeeRepository defines the interface for payee data access
type PayeeRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Payee, error)
	FindByIDs(ctx context.Context, ids []uint) ([]models.Payee, error)
	SetRailContact(ctx context.Context, id uint, contactID string) error
	SetRailFundAccount(ctx context.Context, id uint, fundAccountID string) error
}

type payeeRepository struct {
	db *gorm.DB
}

// NewPayeeRepository creates a new payee repository
func NewPayeeRepository(db *gorm.DB) PayeeRepository {
	return &payeeRepository{db: db}
}

func (r *payeeRepository) FindByID(ctx context.Context, id uint) (*models.Payee, error) {
	var payee models.Payee
	if err := r.db.WithContext(ctx).Preload("CoachGroup").First(&payee, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &payee, nil
}

func (r *payeeRepository) FindByIDs(ctx context.Context, ids []uint) ([]models.Payee, error) {
	var payees []models.Payee
	if len(ids) == 0 {
		return payees, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&payees).Error
	return payees, err
}

func (r *payeeRepository) SetRailContact(ctx context.Context, id uint, contactID string) error {
	return r.db.WithContext(ctx).Model(&models.Payee{}).
		Where("id = ?", id).
		Update("rail_contact_id", contactID).Error
}

func (r *payeeRepository) SetRailFundAccount(ctx context.Context, id uint, fundAccountID string) error {
	return r.db.WithContext(ctx).Model(&models.Payee{}).
		Where("id = ?", id).
		Update("rail_fund_account_id", fundAccountID).Error
}
