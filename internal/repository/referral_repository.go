package repository

import (
	"context"

	"github.com/sjperalta/coachpay-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReferralRepository defines the interface for referral credit data access
type ReferralRepository interface {
	FindCouponByCode(ctx context.Context, code string) (*models.ReferralCoupon, error)
	FindParty(ctx context.Context, id uint) (*models.ReferringParty, error)
	FindPartyForUpdate(ctx context.Context, id uint) (*models.ReferringParty, error)
	UpdatePartyCredit(ctx context.Context, party *models.ReferringParty) error
	CreateTransaction(ctx context.Context, txn *models.ReferralCreditTransaction) error
	ListTransactions(ctx context.Context, partyID uint, query *ListQuery) ([]models.ReferralCreditTransaction, int64, error)
}

type referralRepository struct {
	db *gorm.DB
}

// NewReferralRepository creates a new referral repository
func NewReferralRepository(db *gorm.DB) ReferralRepository {
	return &referralRepository{db: db}
}

func (r *referralRepository) FindCouponByCode(ctx context.Context, code string) (*models.ReferralCoupon, error) {
	var coupon models.ReferralCoupon
	err := r.db.WithContext(ctx).
		Where("LOWER(code) = LOWER(?)", code).
		First(&coupon).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &coupon, nil
}

func (r *referralRepository) FindParty(ctx context.Context, id uint) (*models.ReferringParty, error) {
	var party models.ReferringParty
	if err := r.db.WithContext(ctx).First(&party, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &party, nil
}

func (r *referralRepository) FindPartyForUpdate(ctx context.Context, id uint) (*models.ReferringParty, error) {
	var party models.ReferringParty
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&party, id).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &party, nil
}

func (r *referralRepository) UpdatePartyCredit(ctx context.Context, party *models.ReferringParty) error {
	return r.db.WithContext(ctx).Model(&models.ReferringParty{}).
		Where("id = ?", party.ID).
		Updates(map[string]interface{}{
			"credit_balance":    party.CreditBalance,
			"credit_expires_at": party.CreditExpiresAt,
		}).Error
}

func (r *referralRepository) CreateTransaction(ctx context.Context, txn *models.ReferralCreditTransaction) error {
	return translateError(r.db.WithContext(ctx).Create(txn).Error)
}

func (r *referralRepository) ListTransactions(ctx context.Context, partyID uint, query *ListQuery) ([]models.ReferralCreditTransaction, int64, error) {
	var txns []models.ReferralCreditTransaction
	var total int64

	db := r.db.WithContext(ctx).Model(&models.ReferralCreditTransaction{}).
		Where("referring_party_id = ?", partyID)

	countDB := db.Session(&gorm.Session{})
	if err := countDB.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.paginate(db, map[string]string{"created_at": "created_at"}, "created_at DESC").Find(&txns).Error
	return txns, total, err
}
