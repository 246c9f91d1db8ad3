package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Coupon type constants
const (
	CouponTypeReferringParty = "referring_party"
	CouponTypeDiscount       = "discount"
)

// Referral transaction type constants
const (
	ReferralTransactionEarn = "earn"
)

// ReferralCoupon is a code that may award credit to a referring party
type ReferralCoupon struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	Code             string          `gorm:"size:50;uniqueIndex;not null" json:"code"`
	CouponType       string          `gorm:"size:30;not null" json:"coupon_type"`
	ReferringPartyID *uint           `gorm:"index" json:"referring_party_id"`
	CreditPercent    decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"credit_percent"`
	Active           bool            `gorm:"not null;default:true" json:"active"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// TableName specifies the table name for ReferralCoupon
func (ReferralCoupon) TableName() string {
	return "referral_coupons"
}

// ReferringParty is an external party (school, partner) earning referral credit
type ReferringParty struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Name            string          `gorm:"not null" json:"name"`
	Email           string          `json:"email"`
	CreditBalance   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"credit_balance"`
	CreditExpiresAt *time.Time      `json:"credit_expires_at"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TableName specifies the table name for ReferringParty
func (ReferringParty) TableName() string {
	return "referring_parties"
}

// ReferralCreditTransaction is an append-only credit movement
type ReferralCreditTransaction struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	ReferringPartyID uint            `gorm:"not null;index" json:"referring_party_id"`
	EnrollmentID     uint            `gorm:"not null;uniqueIndex" json:"enrollment_id"`
	CouponCode       string          `gorm:"size:50;not null" json:"coupon_code"`
	TransactionType  string          `gorm:"size:20;not null" json:"transaction_type"`
	OriginalAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"original_amount"`
	CreditPercent    decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"credit_percent"`
	Amount           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	BalanceAfter     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"balance_after"`
	ExpiresAt        time.Time       `json:"expires_at"`
	CreatedAt        time.Time       `json:"created_at"`
}

// TableName specifies the table name for ReferralCreditTransaction
func (ReferralCreditTransaction) TableName() string {
	return "referral_credit_transactions"
}
