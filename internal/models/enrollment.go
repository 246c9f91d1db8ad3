package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lead source classification of an enrollment
const (
	LeadSourcePlatform       = "platform"
	LeadSourceReferringPayee = "referring_payee"
)

// Enrollment status constants (owned by the enrollment service)
const (
	EnrollmentStatusPending   = "pending"
	EnrollmentStatusActive    = "active"
	EnrollmentStatusCompleted = "completed"
	EnrollmentStatusCancelled = "cancelled"
)

// Enrollment is a purchased program instance. The engine only reads it.
type Enrollment struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	ParentID         uint            `gorm:"index" json:"parent_id"`
	ChildID          uint            `gorm:"index" json:"child_id"`
	CoachPayeeID     uint            `gorm:"index;not null" json:"coach_payee_id"`
	Amount           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	LeadSource       string          `gorm:"size:20;not null;default:platform" json:"lead_source"`
	ReferringPayeeID *uint           `gorm:"index" json:"referring_payee_id"`
	ReferralCode     *string         `gorm:"size:50" json:"referral_code"`
	Status           string          `gorm:"size:20;not null;default:pending;index" json:"status"`
	CreatedAt        time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Enrollment
func (Enrollment) TableName() string {
	return "enrollments"
}

// Payment is the internal record of a verified gateway payment. The engine only reads it.
type Payment struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	EnrollmentID     *uint           `gorm:"index" json:"enrollment_id"`
	GatewayPaymentID string          `gorm:"size:64;index" json:"gateway_payment_id"`
	GatewayOrderID   string          `gorm:"size:64" json:"gateway_order_id"`
	Amount           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Status           string          `gorm:"size:20;not null" json:"status"`
	CreatedAt        time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Payment
func (Payment) TableName() string {
	return "payments"
}
