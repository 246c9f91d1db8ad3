package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Payee is a coach or lead-referring party entitled to a share of enrollment revenue.
// The profile itself is owned by the coaching platform; the engine stores rail ids on it.
type Payee struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	Name                 string    `gorm:"not null" json:"name"`
	Email                string    `gorm:"index" json:"email"`
	Phone                string    `json:"phone"`
	CoachGroupID         *uint     `gorm:"index" json:"coach_group_id"`
	PayoutEnabled        bool      `gorm:"not null;default:false" json:"payout_enabled"`
	PAN                  string    `gorm:"column:pan;size:10" json:"-"`
	BankAccountName      string    `json:"bank_account_name"`
	BankAccountNumberEnc string    `gorm:"column:bank_account_number_enc;type:text" json:"-"`
	BankAccountLast4     string    `gorm:"size:4" json:"bank_account_last4"`
	BankIFSC             string    `gorm:"column:bank_ifsc;size:11" json:"bank_ifsc"`
	RailContactID        *string   `json:"rail_contact_id,omitempty"`
	RailFundAccountID    *string   `json:"rail_fund_account_id,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`

	// Associations
	CoachGroup *CoachGroup `gorm:"foreignKey:CoachGroupID" json:"coach_group,omitempty"`
}

// TableName specifies the table name for Payee
func (Payee) TableName() string {
	return "payees"
}

// MissingPayoutDetails lists the prerequisites for disbursement that are absent
func (p *Payee) MissingPayoutDetails() []string {
	var missing []string
	if !p.PayoutEnabled {
		missing = append(missing, "payout_disabled")
	}
	if p.BankAccountNumberEnc == "" {
		missing = append(missing, "bank_account")
	}
	if strings.TrimSpace(p.BankIFSC) == "" {
		missing = append(missing, "ifsc")
	}
	if strings.TrimSpace(p.PAN) == "" {
		missing = append(missing, "pan")
	}
	return missing
}

// MaskedPAN returns the PAN with only the first 2 and last 3 characters visible
func (p *Payee) MaskedPAN() string {
	return MaskTaxID(p.PAN)
}

// MaskTaxID keeps the first 2 and last 3 characters; shorter ids are fully masked.
func MaskTaxID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	if len(id) <= 5 {
		return strings.Repeat("*", len(id))
	}
	return id[:2] + strings.Repeat("*", len(id)-5) + id[len(id)-3:]
}

// PayeeEarningsCounter is the cumulative earnings of a payee in one fiscal year.
// Version increments on every update.
type PayeeEarningsCounter struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	PayeeID            uint            `gorm:"not null;uniqueIndex:idx_earnings_counter_payee_fy,priority:1" json:"payee_id"`
	FiscalYear         string          `gorm:"size:7;not null;uniqueIndex:idx_earnings_counter_payee_fy,priority:2" json:"fiscal_year"`
	CumulativeEarnings decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"cumulative_earnings"`
	Version            int64           `gorm:"not null;default:0" json:"version"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// TableName specifies the table name for PayeeEarningsCounter
func (PayeeEarningsCounter) TableName() string {
	return "payee_earnings_counters"
}

// Earnings components
const (
	EarningsComponentCoachCost = "coach_cost"
	EarningsComponentLeadBonus = "lead_bonus"
)

// EarningsCounterApplication records each counter update keyed by enrollment, so the
// same enrollment can never advance a payee's counter twice.
type EarningsCounterApplication struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	EnrollmentID     uint            `gorm:"not null;uniqueIndex:idx_counter_application,priority:1" json:"enrollment_id"`
	PayeeID          uint            `gorm:"not null;uniqueIndex:idx_counter_application,priority:2" json:"payee_id"`
	Component        string          `gorm:"size:20;not null;uniqueIndex:idx_counter_application,priority:3" json:"component"`
	FiscalYear       string          `gorm:"size:7;not null" json:"fiscal_year"`
	Amount           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	CumulativeBefore decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"cumulative_before"`
	CumulativeAfter  decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"cumulative_after"`
	CounterVersion   int64           `gorm:"not null" json:"counter_version"`
	CreatedAt        time.Time       `json:"created_at"`
}

// TableName specifies the table name for EarningsCounterApplication
func (EarningsCounterApplication) TableName() string {
	return "earnings_counter_applications"
}
