package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Installment status constants
const (
	InstallmentStatusScheduled = "scheduled"
	InstallmentStatusPaid      = "paid"
	InstallmentStatusFailed    = "failed"
)

// Installment type constants
const (
	InstallmentTypeCoachCost = "coach_cost"
	InstallmentTypeLeadBonus = "lead_bonus"
)

// PayoutInstallment is one scheduled disbursement to a payee.
// A retried installment keeps its row (superseded) and a new attempt is inserted.
type PayoutInstallment struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	RevenueSplitID    uint            `gorm:"not null;uniqueIndex:idx_installment_slot,priority:1" json:"revenue_split_id"`
	PayeeID           uint            `gorm:"not null;index;uniqueIndex:idx_installment_slot,priority:2" json:"payee_id"`
	InstallmentNumber int             `gorm:"not null;uniqueIndex:idx_installment_slot,priority:3" json:"installment_number"`
	InstallmentType   string          `gorm:"size:20;not null;uniqueIndex:idx_installment_slot,priority:4" json:"installment_type"`
	Attempt           int             `gorm:"not null;default:1;uniqueIndex:idx_installment_slot,priority:5" json:"attempt"`
	GrossAmount       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"gross_amount"`
	TDSRatePercent    decimal.Decimal `gorm:"column:tds_rate_percent;type:decimal(5,2);not null;default:0" json:"tds_rate_percent"`
	TDSAmount         decimal.Decimal `gorm:"column:tds_amount;type:decimal(12,2);not null;default:0" json:"tds_amount"`
	NetAmount         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"net_amount"`
	ScheduledDate     time.Time       `gorm:"type:date;not null;index" json:"scheduled_date"`
	Status            string          `gorm:"size:20;not null;default:scheduled;index" json:"status"`
	ClaimRef          *string         `gorm:"size:64;index" json:"claim_ref,omitempty"`
	ClaimedAt         *time.Time      `json:"claimed_at,omitempty"`
	SettlementID      *string         `gorm:"size:64" json:"settlement_id,omitempty"`
	PaidAt            *time.Time      `json:"paid_at,omitempty"`
	FailedAt          *time.Time      `json:"failed_at,omitempty"`
	FailureReason     *string         `gorm:"type:text" json:"failure_reason,omitempty"`
	RetryOfID         *uint           `json:"retry_of_id,omitempty"`
	SupersededByID    *uint           `json:"superseded_by_id,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	// Associations
	Payee *Payee `gorm:"foreignKey:PayeeID" json:"payee,omitempty"`
}

// TableName specifies the table name for PayoutInstallment
func (PayoutInstallment) TableName() string {
	return "payout_installments"
}

// IsSuperseded returns true once a retry attempt replaced this row
func (p *PayoutInstallment) IsSuperseded() bool {
	return p.SupersededByID != nil
}

// PayoutRun status constants
const (
	PayoutRunStatusRunning   = "running"
	PayoutRunStatusCompleted = "completed"
	PayoutRunStatusAborted   = "aborted"
)

// PayoutRun is the persisted summary of one disbursement batch
type PayoutRun struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	RunID           string          `gorm:"size:36;uniqueIndex;not null" json:"run_id"`
	Trigger         string          `gorm:"size:20;not null" json:"trigger"`
	Status          string          `gorm:"size:20;not null" json:"status"`
	PayeesProcessed int             `json:"payees_processed"`
	Succeeded       int             `json:"succeeded"`
	Skipped         int             `json:"skipped"`
	Failed          int             `json:"failed"`
	TotalDisbursed  decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"total_disbursed"`
	Results         datatypes.JSON  `json:"results"`
	StartedAt       time.Time       `json:"started_at"`
	FinishedAt      *time.Time      `json:"finished_at"`
	CreatedAt       time.Time       `json:"created_at"`
}

// TableName specifies the table name for PayoutRun
func (PayoutRun) TableName() string {
	return "payout_runs"
}

// MayPay returns true if the installment can be marked as paid
func (p *PayoutInstallment) MayPay() bool {
	return p.Status == InstallmentStatusScheduled && p.ClaimRef != nil
}

// MayFail returns true if the installment can be marked as failed
func (p *PayoutInstallment) MayFail() bool {
	return p.Status == InstallmentStatusScheduled && p.ClaimRef != nil
}

// MayRetry returns true if an operator may schedule a new attempt
func (p *PayoutInstallment) MayRetry() bool {
	return p.Status == InstallmentStatusFailed && !p.IsSuperseded()
}
