package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Revenue split status constants
const (
	SplitStatusPending   = "pending"
	SplitStatusScheduled = "scheduled"
	SplitStatusCompleted = "completed"
)

// SplitConfigSnapshot freezes the configuration a split was computed with
type SplitConfigSnapshot struct {
	CoachGroupID       uint            `json:"coach_group_id"`
	CoachGroupName     string          `json:"coach_group_name"`
	LeadCostPercent    decimal.Decimal `json:"lead_cost_percent"`
	CoachCostPercent   decimal.Decimal `json:"coach_cost_percent"`
	PlatformFeePercent decimal.Decimal `json:"platform_fee_percent"`
	IsInternal         bool            `json:"is_internal"`
	TDSRatePercent     decimal.Decimal `json:"tds_rate_percent"`
	TDSAnnualThreshold decimal.Decimal `json:"tds_annual_threshold"`
	InstallmentCount   int             `json:"installment_count"`
	PayoutDayOfMonth   int             `json:"payout_day_of_month"`
}

// RevenueSplit is the ledger row recording how one enrollment's payment was divided.
// It is written once and never recomputed.
type RevenueSplit struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	EnrollmentID      uint            `gorm:"not null;uniqueIndex" json:"enrollment_id"`
	CoachPayeeID      uint            `gorm:"not null;index" json:"coach_payee_id"`
	ReferringPayeeID  *uint           `gorm:"index" json:"referring_payee_id"`
	LeadSource        string          `gorm:"size:20;not null" json:"lead_source"`
	CoachGroupID      uint            `gorm:"not null" json:"coach_group_id"`
	TotalAmount       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	LeadCostAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"lead_cost_amount"`
	CoachCostAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"coach_cost_amount"`
	PlatformFeeAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"platform_fee_amount"`
	TDSApplicable     bool            `gorm:"column:tds_applicable;not null;default:false" json:"tds_applicable"`
	TDSAmount         decimal.Decimal `gorm:"column:tds_amount;type:decimal(12,2);not null;default:0" json:"tds_amount"`
	CoachTDSAmount    decimal.Decimal `gorm:"column:coach_tds_amount;type:decimal(12,2);not null;default:0" json:"coach_tds_amount"`
	LeadTDSAmount     decimal.Decimal `gorm:"column:lead_tds_amount;type:decimal(12,2);not null;default:0" json:"lead_tds_amount"`
	FiscalYear        string          `gorm:"size:7;not null;index" json:"fiscal_year"`
	ConfigSnapshot    datatypes.JSON  `json:"config_snapshot"`
	Status            string          `gorm:"size:20;not null;default:pending;index" json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	// Associations
	Installments []PayoutInstallment `gorm:"foreignKey:RevenueSplitID" json:"installments,omitempty"`
}

// TableName specifies the table name for RevenueSplit
func (RevenueSplit) TableName() string {
	return "revenue_splits"
}

// Snapshot decodes the frozen configuration
func (r *RevenueSplit) Snapshot() (*SplitConfigSnapshot, error) {
	var snap SplitConfigSnapshot
	if len(r.ConfigSnapshot) == 0 {
		return &snap, nil
	}
	if err := json.Unmarshal(r.ConfigSnapshot, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// SetSnapshot encodes snap into ConfigSnapshot
func (r *RevenueSplit) SetSnapshot(snap SplitConfigSnapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	r.ConfigSnapshot = datatypes.JSON(raw)
	return nil
}
