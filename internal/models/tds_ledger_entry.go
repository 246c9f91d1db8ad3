package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TDSLedgerEntry records tax withheld on one disbursed installment
type TDSLedgerEntry struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	InstallmentID     uint            `gorm:"not null;uniqueIndex" json:"installment_id"`
	PayeeID           uint            `gorm:"not null;index" json:"payee_id"`
	FinancialYear     string          `gorm:"size:7;not null;index:idx_tds_period,priority:1" json:"financial_year"`
	Quarter           string          `gorm:"size:2;not null;index:idx_tds_period,priority:2" json:"quarter"`
	GrossAmount       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"gross_amount"`
	TDSRatePercent    decimal.Decimal `gorm:"column:tds_rate_percent;type:decimal(5,2);not null" json:"tds_rate_percent"`
	TDSAmount         decimal.Decimal `gorm:"column:tds_amount;type:decimal(12,2);not null" json:"tds_amount"`
	Deposited         bool            `gorm:"not null;default:false;index" json:"deposited"`
	ChallanNumber     *string         `gorm:"size:50" json:"challan_number"`
	DepositDate       *time.Time      `gorm:"type:date" json:"deposit_date"`
	DepositedByUserID *uint           `json:"deposited_by_user_id"`
	SettlementID      string          `gorm:"size:64" json:"settlement_id"`
	DeductedAt        time.Time       `json:"deducted_at"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	// Associations
	Payee *Payee `gorm:"foreignKey:PayeeID" json:"payee,omitempty"`
}

// TableName specifies the table name for TDSLedgerEntry
func (TDSLedgerEntry) TableName() string {
	return "tds_ledger_entries"
}
