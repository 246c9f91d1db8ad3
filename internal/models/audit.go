package models

import (
	"time"
)

// Audit actions
const (
	AuditActionCreate        = "CREATE"
	AuditActionUpdate        = "UPDATE"
	AuditActionMarkDeposited = "MARK_DEPOSITED"
	AuditActionRetry         = "RETRY"
	AuditActionResolve       = "RESOLVE"
	AuditActionResplit       = "RESPLIT"
	AuditActionSplit         = "SPLIT"
)

// Audit outcomes
const (
	AuditOutcomeSuccess = "success"
	AuditOutcomeFailure = "failure"
)

// AuditLog represents a system audit entry. UserID 0 is the system actor.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;default:0;index" json:"user_id"`
	Action    string    `gorm:"size:50;not null" json:"action"`
	Entity    string    `gorm:"size:50;not null" json:"entity"` // CoachGroup, TDSLedgerEntry, PayoutInstallment, etc.
	EntityID  uint      `json:"entity_id"`
	Outcome   string    `gorm:"size:20;not null;default:success" json:"outcome"`
	Details   string    `gorm:"type:text" json:"details"` // JSON or text description
	IPAddress string    `gorm:"size:45" json:"ip_address"`
	UserAgent string    `gorm:"size:255" json:"user_agent"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for AuditLog
func (AuditLog) TableName() string {
	return "audit_logs"
}
