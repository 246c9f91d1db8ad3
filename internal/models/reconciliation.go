package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Finding kinds
const (
	FindingKindOrphanCapture = "orphan_capture"
	FindingKindMissingLedger = "missing_ledger"
)

// Finding status and resolution constants
const (
	FindingStatusOpen     = "open"
	FindingStatusResolved = "resolved"

	ResolutionEnrollmentCreated = "enrollment_created"
	ResolutionRefunded          = "refunded"
	ResolutionIgnored           = "ignored"
)

// ValidResolutions lists accepted operator decisions
var ValidResolutions = []string{ResolutionEnrollmentCreated, ResolutionRefunded, ResolutionIgnored}

// MissingLedgerReference builds the finding reference for an enrollment without a split
func MissingLedgerReference(enrollmentID uint) string {
	return fmt.Sprintf("enrollment:%d", enrollmentID)
}

// ReconciliationFinding is a discrepancy between the gateway and internal records.
// (kind, reference) is unique so repeated detections update one row.
type ReconciliationFinding struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	Kind             string           `gorm:"size:30;not null;uniqueIndex:idx_finding_reference,priority:1" json:"kind"`
	Reference        string           `gorm:"size:100;not null;uniqueIndex:idx_finding_reference,priority:2" json:"reference"`
	GatewayPaymentID *string          `gorm:"size:64" json:"gateway_payment_id,omitempty"`
	EnrollmentID     *uint            `json:"enrollment_id,omitempty"`
	Amount           *decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount,omitempty"`
	Currency         string           `gorm:"size:3" json:"currency,omitempty"`
	Email            string           `json:"email,omitempty"`
	Contact          string           `json:"contact,omitempty"`
	CapturedAt       *time.Time       `json:"captured_at,omitempty"`
	Details          datatypes.JSON   `json:"details,omitempty"`
	Status           string           `gorm:"size:20;not null;default:open;index" json:"status"`
	DetectionCount   int              `gorm:"not null;default:1" json:"detection_count"`
	FirstDetectedAt  time.Time        `gorm:"not null" json:"first_detected_at"`
	LastDetectedAt   time.Time        `gorm:"not null;index" json:"last_detected_at"`
	LastRunID        string           `gorm:"size:36" json:"last_run_id"`
	Resolution       *string          `gorm:"size:30" json:"resolution,omitempty"`
	ResolutionNote   *string          `gorm:"type:text" json:"resolution_note,omitempty"`
	ResolvedByUserID *uint            `json:"resolved_by_user_id,omitempty"`
	ResolvedAt       *time.Time       `json:"resolved_at,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// TableName specifies the table name for ReconciliationFinding
func (ReconciliationFinding) TableName() string {
	return "reconciliation_findings"
}

// ReconciliationRun status constants
const (
	ReconciliationRunCompleted = "completed"
	ReconciliationRunFailed    = "failed"
)

// ReconciliationRun is the persisted summary of one sweep
type ReconciliationRun struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	RunID          string     `gorm:"size:36;uniqueIndex;not null" json:"run_id"`
	LookbackDays   int        `json:"lookback_days"`
	WindowStart    time.Time  `json:"window_start"`
	WindowEnd      time.Time  `json:"window_end"`
	CapturesSeen   int        `json:"captures_seen"`
	Matched        int        `json:"matched"`
	NewFindings    int        `json:"new_findings"`
	RepeatFindings int        `json:"repeat_findings"`
	MissingLedger  int        `json:"missing_ledger"`
	Status         string     `gorm:"size:20;not null" json:"status"`
	Error          *string    `gorm:"type:text" json:"error,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at"`
}

// TableName specifies the table name for ReconciliationRun
func (ReconciliationRun) TableName() string {
	return "reconciliation_runs"
}
