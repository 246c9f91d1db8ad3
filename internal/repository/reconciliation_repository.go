package repository

import (
	"context"
	"time"

	"github.com/sjperalta/coachpay-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReconciliationRepository defines the interface for reconciliation findings and runs
type ReconciliationRepository interface {
	// UpsertFinding inserts a new finding or bumps the detection counters of the
	// existing (kind, reference) row. Returns true when the row was created.
	UpsertFinding(ctx context.Context, finding *models.ReconciliationFinding) (bool, error)
	FindFindingByID(ctx context.Context, id uint) (*models.ReconciliationFinding, error)
	ListOpenFindings(ctx context.Context, detectedSince time.Time) ([]models.ReconciliationFinding, error)
	ResolveFinding(ctx context.Context, id uint, resolution, note string, userID uint, at time.Time) (bool, error)
	CreateRun(ctx context.Context, run *models.ReconciliationRun) error
	UpdateRun(ctx context.Context, run *models.ReconciliationRun) error
	LatestRun(ctx context.Context) (*models.ReconciliationRun, error)
}

type reconciliationRepository struct {
	db *gorm.DB
}

// NewReconciliationRepository creates a new reconciliation repository
func NewReconciliationRepository(db *gorm.DB) ReconciliationRepository {
	return &reconciliationRepository{db: db}
}

func (r *reconciliationRepository) UpsertFinding(ctx context.Context, finding *models.ReconciliationFinding) (bool, error) {
	db := r.db.WithContext(ctx)

	if finding.FirstDetectedAt.IsZero() {
		finding.FirstDetectedAt = finding.LastDetectedAt
	}
	if finding.Status == "" {
		finding.Status = models.FindingStatusOpen
	}
	finding.DetectionCount = 1

	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kind"}, {Name: "reference"}},
		DoNothing: true,
	}).Create(finding)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	err := db.Model(&models.ReconciliationFinding{}).
		Where("kind = ? AND reference = ?", finding.Kind, finding.Reference).
		Updates(map[string]interface{}{
			"detection_count":  gorm.Expr("detection_count + 1"),
			"last_detected_at": finding.LastDetectedAt,
			"last_run_id":      finding.LastRunID,
		}).Error
	return false, err
}

func (r *reconciliationRepository) FindFindingByID(ctx context.Context, id uint) (*models.ReconciliationFinding, error) {
	var finding models.ReconciliationFinding
	if err := r.db.WithContext(ctx).First(&finding, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &finding, nil
}

func (r *reconciliationRepository) ListOpenFindings(ctx context.Context, detectedSince time.Time) ([]models.ReconciliationFinding, error) {
	var findings []models.ReconciliationFinding
	err := r.db.WithContext(ctx).
		Where("status = ? AND last_detected_at >= ?", models.FindingStatusOpen, detectedSince).
		Order("first_detected_at DESC, id DESC").
		Find(&findings).Error
	return findings, err
}

func (r *reconciliationRepository) ResolveFinding(ctx context.Context, id uint, resolution, note string, userID uint, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.ReconciliationFinding{}).
		Where("id = ? AND status = ?", id, models.FindingStatusOpen).
		Updates(map[string]interface{}{
			"status":              models.FindingStatusResolved,
			"resolution":          resolution,
			"resolution_note":     note,
			"resolved_by_user_id": userID,
			"resolved_at":         at,
		})
	return result.RowsAffected > 0, result.Error
}

func (r *reconciliationRepository) CreateRun(ctx context.Context, run *models.ReconciliationRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *reconciliationRepository) UpdateRun(ctx context.Context, run *models.ReconciliationRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

func (r *reconciliationRepository) LatestRun(ctx context.Context) (*models.ReconciliationRun, error) {
	var run models.ReconciliationRun
	if err := r.db.WithContext(ctx).Order("started_at DESC").First(&run).Error; err != nil {
		return nil, translateError(err)
	}
	return &run, nil
}
