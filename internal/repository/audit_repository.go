package repository

import (
	"context"

	"github.com/sjperalta/coachpay-api/internal/models"
	"gorm.io/gorm"
)

// AuditRepository persists audit entries
type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, query *ListQuery) ([]models.AuditLog, int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *auditRepository) List(ctx context.Context, query *ListQuery) ([]models.AuditLog, int64, error) {
	var logs []models.AuditLog
	var total int64

	db := r.db.WithContext(ctx).Model(&models.AuditLog{})
	if val := query.Filters["entity"]; val != "" {
		db = db.Where("entity = ?", val)
	}
	if val := query.Filters["action"]; val != "" {
		db = db.Where("action = ?", val)
	}

	countDB := db.Session(&gorm.Session{})
	if err := countDB.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.paginate(db, map[string]string{"created_at": "created_at"}, "created_at DESC").Find(&logs).Error
	return logs, total, err
}
