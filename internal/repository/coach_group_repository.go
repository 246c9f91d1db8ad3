package repository

import (
	"context"

	"github.com/sjperalta/coachpay-api/internal/models"
	"gorm.io/gorm"
)

// CoachGroupRepository defines the interface for coach group data access
type CoachGroupRepository interface {
	FindByID(ctx context.Context, id uint) (*models.CoachGroup, error)
	FindByName(ctx context.Context, name string) (*models.CoachGroup, error)
	List(ctx context.Context) ([]models.CoachGroup, error)
	Create(ctx context.Context, group *models.CoachGroup) error
	Update(ctx context.Context, group *models.CoachGroup) error
}

type coachGroupRepository struct {
	db *gorm.DB
}

// NewCoachGroupRepository creates a new coach group repository
func NewCoachGroupRepository(db *gorm.DB) CoachGroupRepository {
	return &coachGroupRepository{db: db}
}

func (r *coachGroupRepository) FindByID(ctx context.Context, id uint) (*models.CoachGroup, error) {
	var group models.CoachGroup
	if err := r.db.WithContext(ctx).First(&group, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &group, nil
}

func (r *coachGroupRepository) FindByName(ctx context.Context, name string) (*models.CoachGroup, error) {
	var group models.CoachGroup
	if err := r.db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).First(&group).Error; err != nil {
		return nil, translateError(err)
	}
	return &group, nil
}

func (r *coachGroupRepository) List(ctx context.Context) ([]models.CoachGroup, error) {
	var groups []models.CoachGroup
	err := r.db.WithContext(ctx).Order("name ASC").Find(&groups).Error
	return groups, err
}

func (r *coachGroupRepository) Create(ctx context.Context, group *models.CoachGroup) error {
	return translateError(r.db.WithContext(ctx).Create(group).Error)
}

func (r *coachGroupRepository) Update(ctx context.Context, group *models.CoachGroup) error {
	return translateError(r.db.WithContext(ctx).Save(group).Error)
}
