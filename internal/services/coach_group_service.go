package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/coachpay-api/internal/config"
	"github.com/sjperalta/coachpay-api/internal/models"
	"github.com/sjperalta/coachpay-api/internal/repository"
	"github.com/sjperalta/coachpay-api/pkg/logger"
)

// CoachGroupInput is the writable part of a coach group
type CoachGroupInput struct {
	Name               string          `json:"name"`
	LeadCostPercent    decimal.Decimal `json:"lead_cost_percent"`
	CoachCostPercent   decimal.Decimal `json:"coach_cost_percent"`
	PlatformFeePercent decimal.Decimal `json:"platform_fee_percent"`
	IsInternal         bool            `json:"is_internal"`
	Description        *string         `json:"description"`
}

// CoachGroupService manages revenue split configuration per coach cohort
type CoachGroupService struct {
	repo         repository.CoachGroupRepository
	auditSvc     *AuditService
	defaultGroup string
}

func NewCoachGroupService(repo repository.CoachGroupRepository, auditSvc *AuditService, policy *config.Policy) *CoachGroupService {
	return &CoachGroupService{
		repo:         repo,
		auditSvc:     auditSvc,
		defaultGroup: policy.DefaultCoachGroup,
	}
}

func (s *CoachGroupService) List(ctx context.Context) ([]models.CoachGroup, error) {
	return s.repo.List(ctx)
}

// Create adds a group. Rejected attempts are audited as failures.
func (s *CoachGroupService) Create(ctx context.Context, actor Actor, input CoachGroupInput) (*models.CoachGroup, error) {
	group, err := s.create(ctx, input)
	if err != nil {
		s.auditSvc.LogFailure(ctx, actor, models.AuditActionCreate, "CoachGroup", 0, err, map[string]interface{}{"input": input})
		return nil, err
	}
	s.auditSvc.Log(ctx, actor, models.AuditActionCreate, "CoachGroup", group.ID, input)
	return group, nil
}

func (s *CoachGroupService) create(ctx context.Context, input CoachGroupInput) (*models.CoachGroup, error) {
	group := &models.CoachGroup{}
	applyCoachGroupInput(group, input)
	if err := validateCoachGroup(group); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, group); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, validationError("coach group %q already exists", group.Name)
		}
		return nil, err
	}
	return group, nil
}

// Update changes a group's percentages. Existing splits keep their snapshot.
func (s *CoachGroupService) Update(ctx context.Context, actor Actor, id uint, input CoachGroupInput) (*models.CoachGroup, error) {
	group, before, err := s.update(ctx, id, input)
	if err != nil {
		s.auditSvc.LogFailure(ctx, actor, models.AuditActionUpdate, "CoachGroup", id, err, map[string]interface{}{"input": input})
		return nil, err
	}
	s.auditSvc.Log(ctx, actor, models.AuditActionUpdate, "CoachGroup", group.ID, map[string]interface{}{
		"before": before,
		"after":  input,
	})
	return group, nil
}

func (s *CoachGroupService) update(ctx context.Context, id uint, input CoachGroupInput) (*models.CoachGroup, models.CoachGroup, error) {
	group, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, models.CoachGroup{}, err
	}
	before := *group

	applyCoachGroupInput(group, input)
	if err := validateCoachGroup(group); err != nil {
		return nil, before, err
	}
	if err := s.repo.Update(ctx, group); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, before, validationError("coach group %q already exists", group.Name)
		}
		return nil, before, err
	}
	return group, before, nil
}

// ResolveForPayee returns the payee's group, falling back to the configured default group.
func (s *CoachGroupService) ResolveForPayee(ctx context.Context, payee *models.Payee) (*models.CoachGroup, error) {
	if payee.CoachGroup != nil {
		return payee.CoachGroup, nil
	}
	if payee.CoachGroupID != nil {
		group, err := s.repo.FindByID(ctx, *payee.CoachGroupID)
		if err == nil {
			return group, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		logger.Warn("[CoachGroups] Payee references missing group, using default",
			"payee_id", payee.ID, "coach_group_id", *payee.CoachGroupID, "default", s.defaultGroup)
	}

	if s.defaultGroup == "" {
		return nil, configurationError("payee %d has no coach group and no default is configured", payee.ID)
	}
	group, err := s.repo.FindByName(ctx, s.defaultGroup)
	if errors.Is(err, ErrNotFound) {
		return nil, configurationError("default coach group %q does not exist", s.defaultGroup)
	}
	return group, err
}

// SeedDefaults creates configured groups that do not exist yet. Existing groups are never overwritten.
func (s *CoachGroupService) SeedDefaults(ctx context.Context, seeds []config.CoachGroupSeed) (int, error) {
	created := 0
	for _, seed := range seeds {
		_, err := s.repo.FindByName(ctx, seed.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return created, err
		}

		group := &models.CoachGroup{
			Name:               seed.Name,
			LeadCostPercent:    decimal.NewFromFloat(seed.LeadPercent),
			CoachCostPercent:   decimal.NewFromFloat(seed.CoachPercent),
			PlatformFeePercent: decimal.NewFromFloat(seed.PlatformPercent),
			IsInternal:         seed.Internal,
		}
		if err := validateCoachGroup(group); err != nil {
			return created, fmt.Errorf("seed %q: %w", seed.Name, err)
		}
		if err := s.repo.Create(ctx, group); err != nil && !errors.Is(err, ErrDuplicate) {
			return created, err
		}
		created++
	}
	if created > 0 {
		logger.Info("[CoachGroups] Seeded default groups", "created", created)
	}
	return created, nil
}

func applyCoachGroupInput(group *models.CoachGroup, input CoachGroupInput) {
	group.Name = strings.TrimSpace(input.Name)
	group.LeadCostPercent = input.LeadCostPercent
	group.CoachCostPercent = input.CoachCostPercent
	group.PlatformFeePercent = input.PlatformFeePercent
	group.IsInternal = input.IsInternal
	group.Description = input.Description
}

func validateCoachGroup(group *models.CoachGroup) error {
	if group.Name == "" {
		return validationError("name is required")
	}
	if !group.PercentagesValid() {
		return validationError("percentages must each be between 0 and 100 and sum to 100 (got %s + %s + %s)",
			group.LeadCostPercent, group.CoachCostPercent, group.PlatformFeePercent)
	}
	return nil
}
