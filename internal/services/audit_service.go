package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sjperalta/coachpay-api/internal/models"
	"github.com/sjperalta/coachpay-api/internal/repository"
	"github.com/sjperalta/coachpay-api/pkg/logger"
)

// Actor identifies who triggered an operation. The zero value is the system.
type Actor struct {
	UserID    uint
	Role      string
	IP        string
	UserAgent string
}

// SystemActor is used for batch jobs and internal triggers
var SystemActor = Actor{Role: "system"}

type AuditService struct {
	repo repository.AuditRepository
}

func NewAuditService(repo repository.AuditRepository) *AuditService {
	return &AuditService{repo: repo}
}

// Log records a successful action. Audit writes never fail the caller.
func (s *AuditService) Log(ctx context.Context, actor Actor, action, entity string, entityID uint, details interface{}) {
	s.write(ctx, actor, action, entity, entityID, models.AuditOutcomeSuccess, details)
}

// LogFailure records an attempted action that failed
func (s *AuditService) LogFailure(ctx context.Context, actor Actor, action, entity string, entityID uint, cause error, details map[string]interface{}) {
	if details == nil {
		details = map[string]interface{}{}
	}
	if cause != nil {
		details["error"] = cause.Error()
	}
	s.write(ctx, actor, action, entity, entityID, models.AuditOutcomeFailure, details)
}

func (s *AuditService) write(ctx context.Context, actor Actor, action, entity string, entityID uint, outcome string, details interface{}) {
	var text string
	switch d := details.(type) {
	case nil:
	case string:
		text = d
	default:
		raw, err := json.Marshal(d)
		if err != nil {
			text = fmt.Sprintf("%v", d)
		} else {
			text = string(raw)
		}
	}

	entry := &models.AuditLog{
		UserID:    actor.UserID,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Outcome:   outcome,
		Details:   text,
		IPAddress: actor.IP,
		UserAgent: actor.UserAgent,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		logger.Error("[Audit] Failed to write audit entry", "action", action, "entity", entity, "entity_id", entityID, "error", err)
	}
}

// List retrieves audit logs with filters
func (s *AuditService) List(ctx context.Context, query *repository.ListQuery) ([]models.AuditLog, int64, error) {
	return s.repo.List(ctx, query)
}
