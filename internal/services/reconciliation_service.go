package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sjperalta/coachpay-api/internal/config"
	"github.com/sjperalta/coachpay-api/internal/models"
	"github.com/sjperalta/coachpay-api/internal/paymentrail"
	"github.com/sjperalta/coachpay-api/internal/repository"
	"github.com/sjperalta/coachpay-api/pkg/logger"
)

const maxLookbackDays = 90

// OrphanReport is the operator view of open findings
type OrphanReport struct {
	Days     int                            `json:"days"`
	Findings []models.ReconciliationFinding `json:"findings"`
	Count    int                            `json:"count"`
	LastRun  *models.ReconciliationRun      `json:"last_run"`
}

// ReconciliationService detects gateway captures and enrollments that never reached the ledger
type ReconciliationService struct {
	repo           repository.ReconciliationRepository
	paymentRepo    repository.PaymentRepository
	enrollmentRepo repository.EnrollmentRepository
	rail           paymentrail.Rail
	auditSvc       *AuditService
	mailer         Mailer
	async          AsyncRunner
	policy         *config.Policy
	now            func() time.Time
}

func NewReconciliationService(
	repos *repository.Repositories,
	rail paymentrail.Rail,
	auditSvc *AuditService,
	mailer Mailer,
	async AsyncRunner,
	policy *config.Policy,
) *ReconciliationService {
	return &ReconciliationService{
		repo:           repos.Reconciliation,
		paymentRepo:    repos.Payment,
		enrollmentRepo: repos.Enrollment,
		rail:           rail,
		auditSvc:       auditSvc,
		mailer:         mailer,
		async:          async,
		policy:         policy,
		now:            time.Now,
	}
}

// Reconcile compares the last lookbackDays of gateway captures with internal payment rows
// and flags paid enrollments without a revenue split. Internal rows are read over one extra
// day to tolerate clock skew between the gateway and the database. Findings are upserted by
// (kind, reference) so re-running only bumps detection counters.
func (s *ReconciliationService) Reconcile(ctx context.Context, lookbackDays int) (*models.ReconciliationRun, error) {
	if s.rail == nil {
		return nil, ErrRailUnavailable
	}
	if lookbackDays <= 0 {
		lookbackDays = s.policy.ReconcileLookbackDays
	}
	if lookbackDays > maxLookbackDays {
		return nil, validationError("lookback must be at most %d days", maxLookbackDays)
	}

	now := s.now()
	run := &models.ReconciliationRun{
		RunID:        uuid.New().String(),
		LookbackDays: lookbackDays,
		WindowStart:  now.AddDate(0, 0, -lookbackDays),
		WindowEnd:    now,
		Status:       models.ReconciliationRunCompleted,
		StartedAt:    now,
	}
	if err := s.repo.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create reconciliation run: %w", err)
	}

	err := s.sweep(ctx, run)
	if err != nil {
		msg := err.Error()
		run.Status = models.ReconciliationRunFailed
		run.Error = &msg
		logger.Error("[Reconcile] Run failed", "run_id", run.RunID, "error", err)
		captureError(ctx, err, map[string]string{"component": "reconciliation", "run_id": run.RunID})
	}
	finished := s.now()
	run.FinishedAt = &finished
	if uerr := s.repo.UpdateRun(context.WithoutCancel(ctx), run); uerr != nil {
		logger.Error("[Reconcile] Failed to persist run", "run_id", run.RunID, "error", uerr)
		err = errors.Join(err, uerr)
	}
	if err != nil {
		return run, err
	}

	logger.Info("[Reconcile] Run finished",
		"run_id", run.RunID,
		"lookback_days", lookbackDays,
		"captures", run.CapturesSeen,
		"matched", run.Matched,
		"new_findings", run.NewFindings,
		"repeat_findings", run.RepeatFindings,
		"missing_ledger", run.MissingLedger,
	)
	s.alertNewFindings(run)
	return run, nil
}

func (s *ReconciliationService) sweep(ctx context.Context, run *models.ReconciliationRun) error {
	captures, err := s.rail.ListCaptures(ctx, run.WindowStart, run.WindowEnd)
	if err != nil {
		return fmt.Errorf("list captures: %w", err)
	}
	known, err := s.paymentRepo.GatewayPaymentIDsSince(ctx, run.WindowStart.AddDate(0, 0, -1))
	if err != nil {
		return fmt.Errorf("load internal payments: %w", err)
	}

	for _, c := range captures {
		run.CapturesSeen++
		if _, ok := known[c.ID]; ok {
			run.Matched++
			continue
		}
		if err := s.record(ctx, run, orphanFinding(c, run)); err != nil {
			return err
		}
	}

	missing, err := s.enrollmentRepo.FindPaidWithoutSplit(ctx, run.WindowStart)
	if err != nil {
		return fmt.Errorf("load enrollments without split: %w", err)
	}
	for _, e := range missing {
		run.MissingLedger++
		if err := s.record(ctx, run, missingLedgerFinding(e, run)); err != nil {
			return err
		}
	}
	return nil
}

func (s *ReconciliationService) record(ctx context.Context, run *models.ReconciliationRun, finding *models.ReconciliationFinding) error {
	created, err := s.repo.UpsertFinding(ctx, finding)
	if err != nil {
		return fmt.Errorf("upsert finding %s %s: %w", finding.Kind, finding.Reference, err)
	}
	if created {
		run.NewFindings++
		logger.Warn("[Reconcile] New finding", "kind", finding.Kind, "reference", finding.Reference)
	} else {
		run.RepeatFindings++
	}
	return nil
}

func orphanFinding(c paymentrail.Capture, run *models.ReconciliationRun) *models.ReconciliationFinding {
	id := c.ID
	amount := c.Amount
	f := &models.ReconciliationFinding{
		Kind:             models.FindingKindOrphanCapture,
		Reference:        c.ID,
		GatewayPaymentID: &id,
		Amount:           &amount,
		Currency:         c.Currency,
		Email:            c.Email,
		Contact:          c.Contact,
		LastDetectedAt:   run.WindowEnd,
		LastRunID:        run.RunID,
	}
	if !c.CapturedAt.IsZero() {
		at := c.CapturedAt
		f.CapturedAt = &at
	}
	if details, err := json.Marshal(map[string]string{"order_id": c.OrderID, "status": c.Status}); err == nil {
		f.Details = details
	}
	return f
}

func missingLedgerFinding(e models.Enrollment, run *models.ReconciliationRun) *models.ReconciliationFinding {
	id := e.ID
	amount := e.Amount
	f := &models.ReconciliationFinding{
		Kind:           models.FindingKindMissingLedger,
		Reference:      models.MissingLedgerReference(e.ID),
		EnrollmentID:   &id,
		Amount:         &amount,
		Currency:       "INR",
		LastDetectedAt: run.WindowEnd,
		LastRunID:      run.RunID,
	}
	if details, err := json.Marshal(map[string]interface{}{
		"status":         e.Status,
		"coach_payee_id": e.CoachPayeeID,
		"lead_source":    e.LeadSource,
	}); err == nil {
		f.Details = details
	}
	return f
}

func (s *ReconciliationService) alertNewFindings(run *models.ReconciliationRun) {
	if run.NewFindings == 0 || s.mailer == nil || s.async == nil {
		return
	}
	subject := fmt.Sprintf("%d new reconciliation finding(s)", run.NewFindings)
	lines := []string{
		fmt.Sprintf("Run %s over the last %d days", run.RunID, run.LookbackDays),
		fmt.Sprintf("Captures seen: %d, matched: %d", run.CapturesSeen, run.Matched),
		fmt.Sprintf("Enrollments without a revenue split: %d", run.MissingLedger),
	}
	s.async.EnqueueAsync(func(ctx context.Context) error {
		return s.mailer.SendOpsAlert(ctx, subject, lines)
	})
}

// ListOrphans returns open findings detected within the last days together with the latest run
func (s *ReconciliationService) ListOrphans(ctx context.Context, days int) (*OrphanReport, error) {
	if days <= 0 {
		days = s.policy.ReconcileLookbackDays
	}
	if days > maxLookbackDays {
		return nil, validationError("days must be at most %d", maxLookbackDays)
	}

	findings, err := s.repo.ListOpenFindings(ctx, s.now().AddDate(0, 0, -days))
	if err != nil {
		return nil, err
	}
	report := &OrphanReport{Days: days, Findings: findings, Count: len(findings)}

	last, err := s.repo.LatestRun(ctx)
	switch {
	case err == nil:
		report.LastRun = last
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}
	return report, nil
}

// Resolve records an operator decision on an open finding. Nothing is remediated automatically.
func (s *ReconciliationService) Resolve(ctx context.Context, actor Actor, id uint, resolution, note string) (*models.ReconciliationFinding, error) {
	resolution = strings.TrimSpace(resolution)
	if !slices.Contains(models.ValidResolutions, resolution) {
		return nil, validationError("resolution must be one of %s", strings.Join(models.ValidResolutions, ", "))
	}

	finding, err := s.repo.FindFindingByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.repo.ResolveFinding(ctx, id, resolution, note, actor.UserID, s.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		err = fmt.Errorf("%w: finding %d is already %s", ErrInvalidState, id, models.FindingStatusResolved)
		s.auditSvc.LogFailure(ctx, actor, models.AuditActionResolve, "ReconciliationFinding", id, err, nil)
		return nil, err
	}

	s.auditSvc.Log(ctx, actor, models.AuditActionResolve, "ReconciliationFinding", id, map[string]interface{}{
		"kind":       finding.Kind,
		"reference":  finding.Reference,
		"resolution": resolution,
		"note":       note,
	})
	logger.Info("[Reconcile] Finding resolved", "finding_id", id, "resolution", resolution, "user_id", actor.UserID)
	return s.repo.FindFindingByID(ctx, id)
}
