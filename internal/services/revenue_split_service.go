package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/coachpay-api/internal/config"
	"github.com/sjperalta/coachpay-api/internal/models"
	"github.com/sjperalta/coachpay-api/internal/repository"
	"github.com/sjperalta/coachpay-api/pkg/logger"
)

// EnrollmentPaidEvent is emitted by payment verification once an enrollment is paid
type EnrollmentPaidEvent struct {
	EnrollmentID     uint            `json:"enrollment_id"`
	Amount           decimal.Decimal `json:"amount"`
	CoachPayeeID     uint            `json:"coach_payee_id"`
	LeadSource       string          `json:"lead_source"`
	ReferringPayeeID *uint           `json:"referring_payee_id"`
	ReferralCode     string          `json:"referral_code"`
}

// Validate checks the event before any side effect
func (e *EnrollmentPaidEvent) Validate() error {
	if e.EnrollmentID == 0 {
		return validationError("enrollment_id is required")
	}
	if !e.Amount.IsPositive() {
		return validationError("amount must be greater than zero")
	}
	if e.CoachPayeeID == 0 {
		return validationError("coach_payee_id is required")
	}
	switch e.LeadSource {
	case models.LeadSourcePlatform:
		if e.ReferringPayeeID != nil {
			return validationError("referring_payee_id must be empty when lead_source is %s", models.LeadSourcePlatform)
		}
	case models.LeadSourceReferringPayee:
		if e.ReferringPayeeID == nil || *e.ReferringPayeeID == 0 {
			return validationError("referring_payee_id is required when lead_source is %s", models.LeadSourceReferringPayee)
		}
	default:
		return validationError("lead_source must be %s or %s", models.LeadSourcePlatform, models.LeadSourceReferringPayee)
	}
	return nil
}

// SplitAmounts is the pure result of dividing an enrollment amount
type SplitAmounts struct {
	LeadCost    decimal.Decimal
	CoachCost   decimal.Decimal
	PlatformFee decimal.Decimal
}

// ComputeSplit divides amount by the group's percentages. Lead cost is zero when the
// platform sourced the lead and the platform fee absorbs every rounding remainder.
// The platform fee never goes negative: when rounding pushes lead+coach above amount,
// the excess comes off the coach cost.
func ComputeSplit(amount decimal.Decimal, group *models.CoachGroup, leadSource string) SplitAmounts {
	if group.IsInternal {
		return SplitAmounts{LeadCost: decimal.Zero, CoachCost: decimal.Zero, PlatformFee: amount}
	}
	lead := decimal.Zero
	if leadSource == models.LeadSourceReferringPayee {
		lead = decimal.Min(percentOf(amount, group.LeadCostPercent), amount)
	}
	coach := percentOf(amount, group.CoachCostPercent)
	if over := lead.Add(coach).Sub(amount); over.IsPositive() {
		coach = coach.Sub(over)
	}
	return SplitAmounts{
		LeadCost:    lead,
		CoachCost:   coach,
		PlatformFee: amount.Sub(lead).Sub(coach),
	}
}

// RevenueSplitService records how each paid enrollment is divided and schedules payouts
type RevenueSplitService struct {
	splitRepo      repository.RevenueSplitRepository
	payeeRepo      repository.PayeeRepository
	enrollmentRepo repository.EnrollmentRepository
	tx             repository.Transactor
	groupSvc       *CoachGroupService
	scheduler      *PayoutScheduler
	referralSvc    *ReferralService
	auditSvc       *AuditService
	tdsRate        decimal.Decimal
	tdsThreshold   decimal.Decimal
	policy         *config.Policy
	now            func() time.Time
}

func NewRevenueSplitService(
	repos *repository.Repositories,
	tx repository.Transactor,
	groupSvc *CoachGroupService,
	scheduler *PayoutScheduler,
	referralSvc *ReferralService,
	auditSvc *AuditService,
	policy *config.Policy,
) *RevenueSplitService {
	return &RevenueSplitService{
		splitRepo:      repos.RevenueSplit,
		payeeRepo:      repos.Payee,
		enrollmentRepo: repos.Enrollment,
		tx:             tx,
		groupSvc:       groupSvc,
		scheduler:      scheduler,
		referralSvc:    referralSvc,
		auditSvc:       auditSvc,
		tdsRate:        decimal.NewFromFloat(policy.TDSRatePercent),
		tdsThreshold:   decimal.NewFromFloat(policy.TDSAnnualThreshold),
		policy:         policy,
		now:            time.Now,
	}
}

// OnEnrollmentPaid computes and persists the split of one enrollment, advances the payees'
// fiscal-year earnings and schedules their installments, all in one transaction.
// A second call for the same enrollment returns the stored split with ErrAlreadySplit.
// Every call is audited under the system actor, whatever its outcome.
func (s *RevenueSplitService) OnEnrollmentPaid(ctx context.Context, ev EnrollmentPaidEvent) (*models.RevenueSplit, error) {
	split, err := s.record(ctx, ev)
	s.audit(ctx, SystemActor, models.AuditActionSplit, ev.EnrollmentID, split, err)
	return split, err
}

func (s *RevenueSplitService) audit(ctx context.Context, actor Actor, action string, enrollmentID uint, split *models.RevenueSplit, err error) {
	details := map[string]interface{}{}
	if split != nil {
		details["split_id"] = split.ID
		details["status"] = split.Status
	}
	if err != nil {
		s.auditSvc.LogFailure(ctx, actor, action, "Enrollment", enrollmentID, err, details)
		return
	}
	details["lead_cost"] = split.LeadCostAmount.String()
	details["coach_cost"] = split.CoachCostAmount.String()
	details["platform_fee"] = split.PlatformFeeAmount.String()
	details["tds"] = split.TDSAmount.String()
	s.auditSvc.Log(ctx, actor, action, "Enrollment", enrollmentID, details)
}

func (s *RevenueSplitService) record(ctx context.Context, ev EnrollmentPaidEvent) (*models.RevenueSplit, error) {
	if err := ev.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.splitRepo.FindByEnrollment(ctx, ev.EnrollmentID)
	if err == nil {
		return existing, ErrAlreadySplit
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, s.primaryFailure(ctx, ev, err)
	}

	coach, err := s.payeeRepo.FindByID(ctx, ev.CoachPayeeID)
	if errors.Is(err, ErrNotFound) {
		return nil, validationError("coach payee %d not found", ev.CoachPayeeID)
	}
	if err != nil {
		return nil, s.primaryFailure(ctx, ev, err)
	}
	if ev.ReferringPayeeID != nil {
		if _, err := s.payeeRepo.FindByID(ctx, *ev.ReferringPayeeID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, validationError("referring payee %d not found", *ev.ReferringPayeeID)
			}
			return nil, s.primaryFailure(ctx, ev, err)
		}
	}

	group, err := s.groupSvc.ResolveForPayee(ctx, coach)
	if err != nil {
		if !errors.Is(err, ErrConfiguration) {
			err = s.primaryFailure(ctx, ev, err)
		}
		return nil, err
	}

	now := s.now()
	fy := models.FiscalYearOf(now)
	amounts := ComputeSplit(ev.Amount, group, ev.LeadSource)

	split := &models.RevenueSplit{
		EnrollmentID:      ev.EnrollmentID,
		CoachPayeeID:      ev.CoachPayeeID,
		ReferringPayeeID:  ev.ReferringPayeeID,
		LeadSource:        ev.LeadSource,
		CoachGroupID:      group.ID,
		TotalAmount:       ev.Amount,
		LeadCostAmount:    amounts.LeadCost,
		CoachCostAmount:   amounts.CoachCost,
		PlatformFeeAmount: amounts.PlatformFee,
		TDSAmount:         decimal.Zero,
		CoachTDSAmount:    decimal.Zero,
		LeadTDSAmount:     decimal.Zero,
		FiscalYear:        fy,
		Status:            models.SplitStatusPending,
	}
	if err := split.SetSnapshot(models.SplitConfigSnapshot{
		CoachGroupID:       group.ID,
		CoachGroupName:     group.Name,
		LeadCostPercent:    group.LeadCostPercent,
		CoachCostPercent:   group.CoachCostPercent,
		PlatformFeePercent: group.PlatformFeePercent,
		IsInternal:         group.IsInternal,
		TDSRatePercent:     s.tdsRate,
		TDSAnnualThreshold: s.tdsThreshold,
		InstallmentCount:   s.policy.InstallmentCount,
		PayoutDayOfMonth:   s.policy.PayoutDayOfMonth,
	}); err != nil {
		return nil, err
	}

	err = s.tx.Transaction(ctx, func(tx *repository.Repositories) error {
		if group.IsInternal {
			split.Status = models.SplitStatusCompleted
			return s.createSplit(ctx, tx, split)
		}

		// coach first so a payee who is also the referrer is taxed on the lead bonus
		// against the counter already advanced by the coaching component
		coachTDS, err := s.applyEarnings(ctx, tx, ev.EnrollmentID, ev.CoachPayeeID, models.EarningsComponentCoachCost, amounts.CoachCost, fy)
		if err != nil {
			return err
		}
		leadTDS := decimal.Zero
		if ev.ReferringPayeeID != nil {
			leadTDS, err = s.applyEarnings(ctx, tx, ev.EnrollmentID, *ev.ReferringPayeeID, models.EarningsComponentLeadBonus, amounts.LeadCost, fy)
			if err != nil {
				return err
			}
		}

		split.CoachTDSAmount = coachTDS
		split.LeadTDSAmount = leadTDS
		split.TDSAmount = coachTDS.Add(leadTDS)
		split.TDSApplicable = split.TDSAmount.IsPositive()

		if err := s.createSplit(ctx, tx, split); err != nil {
			return err
		}
		installments, err := s.scheduler.Schedule(ctx, tx, split, s.tdsRate, now)
		if err != nil {
			return err
		}
		split.Installments = installments
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadySplit) {
			logger.Warn("[Splits] Enrollment already split", "enrollment_id", ev.EnrollmentID, "error", err)
			return nil, err
		}
		return nil, s.primaryFailure(ctx, ev, err)
	}

	logger.Info("[Splits] Revenue split recorded",
		"enrollment_id", ev.EnrollmentID,
		"split_id", split.ID,
		"group", group.Name,
		"lead", split.LeadCostAmount.String(),
		"coach", split.CoachCostAmount.String(),
		"platform", split.PlatformFeeAmount.String(),
		"tds", split.TDSAmount.String(),
		"installments", len(split.Installments),
	)

	// secondary ledger: the split is committed regardless of the referral outcome
	if ev.ReferralCode != "" && s.referralSvc != nil {
		if _, err := s.referralSvc.AwardReferralCredit(ctx, ev.EnrollmentID, ev.ReferralCode, ev.Amount); err != nil {
			logger.Error("[Splits] Referral credit failed", "enrollment_id", ev.EnrollmentID, "code", ev.ReferralCode, "error", err)
		}
	}

	return split, nil
}

func (s *RevenueSplitService) createSplit(ctx context.Context, tx *repository.Repositories, split *models.RevenueSplit) error {
	if err := tx.RevenueSplit.Create(ctx, split); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return fmt.Errorf("%w: %w", ErrAlreadySplit, err)
		}
		return fmt.Errorf("create revenue split: %w", err)
	}
	return nil
}

// applyEarnings advances payeeID's fiscal-year counter by amount and returns the TDS owed
// on it. TDS applies once the projected cumulative earnings exceed the annual threshold.
func (s *RevenueSplitService) applyEarnings(ctx context.Context, tx *repository.Repositories, enrollmentID, payeeID uint, component string, amount decimal.Decimal, fy string) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, nil
	}

	counter, err := tx.Earnings.GetForUpdate(ctx, payeeID, fy)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load earnings counter: %w", err)
	}

	projected := counter.CumulativeEarnings.Add(amount)
	tds := decimal.Zero
	if projected.GreaterThan(s.tdsThreshold) {
		tds = percentOf(amount, s.tdsRate)
	}

	app := &models.EarningsCounterApplication{
		EnrollmentID:     enrollmentID,
		PayeeID:          payeeID,
		Component:        component,
		FiscalYear:       fy,
		Amount:           amount,
		CumulativeBefore: counter.CumulativeEarnings,
		CumulativeAfter:  projected,
	}
	if err := tx.Earnings.Apply(ctx, counter, app); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return decimal.Zero, fmt.Errorf("%w: earnings already applied for payee %d: %w", ErrAlreadySplit, payeeID, err)
		}
		return decimal.Zero, fmt.Errorf("apply earnings: %w", err)
	}
	return tds, nil
}

// primaryFailure logs and reports a failed write on the enrollment path. The enrollment
// itself stays paid; the reconciliation sweep lists it as missing_ledger until re-run.
func (s *RevenueSplitService) primaryFailure(ctx context.Context, ev EnrollmentPaidEvent, err error) error {
	logger.Error("[Splits] Failed to record revenue split", "enrollment_id", ev.EnrollmentID, "error", err)
	captureError(ctx, err, map[string]string{
		"component":     "revenue_split",
		"enrollment_id": fmt.Sprintf("%d", ev.EnrollmentID),
	})
	return err
}

// Resplit rebuilds the paid event from the stored enrollment and runs the split again.
// Used by operators after a missing_ledger finding.
func (s *RevenueSplitService) Resplit(ctx context.Context, actor Actor, enrollmentID uint) (*models.RevenueSplit, error) {
	split, err := s.resplit(ctx, enrollmentID)
	s.audit(ctx, actor, models.AuditActionResplit, enrollmentID, split, err)
	return split, err
}

func (s *RevenueSplitService) resplit(ctx context.Context, enrollmentID uint) (*models.RevenueSplit, error) {
	enrollment, err := s.enrollmentRepo.FindByID(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if enrollment.Status != models.EnrollmentStatusActive && enrollment.Status != models.EnrollmentStatusCompleted {
		return nil, fmt.Errorf("%w: enrollment %d is %s", ErrInvalidState, enrollmentID, enrollment.Status)
	}

	ev := EnrollmentPaidEvent{
		EnrollmentID:     enrollment.ID,
		Amount:           enrollment.Amount,
		CoachPayeeID:     enrollment.CoachPayeeID,
		LeadSource:       enrollment.LeadSource,
		ReferringPayeeID: enrollment.ReferringPayeeID,
	}
	if enrollment.ReferralCode != nil {
		ev.ReferralCode = *enrollment.ReferralCode
	}

	return s.record(ctx, ev)
}

func (s *RevenueSplitService) FindByID(ctx context.Context, id uint) (*models.RevenueSplit, error) {
	return s.splitRepo.FindByID(ctx, id)
}

func (s *RevenueSplitService) List(ctx context.Context, query *repository.ListQuery) ([]models.RevenueSplit, int64, error) {
	return s.splitRepo.List(ctx, query)
}
