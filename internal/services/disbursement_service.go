package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sjperalta/coachpay-api/internal/config"
	"github.com/sjperalta/coachpay-api/internal/jobs"
	"github.com/sjperalta/coachpay-api/internal/models"
	"github.com/sjperalta/coachpay-api/internal/paymentrail"
	"github.com/sjperalta/coachpay-api/internal/repository"
	"github.com/sjperalta/coachpay-api/internal/statemachine"
	"github.com/sjperalta/coachpay-api/pkg/logger"
)

// Per-payee outcomes of a payout run
const (
	PayeeOutcomePaid    = "paid"
	PayeeOutcomeSkipped = "skipped"
	PayeeOutcomeFailed  = "failed"
	PayeeOutcomeNoop    = "noop"
)

// Payout run triggers
const (
	TriggerScheduler = "scheduler"
	TriggerInternal  = "internal"
	TriggerManual    = "manual"
)

// AsyncRunner runs fire-and-forget work such as notifications
type AsyncRunner interface {
	EnqueueAsync(job jobs.Job)
}

// BankDataDecrypter recovers bank details stored encrypted at rest
type BankDataDecrypter interface {
	Decrypt(encoded string) (string, error)
}

// PayeeResult is the outcome of one payee in a payout run
type PayeeResult struct {
	PayeeID        uint            `json:"payee_id"`
	Outcome        string          `json:"outcome"`
	Reference      string          `json:"reference,omitempty"`
	SettlementID   string          `json:"settlement_id,omitempty"`
	InstallmentIDs []uint          `json:"installment_ids,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	TDSAmount      decimal.Decimal `json:"tds_amount"`
	Reason         string          `json:"reason,omitempty"`
	Missing        []string        `json:"missing,omitempty"`
}

// PayoutRunSummary is returned by every payout run and persisted as a PayoutRun
type PayoutRunSummary struct {
	RunID           string          `json:"run_id"`
	Trigger         string          `json:"trigger"`
	Status          string          `json:"status"`
	StartedAt       time.Time       `json:"started_at"`
	FinishedAt      time.Time       `json:"finished_at"`
	PayeesProcessed int             `json:"payees_processed"`
	Succeeded       int             `json:"succeeded"`
	Skipped         int             `json:"skipped"`
	Failed          int             `json:"failed"`
	TotalDisbursed  decimal.Decimal `json:"total_disbursed"`
	Results         []PayeeResult   `json:"results"`
}

func (s *PayoutRunSummary) add(r PayeeResult) {
	s.PayeesProcessed++
	switch r.Outcome {
	case PayeeOutcomePaid:
		s.Succeeded++
		s.TotalDisbursed = s.TotalDisbursed.Add(r.Amount)
	case PayeeOutcomeSkipped:
		s.Skipped++
	case PayeeOutcomeFailed:
		s.Failed++
	}
	s.Results = append(s.Results, r)
}

// DisbursementService pays due installments through the payment rail
type DisbursementService struct {
	installmentRepo repository.InstallmentRepository
	payeeRepo       repository.PayeeRepository
	splitRepo       repository.RevenueSplitRepository
	runRepo         repository.PayoutRunRepository
	tx              repository.Transactor
	rail            paymentrail.Rail
	cipher          BankDataDecrypter
	tdsSvc          *TDSService
	auditSvc        *AuditService
	mailer          Mailer
	async           AsyncRunner
	policy          *config.Policy
	payeeDelay      time.Duration
	now             func() time.Time
}

func NewDisbursementService(
	repos *repository.Repositories,
	tx repository.Transactor,
	rail paymentrail.Rail,
	cipher BankDataDecrypter,
	tdsSvc *TDSService,
	auditSvc *AuditService,
	mailer Mailer,
	async AsyncRunner,
	policy *config.Policy,
	payeeDelay time.Duration,
) *DisbursementService {
	return &DisbursementService{
		installmentRepo: repos.Installment,
		payeeRepo:       repos.Payee,
		splitRepo:       repos.RevenueSplit,
		runRepo:         repos.PayoutRun,
		tx:              tx,
		rail:            rail,
		cipher:          cipher,
		tdsSvc:          tdsSvc,
		auditSvc:        auditSvc,
		mailer:          mailer,
		async:           async,
		policy:          policy,
		payeeDelay:      payeeDelay,
		now:             time.Now,
	}
}

// ProcessDuePayouts disburses every unclaimed scheduled installment due today or earlier,
// one payout per payee. Payees are handled sequentially with a fixed delay between them;
// cancelling ctx stops the run before the next payee. The run summary is always persisted.
func (s *DisbursementService) ProcessDuePayouts(ctx context.Context, trigger string) (*PayoutRunSummary, error) {
	if s.rail == nil {
		return nil, ErrRailUnavailable
	}

	started := s.now()
	summary := &PayoutRunSummary{
		RunID:          uuid.New().String(),
		Trigger:        trigger,
		Status:         models.PayoutRunStatusRunning,
		StartedAt:      started,
		TotalDisbursed: decimal.Zero,
		Results:        []PayeeResult{},
	}
	run := &models.PayoutRun{
		RunID:          summary.RunID,
		Trigger:        trigger,
		Status:         summary.Status,
		TotalDisbursed: decimal.Zero,
		StartedAt:      started,
	}
	if err := s.runRepo.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create payout run: %w", err)
	}

	due, err := s.installmentRepo.FindDue(ctx, businessDate(started))
	if err != nil {
		return nil, s.finishRun(ctx, run, summary, fmt.Errorf("load due installments: %w", err))
	}

	groups, order := groupByPayee(due)
	logger.Info("[Payouts] Run started", "run_id", summary.RunID, "trigger", trigger, "installments", len(due), "payees", len(order))

	var runErr error
	for i, payeeID := range order {
		if i > 0 && s.payeeDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(s.payeeDelay):
			}
		}
		if ctx.Err() != nil {
			runErr = ctx.Err()
			logger.Warn("[Payouts] Run cancelled", "run_id", summary.RunID, "remaining_payees", len(order)-i)
			break
		}

		result, err := s.processPayee(ctx, payeeID, groups[payeeID])
		summary.add(result)
		if err != nil {
			runErr = err
			break
		}
	}

	err = s.finishRun(ctx, run, summary, runErr)
	s.alertFailures(summary)
	return summary, err
}

func groupByPayee(rows []models.PayoutInstallment) (map[uint][]models.PayoutInstallment, []uint) {
	groups := make(map[uint][]models.PayoutInstallment)
	var order []uint
	for _, row := range rows {
		if _, ok := groups[row.PayeeID]; !ok {
			order = append(order, row.PayeeID)
		}
		groups[row.PayeeID] = append(groups[row.PayeeID], row)
	}
	return groups, order
}

// processPayee disburses one payee's due installments. A returned error is a persistence
// failure that must stop the run; rail and configuration problems are part of the result.
func (s *DisbursementService) processPayee(ctx context.Context, payeeID uint, due []models.PayoutInstallment) (PayeeResult, error) {
	result := PayeeResult{PayeeID: payeeID, Amount: decimal.Zero, TDSAmount: decimal.Zero}

	payee, err := s.payeeRepo.FindByID(ctx, payeeID)
	if errors.Is(err, ErrNotFound) {
		result.Outcome = PayeeOutcomeSkipped
		result.Reason = "payee not found"
		logger.Warn("[Payouts] Payee not found, skipping", "payee_id", payeeID)
		return result, nil
	}
	if err != nil {
		result.Outcome = PayeeOutcomeFailed
		result.Reason = err.Error()
		return result, fmt.Errorf("load payee %d: %w", payeeID, err)
	}

	if missing := payee.MissingPayoutDetails(); len(missing) > 0 {
		result.Outcome = PayeeOutcomeSkipped
		result.Reason = ErrPayeeNotConfigured.Error()
		result.Missing = missing
		logger.Warn("[Payouts] Payee not configured, skipping", "payee_id", payeeID, "missing", missing)
		return result, nil
	}

	ids := make([]uint, 0, len(due))
	for _, row := range due {
		ids = append(ids, row.ID)
	}
	now := s.now()
	ref := fmt.Sprintf("po_%d_%d", payeeID, now.UnixNano())
	result.Reference = ref

	claimed, err := s.installmentRepo.Claim(ctx, ids, ref, now)
	if err != nil {
		result.Outcome = PayeeOutcomeFailed
		result.Reason = err.Error()
		return result, fmt.Errorf("claim installments of payee %d: %w", payeeID, err)
	}
	if len(claimed) == 0 {
		result.Outcome = PayeeOutcomeNoop
		result.Reason = "installments claimed by another run"
		logger.Info("[Payouts] Nothing claimed, another run owns the installments", "payee_id", payeeID)
		return result, nil
	}

	net := decimal.Zero
	for _, row := range claimed {
		result.InstallmentIDs = append(result.InstallmentIDs, row.ID)
		net = net.Add(row.NetAmount)
		result.TDSAmount = result.TDSAmount.Add(row.TDSAmount)
	}
	result.Amount = net

	// claimed rows must reach paid or failed even if the run is cancelled meanwhile
	writeCtx := context.WithoutCancel(ctx)

	var settlementID string
	if net.IsPositive() {
		payout, err := s.submitPayout(ctx, payee, ref, net)
		if err != nil {
			return s.failClaimed(writeCtx, result, claimed, err)
		}
		settlementID = payout.ID
	} else {
		// TDS consumed the whole amount; nothing to transfer
		settlementID = "no_transfer"
	}
	result.SettlementID = settlementID

	paidAt := s.now()
	if err := s.markClaimedPaid(writeCtx, ref, settlementID, paidAt, claimed); err != nil {
		// the rail moved money; rows stay claimed so no later run can pay them again
		result.Outcome = PayeeOutcomeFailed
		result.Reason = err.Error()
		logger.Error("[Payouts] Payout sent but not recorded", "payee_id", payeeID, "reference", ref, "settlement_id", settlementID, "error", err)
		captureError(ctx, err, map[string]string{"component": "payouts", "reference": ref, "settlement_id": settlementID})
		return result, err
	}
	result.Outcome = PayeeOutcomePaid

	s.afterPaid(writeCtx, payee, claimed, PayoutConfirmation{
		Reference:    ref,
		SettlementID: settlementID,
		Amount:       net,
		TDSAmount:    result.TDSAmount,
		Installments: len(claimed),
		PaidAt:       paidAt,
	})

	logger.Info("[Payouts] Payee paid",
		"payee_id", payeeID,
		"reference", ref,
		"settlement_id", settlementID,
		"installments", len(claimed),
		"amount", net.String(),
		"tds", result.TDSAmount.String(),
	)
	return result, nil
}

func (s *DisbursementService) submitPayout(ctx context.Context, payee *models.Payee, ref string, amount decimal.Decimal) (*paymentrail.PayoutResult, error) {
	fundAccountID, err := s.ensureFundAccount(ctx, payee)
	if err != nil {
		return nil, err
	}
	return s.rail.CreatePayout(ctx, paymentrail.PayoutRequest{
		FundAccountID:  fundAccountID,
		Amount:         amount,
		Mode:           s.policy.PayoutMode,
		Purpose:        s.policy.PayoutPurpose,
		Reference:      ref,
		IdempotencyKey: ref,
		Narration:      "CoachPay payout",
	})
}

// ensureFundAccount registers the payee's contact and bank account with the rail once,
// storing the returned ids on the payee.
func (s *DisbursementService) ensureFundAccount(ctx context.Context, payee *models.Payee) (string, error) {
	if payee.RailFundAccountID != nil && *payee.RailFundAccountID != "" {
		return *payee.RailFundAccountID, nil
	}

	if payee.RailContactID == nil || *payee.RailContactID == "" {
		contactID, err := s.rail.CreateContact(ctx, paymentrail.ContactRequest{
			Name:        payee.Name,
			Email:       payee.Email,
			Phone:       payee.Phone,
			ReferenceID: fmt.Sprintf("payee_%d", payee.ID),
		})
		if err != nil {
			return "", fmt.Errorf("create contact: %w", err)
		}
		if err := s.payeeRepo.SetRailContact(ctx, payee.ID, contactID); err != nil {
			return "", fmt.Errorf("store contact id: %w", err)
		}
		payee.RailContactID = &contactID
	}

	accountNumber, err := s.cipher.Decrypt(payee.BankAccountNumberEnc)
	if err != nil {
		return "", fmt.Errorf("decrypt bank account: %w", err)
	}
	accountName := payee.BankAccountName
	if accountName == "" {
		accountName = payee.Name
	}
	fundAccountID, err := s.rail.CreateFundAccount(ctx, paymentrail.FundAccountRequest{
		ContactID:     *payee.RailContactID,
		AccountName:   accountName,
		AccountNumber: accountNumber,
		IFSC:          payee.BankIFSC,
	})
	if err != nil {
		return "", fmt.Errorf("create fund account: %w", err)
	}
	if err := s.payeeRepo.SetRailFundAccount(ctx, payee.ID, fundAccountID); err != nil {
		return "", fmt.Errorf("store fund account id: %w", err)
	}
	payee.RailFundAccountID = &fundAccountID
	return fundAccountID, nil
}

func (s *DisbursementService) markClaimedPaid(ctx context.Context, ref, settlementID string, at time.Time, claimed []models.PayoutInstallment) error {
	for i := range claimed {
		if err := statemachine.NewInstallmentFSM(&claimed[i]).Pay(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidState, err)
		}
	}
	n, err := s.installmentRepo.MarkPaid(ctx, ref, settlementID, at)
	if err != nil {
		return fmt.Errorf("mark installments paid: %w", err)
	}
	if int(n) != len(claimed) {
		logger.Warn("[Payouts] Paid row count mismatch", "reference", ref, "claimed", len(claimed), "updated", n)
	}
	for i := range claimed {
		claimed[i].SettlementID = &settlementID
		claimed[i].PaidAt = &at
	}
	return nil
}

// failClaimed records a rail failure on every claimed installment. The rows leave the due
// set and only an operator retry schedules them again.
func (s *DisbursementService) failClaimed(ctx context.Context, result PayeeResult, claimed []models.PayoutInstallment, cause error) (PayeeResult, error) {
	result.Outcome = PayeeOutcomeFailed
	result.Reason = cause.Error()

	logger.Error("[Payouts] Payout failed", "payee_id", result.PayeeID, "reference", result.Reference, "error", cause)
	captureError(ctx, cause, map[string]string{"component": "payouts", "reference": result.Reference})

	for i := range claimed {
		if err := statemachine.NewInstallmentFSM(&claimed[i]).Fail(ctx); err != nil {
			return result, fmt.Errorf("%w: %v", ErrInvalidState, err)
		}
	}
	n, err := s.installmentRepo.MarkFailed(ctx, result.Reference, cause.Error(), s.now())
	if err != nil {
		return result, fmt.Errorf("mark installments failed: %w", err)
	}
	if int(n) != len(claimed) {
		logger.Warn("[Payouts] Failed row count mismatch", "reference", result.Reference, "claimed", len(claimed), "updated", n)
	}
	return result, nil
}

// afterPaid performs the secondary writes of a successful payout. Failures are logged only.
func (s *DisbursementService) afterPaid(ctx context.Context, payee *models.Payee, paid []models.PayoutInstallment, conf PayoutConfirmation) {
	splits := map[uint]struct{}{}
	for i := range paid {
		splits[paid[i].RevenueSplitID] = struct{}{}
		if s.tdsSvc == nil {
			continue
		}
		if err := s.tdsSvc.RecordDeduction(ctx, &paid[i], conf.SettlementID, conf.PaidAt); err != nil {
			logger.Error("[Payouts] Failed to record TDS entry", "installment_id", paid[i].ID, "error", err)
			captureError(ctx, err, map[string]string{"component": "tds_ledger"})
		}
	}

	for splitID := range splits {
		done, err := s.installmentRepo.AllPaid(ctx, splitID)
		if err != nil {
			logger.Error("[Payouts] Failed to check split completion", "split_id", splitID, "error", err)
			continue
		}
		if !done {
			continue
		}
		if _, err := s.splitRepo.TransitionStatus(ctx, splitID, models.SplitStatusScheduled, models.SplitStatusCompleted); err != nil {
			logger.Error("[Payouts] Failed to complete split", "split_id", splitID, "error", err)
		}
	}

	if s.mailer != nil && s.async != nil {
		p := *payee
		s.async.EnqueueAsync(func(ctx context.Context) error {
			return s.mailer.SendPayoutConfirmation(ctx, &p, conf)
		})
	}
}

func (s *DisbursementService) finishRun(ctx context.Context, run *models.PayoutRun, summary *PayoutRunSummary, runErr error) error {
	summary.FinishedAt = s.now()
	summary.Status = models.PayoutRunStatusCompleted
	if runErr != nil {
		summary.Status = models.PayoutRunStatusAborted
	}

	results, err := json.Marshal(summary.Results)
	if err != nil {
		return errors.Join(runErr, err)
	}
	run.Status = summary.Status
	run.PayeesProcessed = summary.PayeesProcessed
	run.Succeeded = summary.Succeeded
	run.Skipped = summary.Skipped
	run.Failed = summary.Failed
	run.TotalDisbursed = summary.TotalDisbursed
	run.Results = results
	run.FinishedAt = &summary.FinishedAt

	// the summary must survive a cancelled run context
	saveCtx := context.WithoutCancel(ctx)
	if err := s.runRepo.Update(saveCtx, run); err != nil {
		logger.Error("[Payouts] Failed to persist run summary", "run_id", run.RunID, "error", err)
		return errors.Join(runErr, err)
	}

	logger.Info("[Payouts] Run finished",
		"run_id", summary.RunID,
		"status", summary.Status,
		"payees", summary.PayeesProcessed,
		"succeeded", summary.Succeeded,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"total", summary.TotalDisbursed.String(),
	)
	return runErr
}

func (s *DisbursementService) alertFailures(summary *PayoutRunSummary) {
	if summary.Failed == 0 || s.mailer == nil || s.async == nil {
		return
	}
	var lines []string
	for _, r := range summary.Results {
		if r.Outcome == PayeeOutcomeFailed {
			lines = append(lines, fmt.Sprintf("payee %d, reference %s: %s", r.PayeeID, r.Reference, r.Reason))
		}
	}
	subject := fmt.Sprintf("%d payout(s) failed in run %s", summary.Failed, summary.RunID)
	s.async.EnqueueAsync(func(ctx context.Context) error {
		return s.mailer.SendOpsAlert(ctx, subject, lines)
	})
}

// RetryInstallment schedules a fresh attempt of a failed installment for today. The failed
// row keeps its status and points at the new attempt.
func (s *DisbursementService) RetryInstallment(ctx context.Context, actor Actor, id uint) (*models.PayoutInstallment, error) {
	var fresh *models.PayoutInstallment
	err := s.tx.Transaction(ctx, func(tx *repository.Repositories) error {
		row, err := tx.Installment.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		next, err := statemachine.NewInstallmentFSM(row).Retry(ctx)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidState, err)
		}

		fresh = &models.PayoutInstallment{
			RevenueSplitID:    row.RevenueSplitID,
			PayeeID:           row.PayeeID,
			InstallmentNumber: row.InstallmentNumber,
			InstallmentType:   row.InstallmentType,
			Attempt:           row.Attempt + 1,
			GrossAmount:       row.GrossAmount,
			TDSRatePercent:    row.TDSRatePercent,
			TDSAmount:         row.TDSAmount,
			NetAmount:         row.NetAmount,
			ScheduledDate:     businessDate(s.now()),
			Status:            next,
			RetryOfID:         &row.ID,
		}
		if err := tx.Installment.Create(ctx, fresh); err != nil {
			if errors.Is(err, ErrDuplicate) {
				return fmt.Errorf("%w: installment %d already retried", ErrInvalidState, id)
			}
			return err
		}
		ok, err := tx.Installment.Supersede(ctx, row.ID, fresh.ID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: installment %d already retried", ErrInvalidState, id)
		}
		return nil
	})
	if err != nil {
		s.auditSvc.LogFailure(ctx, actor, models.AuditActionRetry, "PayoutInstallment", id, err, nil)
		return nil, err
	}

	s.auditSvc.Log(ctx, actor, models.AuditActionRetry, "PayoutInstallment", id, map[string]interface{}{
		"new_installment_id": fresh.ID,
		"attempt":            fresh.Attempt,
		"scheduled_date":     fresh.ScheduledDate.Format("2006-01-02"),
	})
	logger.Info("[Payouts] Installment retry scheduled", "installment_id", id, "new_installment_id", fresh.ID, "attempt", fresh.Attempt, "user_id", actor.UserID)
	return fresh, nil
}

func (s *DisbursementService) ListInstallments(ctx context.Context, query *repository.ListQuery) ([]models.PayoutInstallment, int64, error) {
	return s.installmentRepo.List(ctx, query)
}

func (s *DisbursementService) ListRuns(ctx context.Context, limit int) ([]models.PayoutRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.runRepo.ListRecent(ctx, limit)
}
