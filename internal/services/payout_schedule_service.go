package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/coachpay-api/internal/models"
	"github.com/sjperalta/coachpay-api/internal/repository"
)

// PayoutScheduler turns a revenue split into dated payout installments
type PayoutScheduler struct {
	installmentCount int
	payoutDay        int
}

// NewPayoutScheduler creates a scheduler for n monthly installments paid on payoutDay
func NewPayoutScheduler(installmentCount, payoutDay int) *PayoutScheduler {
	return &PayoutScheduler{
		installmentCount: installmentCount,
		payoutDay:        payoutDay,
	}
}

// BuildInstallments computes the installment rows of a split without persisting them.
// Gross and TDS of each component are split with floor division and the remainder goes
// to the final installment, so the parts always sum to the component.
func (s *PayoutScheduler) BuildInstallments(split *models.RevenueSplit, tdsRate decimal.Decimal, calculatedAt time.Time) []models.PayoutInstallment {
	var out []models.PayoutInstallment

	add := func(payeeID uint, kind string, gross, tds decimal.Decimal) {
		if !gross.IsPositive() {
			return
		}
		rate := decimal.Zero
		if tds.IsPositive() {
			rate = tdsRate
		}
		grossParts := splitEvenly(gross, s.installmentCount)
		tdsParts := splitEvenly(tds, s.installmentCount)
		for i := range grossParts {
			out = append(out, models.PayoutInstallment{
				RevenueSplitID:    split.ID,
				PayeeID:           payeeID,
				InstallmentNumber: i + 1,
				InstallmentType:   kind,
				Attempt:           1,
				GrossAmount:       grossParts[i],
				TDSRatePercent:    rate,
				TDSAmount:         tdsParts[i],
				NetAmount:         grossParts[i].Sub(tdsParts[i]),
				ScheduledDate:     payoutDate(calculatedAt, i+1, s.payoutDay),
				Status:            models.InstallmentStatusScheduled,
			})
		}
	}

	add(split.CoachPayeeID, models.InstallmentTypeCoachCost, split.CoachCostAmount, split.CoachTDSAmount)
	if split.ReferringPayeeID != nil {
		add(*split.ReferringPayeeID, models.InstallmentTypeLeadBonus, split.LeadCostAmount, split.LeadTDSAmount)
	}
	return out
}

// Schedule persists the installments of split using the given (transaction-bound)
// repositories and moves the split from pending to scheduled.
func (s *PayoutScheduler) Schedule(ctx context.Context, tx *repository.Repositories, split *models.RevenueSplit, tdsRate decimal.Decimal, calculatedAt time.Time) ([]models.PayoutInstallment, error) {
	existing, err := tx.Installment.CountBySplit(ctx, split.ID)
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrAlreadyScheduled
	}

	installments := s.BuildInstallments(split, tdsRate, calculatedAt)
	if len(installments) == 0 {
		// nothing owed to any payee
		return nil, s.transition(ctx, tx, split, models.SplitStatusCompleted)
	}
	if err := tx.Installment.CreateBatch(ctx, installments); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, ErrAlreadyScheduled
		}
		return nil, fmt.Errorf("create installments: %w", err)
	}

	if err := s.transition(ctx, tx, split, models.SplitStatusScheduled); err != nil {
		return nil, err
	}
	return installments, nil
}

func (s *PayoutScheduler) transition(ctx context.Context, tx *repository.Repositories, split *models.RevenueSplit, to string) error {
	moved, err := tx.RevenueSplit.TransitionStatus(ctx, split.ID, models.SplitStatusPending, to)
	if err != nil {
		return err
	}
	if !moved {
		return fmt.Errorf("%w: split %d is not pending", ErrInvalidState, split.ID)
	}
	split.Status = to
	return nil
}
