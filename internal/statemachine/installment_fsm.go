package statemachine

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
	"github.com/sjperalta/coachpay-api/internal/models"
)

// Installment events
const (
	EventPay   = "pay"
	EventFail  = "fail"
	EventRetry = "retry"
)

// InstallmentFSM wraps a payout installment with its state machine.
// paid is terminal; failed only leaves through an operator retry.
type InstallmentFSM struct {
	installment *models.PayoutInstallment
	fsm         *fsm.FSM
}

// NewInstallmentFSM creates a new installment state machine
func NewInstallmentFSM(installment *models.PayoutInstallment) *InstallmentFSM {
	ifsm := &InstallmentFSM{
		installment: installment,
	}

	ifsm.fsm = fsm.NewFSM(
		installment.Status,
		fsm.Events{
			{Name: EventPay, Src: []string{models.InstallmentStatusScheduled}, Dst: models.InstallmentStatusPaid},
			{Name: EventFail, Src: []string{models.InstallmentStatusScheduled}, Dst: models.InstallmentStatusFailed},
			{Name: EventRetry, Src: []string{models.InstallmentStatusFailed}, Dst: models.InstallmentStatusScheduled},
		},
		fsm.Callbacks{},
	)

	return ifsm
}

// Pay transitions a claimed installment to paid
func (i *InstallmentFSM) Pay(ctx context.Context) error {
	if !i.installment.MayPay() {
		return fmt.Errorf("installment %d cannot be paid in current state: %s", i.installment.ID, i.installment.Status)
	}
	if err := i.fsm.Event(ctx, EventPay); err != nil {
		return fmt.Errorf("failed to pay installment: %w", err)
	}
	i.installment.Status = i.fsm.Current()
	return nil
}

// Fail transitions a claimed installment to failed
func (i *InstallmentFSM) Fail(ctx context.Context) error {
	if !i.installment.MayFail() {
		return fmt.Errorf("installment %d cannot fail in current state: %s", i.installment.ID, i.installment.Status)
	}
	if err := i.fsm.Event(ctx, EventFail); err != nil {
		return fmt.Errorf("failed to fail installment: %w", err)
	}
	i.installment.Status = i.fsm.Current()
	return nil
}

// Retry validates that a failed installment may be rescheduled. The wrapped
// row itself keeps its failed status; callers persist a fresh attempt with the returned state.
func (i *InstallmentFSM) Retry(ctx context.Context) (string, error) {
	if !i.installment.MayRetry() {
		return "", fmt.Errorf("installment %d cannot be retried in current state: %s", i.installment.ID, i.installment.Status)
	}
	if err := i.fsm.Event(ctx, EventRetry); err != nil {
		return "", fmt.Errorf("failed to retry installment: %w", err)
	}
	return i.fsm.Current(), nil
}

// Current returns the current state
func (i *InstallmentFSM) Current() string {
	return i.fsm.Current()
}

// Can checks if a transition is possible
func (i *InstallmentFSM) Can(event string) bool {
	return i.fsm.Can(event)
}
