package services

import (
	"context"
	"sort"
	"time"

	"github.com/sjperalta/coachpay-api/internal/jobs"
	"github.com/sjperalta/coachpay-api/internal/models"
)

// Named batch jobs
const (
	JobPayouts        = "payouts"
	JobReconciliation = "reconciliation"
)

type JobService struct {
	worker          *jobs.Worker
	disbursementSvc *DisbursementService
	reconcileSvc    *ReconciliationService
}

func NewJobService(worker *jobs.Worker, disbursementSvc *DisbursementService, reconcileSvc *ReconciliationService) *JobService {
	return &JobService{
		worker:          worker,
		disbursementSvc: disbursementSvc,
		reconcileSvc:    reconcileSvc,
	}
}

func (s *JobService) GetStatus() map[string]interface{} {
	stats := s.worker.GetStats()
	runs := s.worker.JobRuns()
	sort.Slice(runs, func(i, j int) bool { return runs[i].Name < runs[j].Name })
	return map[string]interface{}{
		"active_jobs":    stats.ActiveJobs,
		"completed_jobs": stats.CompletedJobs,
		"failed_jobs":    stats.FailedJobs,
		"queue_length":   stats.QueueLength,
		"max_concurrent": stats.MaxConcurrent,
		"jobs":           runs,
	}
}

// RunPayouts runs the disbursement batch now. It refuses to start while another payout run
// of this process is in progress; runs in other processes are kept apart by the claim.
func (s *JobService) RunPayouts(ctx context.Context, trigger string) (*PayoutRunSummary, error) {
	var summary *PayoutRunSummary
	err := s.worker.RunNamed(ctx, JobPayouts, func(ctx context.Context) error {
		var err error
		summary, err = s.disbursementSvc.ProcessDuePayouts(ctx, trigger)
		return err
	})
	return summary, err
}

// RunReconciliation runs the capture sweep now over lookbackDays (policy default when zero)
func (s *JobService) RunReconciliation(ctx context.Context, lookbackDays int) (*models.ReconciliationRun, error) {
	var run *models.ReconciliationRun
	err := s.worker.RunNamed(ctx, JobReconciliation, func(ctx context.Context) error {
		var err error
		run, err = s.reconcileSvc.Reconcile(ctx, lookbackDays)
		return err
	})
	return run, err
}

// StartSchedule registers both batch jobs on the worker's interval scheduler
func (s *JobService) StartSchedule(payoutEvery, reconcileEvery time.Duration) {
	s.worker.ScheduleEvery(JobPayouts, payoutEvery, func(ctx context.Context) error {
		_, err := s.disbursementSvc.ProcessDuePayouts(ctx, TriggerScheduler)
		return err
	})
	s.worker.ScheduleEveryImmediate(JobReconciliation, reconcileEvery, func(ctx context.Context) error {
		_, err := s.reconcileSvc.Reconcile(ctx, 0)
		return err
	})
}
