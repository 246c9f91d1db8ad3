package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sjperalta/coachpay-api/pkg/logger"
)

// ErrJobRunning is returned when a named job is started while a previous run is still in progress
var ErrJobRunning = errors.New("job already running")

// Job represents a background task
type Job func(ctx context.Context) error

// Worker manages background jobs and scheduled tasks
type Worker struct {
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	queue         chan Job
	asyncSem      chan struct{}
	maxConcurrent int
	stats         WorkerStats
	statsMu       sync.RWMutex
	runs          map[string]*JobRun
	running       map[string]bool
	runsMu        sync.Mutex
}

// WorkerStats holds statistics about the worker
type WorkerStats struct {
	ActiveJobs    int   `json:"active_jobs"`
	CompletedJobs int64 `json:"completed_jobs"`
	FailedJobs    int64 `json:"failed_jobs"`
	QueueLength   int   `json:"queue_length"`
	MaxConcurrent int   `json:"max_concurrent"`
}

// JobRun is the bookkeeping of a named job
type JobRun struct {
	Name          string        `json:"name"`
	Interval      time.Duration `json:"interval"`
	Running       bool          `json:"running"`
	Runs          int64         `json:"runs"`
	Failures      int64         `json:"failures"`
	LastStartedAt *time.Time    `json:"last_started_at,omitempty"`
	LastDuration  time.Duration `json:"last_duration"`
	LastError     string        `json:"last_error,omitempty"`
}

// NewWorker creates a worker with N concurrent processors
func NewWorker(numWorkers int) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	asyncLimit := numWorkers * 2
	if asyncLimit < 4 {
		asyncLimit = 4
	}

	w := &Worker{
		ctx:           ctx,
		cancel:        cancel,
		queue:         make(chan Job, 100),
		asyncSem:      make(chan struct{}, asyncLimit),
		maxConcurrent: asyncLimit,
		runs:          make(map[string]*JobRun),
		running:       make(map[string]bool),
	}

	for i := 0; i < numWorkers; i++ {
		w.wg.Add(1)
		go w.process(i)
	}

	return w
}

// Enqueue adds a job to be processed by the worker pool
func (w *Worker) Enqueue(job Job) {
	select {
	case w.queue <- job:
	default:
		logger.Warn("[Worker] Queue full, running job synchronously")
		if err := job(w.ctx); err != nil {
			logger.Error(fmt.Sprintf("[Worker] Job error: %v", err))
		}
	}
}

// EnqueueAsync runs a job in a new goroutine (fire-and-forget), bounded by semaphore
func (w *Worker) EnqueueAsync(job Job) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		w.asyncSem <- struct{}{}
		defer func() { <-w.asyncSem }()

		w.trackJobStart()
		defer w.trackJobEnd()

		defer func() {
			if r := recover(); r != nil {
				logger.Error(fmt.Sprintf("[Worker] Async job panic: %v", r))
				w.trackJobFailure()
			}
		}()

		if err := job(w.ctx); err != nil {
			logger.Error(fmt.Sprintf("[Worker] Async job error: %v", err))
			w.trackJobFailure()
		}
	}()
}

func (w *Worker) process(workerID int) {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case job, ok := <-w.queue:
			if !ok {
				return
			}
			w.trackJobStart()
			start := time.Now()
			if err := job(w.ctx); err != nil {
				logger.Error(fmt.Sprintf("[Worker %d] Job error: %v", workerID, err))
				w.trackJobFailure()
			} else {
				logger.Debug(fmt.Sprintf("[Worker %d] Job completed in %v", workerID, time.Since(start)))
			}
			w.trackJobEnd()
		}
	}
}

// ScheduleEvery runs a named job at fixed intervals. The first run happens after the interval.
func (w *Worker) ScheduleEvery(name string, interval time.Duration, job Job) {
	w.register(name, interval)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-w.ctx.Done():
				return
			case <-ticker.C:
				w.runScheduled(name, job)
			}
		}
	}()
}

// ScheduleEveryImmediate runs a named job once at startup, then at fixed intervals.
func (w *Worker) ScheduleEveryImmediate(name string, interval time.Duration, job Job) {
	w.register(name, interval)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.runScheduled(name, job)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-w.ctx.Done():
				return
			case <-ticker.C:
				w.runScheduled(name, job)
			}
		}
	}()
}

func (w *Worker) runScheduled(name string, job Job) {
	err := w.RunNamed(w.ctx, name, job)
	if errors.Is(err, ErrJobRunning) {
		logger.Warn("[Scheduler] Skipping tick, previous run still in progress", "job", name)
	}
}

// RunNamed runs job synchronously under name, refusing to overlap a run of the same name
// within this process. Panics are recovered and reported as errors.
func (w *Worker) RunNamed(ctx context.Context, name string, job Job) (err error) {
	run, ok := w.begin(name)
	if !ok {
		return ErrJobRunning
	}
	start := time.Now()

	w.trackJobStart()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panic: %v", name, r)
		}
		w.finish(run, time.Since(start), err)
		if err != nil {
			logger.Error("[Scheduler] Job failed", "job", name, "error", err)
			w.trackJobFailure()
		} else {
			logger.Info("[Scheduler] Job completed", "job", name, "duration", time.Since(start).String())
		}
		w.trackJobEnd()
	}()

	return job(ctx)
}

func (w *Worker) register(name string, interval time.Duration) {
	w.runsMu.Lock()
	defer w.runsMu.Unlock()
	if _, ok := w.runs[name]; !ok {
		w.runs[name] = &JobRun{Name: name}
	}
	w.runs[name].Interval = interval
}

func (w *Worker) begin(name string) (*JobRun, bool) {
	w.runsMu.Lock()
	defer w.runsMu.Unlock()
	if w.running[name] {
		return nil, false
	}
	run, ok := w.runs[name]
	if !ok {
		run = &JobRun{Name: name}
		w.runs[name] = run
	}
	now := time.Now()
	w.running[name] = true
	run.Running = true
	run.LastStartedAt = &now
	return run, true
}

func (w *Worker) finish(run *JobRun, d time.Duration, err error) {
	w.runsMu.Lock()
	defer w.runsMu.Unlock()
	w.running[run.Name] = false
	run.Running = false
	run.Runs++
	run.LastDuration = d
	run.LastError = ""
	if err != nil {
		run.Failures++
		run.LastError = err.Error()
	}
}

// JobRuns returns a snapshot of named job bookkeeping
func (w *Worker) JobRuns() []JobRun {
	w.runsMu.Lock()
	defer w.runsMu.Unlock()
	out := make([]JobRun, 0, len(w.runs))
	for _, r := range w.runs {
		out = append(out, *r)
	}
	return out
}

// Shutdown gracefully stops all workers
func (w *Worker) Shutdown() {
	w.cancel()
	close(w.queue)
	w.wg.Wait()
}

// Context returns the worker's context for checking cancellation
func (w *Worker) Context() context.Context {
	return w.ctx
}

// GetStats returns the current worker statistics
func (w *Worker) GetStats() WorkerStats {
	w.statsMu.RLock()
	defer w.statsMu.RUnlock()
	stats := w.stats
	stats.QueueLength = len(w.queue)
	stats.MaxConcurrent = w.maxConcurrent
	return stats
}

func (w *Worker) trackJobStart() {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.ActiveJobs++
}

// trackJobEnd counts every finished job; FailedJobs is the failing subset.
func (w *Worker) trackJobEnd() {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.ActiveJobs--
	w.stats.CompletedJobs++
}

func (w *Worker) trackJobFailure() {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.FailedJobs++
}
