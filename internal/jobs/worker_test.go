package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunNamedRejectsOverlap(t *testing.T) {
	w := NewWorker(1)
	defer w.Shutdown()

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- w.RunNamed(context.Background(), "payouts", func(ctx context.Context) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	err := w.RunNamed(context.Background(), "payouts", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrJobRunning)

	// other names are independent
	require.NoError(t, w.RunNamed(context.Background(), "reconciliation", func(ctx context.Context) error { return nil }))

	close(release)
	require.NoError(t, <-done)
}

func TestRunNamedRecordsFailuresAndPanics(t *testing.T) {
	w := NewWorker(1)
	defer w.Shutdown()

	err := w.RunNamed(context.Background(), "job", func(ctx context.Context) error { return errors.New("boom") })
	assert.EqualError(t, err, "boom")

	err = w.RunNamed(context.Background(), "job", func(ctx context.Context) error { panic("bad") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")

	runs := w.JobRuns()
	require.Len(t, runs, 1)
	assert.Equal(t, int64(2), runs[0].Runs)
	assert.Equal(t, int64(2), runs[0].Failures)
	assert.False(t, runs[0].Running)

	stats := w.GetStats()
	assert.Equal(t, int64(2), stats.FailedJobs)
	assert.Equal(t, 0, stats.ActiveJobs)
}
