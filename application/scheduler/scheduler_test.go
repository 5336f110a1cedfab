// application/scheduler/scheduler_test.go
package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyAtNextRunBeforeTime(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	next := DailyAt(12, 30).nextRun(now)

	assert.Equal(t, time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC), next)
}

func TestDailyAtNextRunAfterTime(t *testing.T) {
	now := time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC)

	next := DailyAt(12, 30).nextRun(now)

	// Время уже прошло - переносим на завтра
	assert.Equal(t, time.Date(2024, 3, 16, 12, 30, 0, 0, time.UTC), next)
}

func TestDailyAtNextRunExactlyAtTime(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC)

	next := DailyAt(12, 30).nextRun(now)

	assert.Equal(t, time.Date(2024, 3, 16, 12, 30, 0, 0, time.UTC), next)
}

func TestEveryNextRun(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	next := Every(15 * time.Minute).nextRun(now)

	assert.Equal(t, now.Add(15*time.Minute), next)
}

func TestRegisterSetsNextRunAndDefaultTimeout(t *testing.T) {
	s := New()
	job := &Job{
		Name:     "test",
		Schedule: Every(time.Hour),
		Handler:  func(ctx context.Context) error { return nil },
	}

	s.Register(job)

	status := job.Status()
	assert.False(t, status.NextRun.IsZero())
	assert.Equal(t, defaultJobTimeout, job.Timeout)
}

func TestTriggerRunsJob(t *testing.T) {
	s := New()
	done := make(chan struct{})

	s.Register(&Job{
		Name:     "manual",
		Schedule: Every(time.Hour),
		Handler: func(ctx context.Context) error {
			close(done)
			return nil
		},
	})

	require.NoError(t, s.Trigger("manual"))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not triggered")
	}
	s.Stop()
}

func TestTriggerUnknownJob(t *testing.T) {
	s := New()

	err := s.Trigger("missing")

	assert.Error(t, err)
}

func TestJobErrorRecordedNotPropagated(t *testing.T) {
	s := New()
	jobErr := errors.New("iteration failed")
	done := make(chan struct{})

	job := &Job{
		Name:     "flaky",
		Schedule: Every(time.Hour),
		Handler: func(ctx context.Context) error {
			close(done)
			return jobErr
		},
	}
	s.Register(job)

	require.NoError(t, s.Trigger("flaky"))
	<-done
	s.Stop()

	status := job.Status()
	assert.Equal(t, jobErr, status.LastErr)
	assert.Equal(t, 1, status.Runs)
	assert.False(t, status.Running)
}

func TestTickRunsDueJob(t *testing.T) {
	s := New()
	done := make(chan struct{})

	job := &Job{
		Name:     "due",
		Schedule: Every(time.Hour),
		Handler: func(ctx context.Context) error {
			close(done)
			return nil
		},
	}
	s.Register(job)

	// Сдвигаем время запуска в прошлое
	job.mu.Lock()
	job.nextRun = time.Now().UTC().Add(-time.Minute)
	job.mu.Unlock()

	s.tick()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("due job was not run by tick")
	}
	s.Stop()

	// Расписание сдвинуто вперед
	assert.True(t, job.Status().NextRun.After(time.Now().UTC()))
}

func TestTickSkipsFutureJob(t *testing.T) {
	s := New()
	ran := make(chan struct{}, 1)

	s.Register(&Job{
		Name:     "future",
		Schedule: Every(time.Hour),
		Handler: func(ctx context.Context) error {
			ran <- struct{}{}
			return nil
		},
	})

	s.tick()
	s.Stop()

	select {
	case <-ran:
		t.Fatal("future job should not have run")
	default:
	}
}
