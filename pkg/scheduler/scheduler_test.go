package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterValidation(t *testing.T) {
	noop := func(ctx context.Context, now time.Time) error { return nil }

	tests := []struct {
		name string
		job  Job
		ok   bool
	}{
		{"valid job", Job{Name: "usage-reset", Interval: time.Second, Fn: noop}, true},
		{"missing name", Job{Interval: time.Second, Fn: noop}, false},
		{"zero interval", Job{Name: "j", Fn: noop}, false},
		{"negative interval", Job{Name: "j", Interval: -time.Second, Fn: noop}, false},
		{"missing function", Job{Name: "j", Interval: time.Second}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewScheduler().Register(tt.job)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestRegisterDuplicateName(t *testing.T) {
	noop := func(ctx context.Context, now time.Time) error { return nil }

	s := NewScheduler()
	require.NoError(t, s.Register(Job{Name: "usage-reset", Interval: time.Second, Fn: noop}))
	assert.Error(t, s.Register(Job{Name: "usage-reset", Interval: time.Minute, Fn: noop}))
}

func TestRegisterAfterStart(t *testing.T) {
	noop := func(ctx context.Context, now time.Time) error { return nil }

	s := NewScheduler()
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Error(t, s.Register(Job{Name: "late", Interval: time.Second, Fn: noop}))
	assert.Error(t, s.Start(context.Background()), "double start")
}

func TestJobTicks(t *testing.T) {
	var ticks atomic.Int64

	s := NewScheduler()
	require.NoError(t, s.Register(Job{
		Name:     "counter",
		Interval: 10 * time.Millisecond,
		Fn: func(ctx context.Context, now time.Time) error {
			assert.Equal(t, time.UTC, now.Location())
			ticks.Add(1)
			return nil
		},
	}))

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	count := ticks.Load()
	assert.Greater(t, count, int64(2))

	// No more ticks after Stop returns.
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, count, ticks.Load())
}

func TestRunOnStart(t *testing.T) {
	ran := make(chan struct{})

	s := NewScheduler()
	require.NoError(t, s.Register(Job{
		Name:       "immediate",
		Interval:   time.Hour,
		RunOnStart: true,
		Fn: func(ctx context.Context, now time.Time) error {
			close(ran)
			return nil
		},
	}))

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("RunOnStart job never fired")
	}
}

func TestFailingJobKeepsTicking(t *testing.T) {
	var ticks atomic.Int64

	s := NewScheduler()
	require.NoError(t, s.Register(Job{
		Name:     "flaky",
		Interval: 10 * time.Millisecond,
		Fn: func(ctx context.Context, now time.Time) error {
			ticks.Add(1)
			return errors.New("transient")
		},
	}))

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(80 * time.Millisecond)
	s.Stop()

	assert.Greater(t, ticks.Load(), int64(1), "errors must not kill the job loop")
}

func TestContextCancelStopsJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var ticks atomic.Int64

	s := NewScheduler()
	require.NoError(t, s.Register(Job{
		Name:     "cancellable",
		Interval: 10 * time.Millisecond,
		Fn: func(ctx context.Context, now time.Time) error {
			ticks.Add(1)
			return nil
		},
	}))

	require.NoError(t, s.Start(ctx))
	time.Sleep(40 * time.Millisecond)
	cancel()
	time.Sleep(40 * time.Millisecond)

	count := ticks.Load()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, count, ticks.Load())

	s.Stop()
}
