package watch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleDefinition(t *testing.T) {
	tests := []struct {
		name    string
		sched   Schedule
		wantErr bool
	}{
		{name: "interval", sched: Schedule{Every: time.Minute}},
		{name: "jitter", sched: Schedule{Every: time.Minute, Jitter: time.Second}},
		{name: "cron", sched: Schedule{Cron: "*/5 * * * *"}},
		{name: "both", sched: Schedule{Every: time.Minute, Cron: "* * * * *"}, wantErr: true},
		{name: "none", sched: Schedule{}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.sched.definition()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRunRepeatsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Schedule{Every: 50 * time.Millisecond}, time.Second, func(ctx context.Context) error {
			if calls.Add(1) == 1 {
				return errors.New("first run fails")
			}
			return nil
		})
	}()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunRejectsBadCron(t *testing.T) {
	err := Run(context.Background(), Schedule{Cron: "not a cron"}, 0, func(ctx context.Context) error { return nil })
	assert.Error(t, err)
}
