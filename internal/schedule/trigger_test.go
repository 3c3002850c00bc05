package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/perch/internal/log"
)

type mockRunnable struct {
	runCount atomic.Int32
	runErr   error
}

func (m *mockRunnable) Run() error {
	m.runCount.Add(1)
	return m.runErr
}

func TestNewTrigger(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		wantErr bool
	}{
		{name: "daily at 2am", spec: "0 2 * * *"},
		{name: "every minute", spec: "* * * * *"},
		{name: "every 30 seconds", spec: "@every 30s"},
		{name: "hourly descriptor", spec: "@hourly"},
		{name: "surrounding whitespace", spec: "  @every 1m "},
		{name: "empty", spec: "", wantErr: true},
		{name: "wrong format", spec: "not a cron spec", wantErr: true},
		{name: "too few fields", spec: "0 2 *", wantErr: true},
		{name: "invalid value", spec: "60 2 * * *", wantErr: true},
		{name: "bad duration", spec: "@every soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger, err := NewTrigger(tt.spec, &mockRunnable{}, log.NullLogger())
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidSpec)
				assert.Nil(t, trigger)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, trigger)
		})
	}
}

func TestNextRun(t *testing.T) {
	trigger, err := NewTrigger("0 2 * * *", &mockRunnable{}, log.NullLogger())
	require.NoError(t, err)

	next := trigger.NextRun()
	assert.True(t, next.After(time.Now()), "next run should be in the future")
	assert.Equal(t, 2, next.Hour())
	assert.Equal(t, 0, next.Minute())
}

func TestTriggerRunsOnSchedule(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		runnable := &mockRunnable{runErr: errors.New("offline")}
		trigger, err := NewTrigger("@every 30s", runnable, log.NullLogger())
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		trigger.Start(ctx)

		time.Sleep(29 * time.Second)
		synctest.Wait()
		assert.Equal(t, int32(0), runnable.runCount.Load())

		// Errors do not stop the loop
		time.Sleep(66 * time.Second)
		synctest.Wait()
		assert.Equal(t, int32(3), runnable.runCount.Load())

		cancel()
		synctest.Wait()
	})
}

func TestCancellationStopsLoop(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var runs atomic.Int32
		trigger, err := NewTrigger("* * * * *", RunnableFunc(func() error {
			runs.Add(1)
			return nil
		}), log.NullLogger())
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		trigger.Start(ctx)
		synctest.Wait()
		cancel()
		synctest.Wait()

		time.Sleep(5 * time.Minute)
		assert.Equal(t, int32(0), runs.Load())
	})
}
