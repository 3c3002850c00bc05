package activity

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	tr := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(tr.Stop)
	return tr
}

// advance sleeps d of fake time and waits for timer callbacks to settle.
func advance(d time.Duration) {
	time.Sleep(d)
	synctest.Wait()
}

func TestNew_StartsIdle(t *testing.T) {
	tr := newTestTracker(t)
	assert.Equal(t, Idle, tr.Status())
	assert.False(t, tr.pendingRevert())
}

func TestNew_NilLoggerUsesDefault(t *testing.T) {
	tr := New(nil)
	require.NotNil(t, tr.logger)
}

func TestTracker_MostRecentCallWins(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tr := newTestTracker(t)

		marks := map[Status]func(){
			Idle:    tr.MarkIdle,
			Syncing: tr.MarkSyncing,
			Success: tr.MarkSuccess,
			Error:   tr.MarkError,
		}
		sequence := []Status{Syncing, Error, Success, Syncing, Idle, Error, Error, Success, Idle, Syncing}
		for _, want := range sequence {
			marks[want]()
			assert.Equal(t, want, tr.Status())
			advance(100 * time.Millisecond)
			assert.Equal(t, want, tr.Status(), "no automatic transition may override %s within 100ms", want)
		}
	})
}

func TestTracker_MarkSyncingNeverReverts(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tr := newTestTracker(t)
		tr.MarkSyncing()
		assert.False(t, tr.pendingRevert())

		advance(time.Hour)
		assert.Equal(t, Syncing, tr.Status())
	})
}

func TestTracker_SuccessRevertsAtExactDelay(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tr := newTestTracker(t)
		tr.MarkSuccess()
		assert.True(t, tr.pendingRevert())

		advance(SuccessRevertDelay - time.Nanosecond)
		assert.Equal(t, Success, tr.Status())

		advance(time.Nanosecond)
		assert.Equal(t, Idle, tr.Status())
		assert.False(t, tr.pendingRevert())
	})
}

func TestTracker_ErrorRevertsAtExactDelay(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tr := newTestTracker(t)
		tr.MarkError()

		advance(ErrorRevertDelay - time.Nanosecond)
		assert.Equal(t, Error, tr.Status())

		advance(time.Nanosecond)
		assert.Equal(t, Idle, tr.Status())
	})
}

func TestTracker_SyncingAfterSuccessCancelsRevert(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tr := newTestTracker(t)
		tr.MarkSuccess()
		advance(500 * time.Millisecond)
		tr.MarkSyncing()
		assert.False(t, tr.pendingRevert())

		advance(SuccessRevertDelay)
		assert.Equal(t, Syncing, tr.Status())
		advance(time.Minute)
		assert.Equal(t, Syncing, tr.Status())
	})
}

func TestTracker_MarkIdleTwice(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tr := newTestTracker(t)
		tr.MarkError()

		tr.MarkIdle()
		tr.MarkIdle()
		assert.Equal(t, Idle, tr.Status())
		assert.False(t, tr.pendingRevert())

		advance(ErrorRevertDelay)
		assert.Equal(t, Idle, tr.Status())
	})
}

func TestTracker_SyncingSuccessScenario(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tr := newTestTracker(t)
		tr.MarkSyncing()
		tr.MarkSuccess()

		advance(1500 * time.Millisecond)
		assert.Equal(t, Idle, tr.Status())
	})
}

func TestTracker_SuccessSupersedesPendingError(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tr := newTestTracker(t)
		tr.MarkSyncing()
		tr.MarkError()

		advance(1000 * time.Millisecond)
		assert.Equal(t, Error, tr.Status())
		tr.MarkSuccess()

		advance(500 * time.Millisecond) // t=1500
		assert.Equal(t, Success, tr.Status())

		advance(1000*time.Millisecond - time.Nanosecond)
		assert.Equal(t, Success, tr.Status(), "success timer fires at t=2500, not before")

		advance(time.Nanosecond) // t=2500
		assert.Equal(t, Idle, tr.Status())

		advance(time.Second) // past the original error deadline
		assert.Equal(t, Idle, tr.Status())
	})
}

func TestTracker_RepeatedSuccessRestartsTimer(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tr := newTestTracker(t)
		tr.MarkSuccess()
		advance(time.Second)
		tr.MarkSuccess()

		advance(time.Second) // 2s after first, 1s after second
		assert.Equal(t, Success, tr.Status())

		advance(500 * time.Millisecond)
		assert.Equal(t, Idle, tr.Status())
	})
}

func TestTracker_StopCancelsPendingRevert(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tr := newTestTracker(t)
		tr.MarkError()
		tr.Stop()

		advance(ErrorRevertDelay * 2)
		assert.Equal(t, Error, tr.Status())
		assert.False(t, tr.pendingRevert())
	})
}

func TestTracker_ObserversSeeChangesInOrder(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tr := newTestTracker(t)

		var got []Change
		tr.Subscribe(ObserverFunc(func(c Change) {
			got = append(got, c)
		}))

		tr.MarkSyncing()
		tr.MarkSyncing() // no change, no notification
		tr.MarkSuccess()
		advance(SuccessRevertDelay)
		tr.MarkIdle() // already idle

		assert.Equal(t, []Change{
			{From: Idle, To: Syncing},
			{From: Syncing, To: Success},
			{From: Success, To: Idle, Auto: true},
		}, got)
	})
}

func TestTracker_ObserverMayReadStatus(t *testing.T) {
	tr := newTestTracker(t)

	var seen []Status
	tr.Subscribe(ObserverFunc(func(c Change) {
		seen = append(seen, tr.Status())
	}))
	tr.MarkSyncing()
	tr.MarkIdle()

	assert.Equal(t, []Status{Syncing, Idle}, seen)
}

func TestTracker_UnsubscribeStopsDelivery(t *testing.T) {
	tr := newTestTracker(t)

	var a, b int
	cancelA := tr.Subscribe(ObserverFunc(func(Change) { a++ }))
	tr.Subscribe(ObserverFunc(func(Change) { b++ }))

	tr.MarkSyncing()
	cancelA()
	cancelA()
	tr.MarkIdle()

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
}

func TestTracker_ConcurrentMarks(t *testing.T) {
	tr := newTestTracker(t)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			tr.MarkSyncing()
		}()
		go func() {
			defer wg.Done()
			tr.MarkSuccess()
		}()
		go func() {
			defer wg.Done()
			tr.MarkError()
		}()
	}
	wg.Wait()

	tr.MarkIdle()
	assert.Equal(t, Idle, tr.Status())
	assert.False(t, tr.pendingRevert())
}
