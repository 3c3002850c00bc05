// Package activity tracks the state of outstanding network activity so the UI
// can render a sync indicator.
//
// A Tracker holds one of four statuses (Idle, Syncing, Success, Error). The API
// client reports request lifecycle events through the Reporter interface:
//
//	tracker.MarkSyncing()  // request started
//	tracker.MarkSuccess()  // request succeeded, reverts to Idle after 1.5s
//	tracker.MarkError()    // request failed, reverts to Idle after 3s
//
// Every Mark call cancels a pending revert before scheduling a new one, so at
// most one revert timer is armed and a stale timer never overwrites a newer
// status. Overlapping requests are last-write-wins.
//
// Consumers read Status or register an Observer with Subscribe. Observers run
// synchronously, in transition order, and may call Status but must not call
// Mark methods from inside the callback. ChannelObserver hands changes off to a
// channel for event loops such as Bubble Tea.
package activity
