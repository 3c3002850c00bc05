package activity

import (
	"fmt"
	"time"
)

// Status is the last known state of network activity.
type Status int

const (
	Idle Status = iota
	Syncing
	Success
	Error
)

// Delays before a terminal status reverts to Idle.
const (
	SuccessRevertDelay = 1500 * time.Millisecond
	ErrorRevertDelay   = 3000 * time.Millisecond
)

var statusNames = [...]string{"idle", "syncing", "success", "error"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("status(%d)", int(s))
	}
	return statusNames[s]
}

// RevertDelay returns how long s stays current before reverting to Idle.
// Zero means s never reverts on its own.
func (s Status) RevertDelay() time.Duration {
	switch s {
	case Success:
		return SuccessRevertDelay
	case Error:
		return ErrorRevertDelay
	default:
		return 0
	}
}

// Statuses returns every status in declaration order.
func Statuses() []Status {
	return []Status{Idle, Syncing, Success, Error}
}
