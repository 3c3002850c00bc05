package activity

// Observer receives status changes from a Tracker.
type Observer interface {
	OnChange(c Change)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(Change)

// OnChange calls f(c).
func (f ObserverFunc) OnChange(c Change) { f(c) }

// ChannelObserver adapts Observer to a channel for Bubble Tea. When the
// buffer is full the oldest queued change is discarded, so the last change
// a consumer receives is always the newest one.
type ChannelObserver struct {
	ch chan Change
}

// NewChannelObserver creates a new channel-based observer.
func NewChannelObserver(ch chan Change) *ChannelObserver {
	return &ChannelObserver{ch: ch}
}

// OnChange sends the change to the channel without blocking.
func (o *ChannelObserver) OnChange(c Change) {
	for {
		select {
		case o.ch <- c:
			return
		default:
		}
		// full: make room by dropping the oldest change
		select {
		case <-o.ch:
		default:
		}
	}
}
