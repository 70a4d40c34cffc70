package frame

// Mailbox is a single-slot notification box. Any number of notifications posted
// between two drains collapse into one. It is safe to post from a goroutine other
// than the one draining.
type Mailbox struct {
	ch chan struct{}
}

// NewMailbox returns an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{ch: make(chan struct{}, 1)}
}

// Notify posts a notification without blocking.
func (m *Mailbox) Notify() {
	select {
	case m.ch <- struct{}{}:
	default:
	}
}

// Drain empties the box and reports whether it held a notification.
func (m *Mailbox) Drain() bool {
	select {
	case <-m.ch:
		return true
	default:
		return false
	}
}
