package filing

import "time"

// StatusChange is the event a lifecycle transition emits. The core does not
// send email or write audit rows; it hands these to a listener owned by the
// surrounding system.
type StatusChange struct {
	SubjectID        string
	From             string
	To               string
	RejectionCode    string
	RejectionMessage string
	ReceiptID        string
	At               time.Time
}

// Listener receives status-change events. Implementations must not block
// the lifecycle; slow consumers should buffer internally.
type Listener interface {
	OnStatusChange(ev StatusChange)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(ev StatusChange)

func (f ListenerFunc) OnStatusChange(ev StatusChange) { f(ev) }

// NopListener discards events. Used where no listener is registered.
type NopListener struct{}

func (NopListener) OnStatusChange(StatusChange) {}
