package server

import "fmt"

type EventKind int

const (
	// a worker took ownership of the last accepted connection
	EventReady EventKind = iota
	// somebody asked for the whole service to stop
	EventShutdown
	// a worker terminated
	EventExited
)

func (k EventKind) String() string {
	switch k {
	case EventReady:
		return "ready"
	case EventShutdown:
		return "shutdown"
	case EventExited:
		return "exited"
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Event is what workers, signal handlers and process waiters tell the supervisor.
// Worker is 0 when the sender is unknown, eg. for OS signals.
type Event struct {
	Kind   EventKind
	Worker int
}

// Notifier accepts events for the supervisor. Notify must not block on the supervisor's loop.
type Notifier interface {
	Notify(Event)
}
