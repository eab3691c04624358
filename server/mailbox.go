package server

import (
	"github.com/Workiva/go-datastructures/queue"
)

const mailboxCap = 1024

// Mailbox queues events until the supervisor loop drains them.
// Producers only record their intent; all state transitions happen in the loop.
type Mailbox struct {
	events *queue.RingBuffer
	// buffered with capacity 1: a pending wake-up covers every event queued before it is consumed
	signal chan struct{}
}

func NewMailbox() *Mailbox {
	return &Mailbox{
		events: queue.NewRingBuffer(mailboxCap),
		signal: make(chan struct{}, 1),
	}
}

// Notify queues ev. Events sent after the mailbox is disposed are dropped.
func (m *Mailbox) Notify(ev Event) {
	if err := m.events.Put(ev); err != nil {
		return
	}
	select {
	case m.signal <- struct{}{}:
	default:
	}
}

// Signal fires when there may be events to drain.
func (m *Mailbox) Signal() <-chan struct{} {
	return m.signal
}

// Drain returns every queued event in arrival order, without blocking.
func (m *Mailbox) Drain() []Event {
	var events []Event
	for m.events.Len() > 0 {
		item, err := m.events.Get()
		if err != nil {
			break
		}
		events = append(events, item.(Event))
	}
	return events
}

// Dispose releases producers blocked on a full mailbox, and makes further Notify calls no-ops.
func (m *Mailbox) Dispose() {
	m.events.Dispose()
}
