package server

import (
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"

	"github.com/elastic/bchecker/out"
	"github.com/elastic/bchecker/server/client"
)

// Worker is a started connection handler, as seen from the supervisor.
type Worker interface {
	ID() int
	// Terminate asks the worker to say goodbye to its client and exit.
	Terminate() error
	// Kill stops a worker that did not honour Terminate in time.
	Kill() error
}

// MemoryReporter is implemented by workers that run in their own process.
type MemoryReporter interface {
	// RSS returns the resident memory of the worker, in bytes.
	RSS() (int64, error)
}

// Spawner starts an isolated worker that takes ownership of conn.
// The worker reports readiness, shutdown requests and its own termination to n.
// A returned error is fatal for the supervisor.
type Spawner interface {
	Spawn(conn net.Conn, session string, n Notifier) (Worker, error)
}

// GoroutineSpawner runs every worker on its own goroutine, in the supervisor's process.
// Workers share nothing with the supervisor but the events they send.
type GoroutineSpawner struct {
	Name      string
	Validator client.Validator
	// destination of worker logs, nothing is logged if nil
	Log io.Writer

	lastID int64
}

func (s *GoroutineSpawner) Spawn(conn net.Conn, session string, n Notifier) (Worker, error) {
	id := int(atomic.AddInt64(&s.lastID, 1))
	w := &goroutineWorker{id: id, conn: conn, stop: make(chan struct{})}

	logger := out.Discard()
	if s.Log != nil {
		logger = out.NewLogger(s.Log, fmt.Sprintf("[%d] ", id))
	}
	h := &client.Handler{
		ID:           id,
		SupervisorID: os.Getpid(),
		Session:      session,
		Name:         s.Name,
		Validator:    s.Validator,
		Coordinator:  eventCoordinator{n: n, id: id},
		Logger:       logger,
	}

	go func() {
		if err := h.Serve(conn, w.stop); err != nil {
			logger.Errorf("worker %d: %v", id, err)
		}
		n.Notify(Event{Kind: EventExited, Worker: id})
	}()
	return w, nil
}

type goroutineWorker struct {
	id   int
	conn net.Conn
	stop chan struct{}
	once sync.Once
}

func (w *goroutineWorker) ID() int {
	return w.id
}

func (w *goroutineWorker) Terminate() error {
	w.once.Do(func() { close(w.stop) })
	return nil
}

func (w *goroutineWorker) Kill() error {
	return w.conn.Close()
}

// eventCoordinator posts a worker's notifications straight to the supervisor's mailbox
type eventCoordinator struct {
	n  Notifier
	id int
}

func (c eventCoordinator) Ready() error {
	c.n.Notify(Event{Kind: EventReady, Worker: c.id})
	return nil
}

func (c eventCoordinator) Shutdown() error {
	c.n.Notify(Event{Kind: EventShutdown, Worker: c.id})
	return nil
}
