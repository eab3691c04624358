package server

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/xid"

	"github.com/elastic/bchecker/metrics"
	"github.com/elastic/bchecker/out"
)

type phase int

const (
	// the acceptor may take the next connection
	acceptPending phase = iota
	// a connection was (or is about to be) handed to a new worker, waiting for it to be ready
	spawnIssued
	shuttingDown
)

// state is everything the main loop mutates. It belongs to a single Run call.
type state struct {
	listener net.Listener
	registry *Registry
	phase    phase
	// worker whose readiness is awaited, 0 if none
	pending int
}

// ready lets the acceptor take the next connection, if worker is the one waited for.
// Readiness that does not name its worker is never trusted.
func (st *state) ready(worker int) bool {
	if st.phase != spawnIssued || st.pending == 0 || worker != st.pending {
		return false
	}
	st.phase = acceptPending
	st.pending = 0
	return true
}

// Supervisor accepts connections one at a time and hands each one to a freshly spawned worker.
type Supervisor struct {
	listener net.Listener
	spawner  Spawner
	mailbox  *Mailbox
	logger   *out.Logger
	metrics  *metrics.Metrics
	grace    time.Duration
	signals  bool

	// registry size, readable from other goroutines
	live int64
}

func New(l net.Listener, spawner Spawner, opts ...Option) *Supervisor {
	s := &Supervisor{
		listener: l,
		spawner:  spawner,
		mailbox:  NewMailbox(),
		grace:    DefaultGrace,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = out.Discard()
	}
	if s.metrics == nil {
		s.metrics = metrics.New(prometheus.NewRegistry())
	}
	return s
}

// Notify posts an event to the supervisor's loop.
func (s *Supervisor) Notify(ev Event) {
	s.mailbox.Notify(ev)
}

// Live returns the number of workers the supervisor believes to be alive.
func (s *Supervisor) Live() int {
	return int(atomic.LoadInt64(&s.live))
}

// Run serves connections until a shutdown is requested or ctx is done, then stops every worker,
// closes the listener and returns nil. An error means the supervisor gave up: a worker could not be spawned
// or the listener failed.
func (s *Supervisor) Run(ctx context.Context) error {
	defer s.mailbox.Dispose()
	st := &state{listener: s.listener, registry: newRegistry()}

	done := make(chan struct{})
	defer close(done)
	if s.signals {
		s.relaySignals(done)
	}

	tokens := make(chan struct{}, 1)
	accepted := make(chan net.Conn)
	failed := make(chan error, 1)
	go s.accept(done, tokens, accepted, failed)

	s.logger.Infof("Listening on %s", s.listener.Addr())
	for {
		if st.phase == acceptPending {
			tokens <- struct{}{}
			st.phase = spawnIssued
		}

		select {
		case <-ctx.Done():
			return s.shutdown(st)

		case conn := <-accepted:
			if err := s.spawn(st, conn); err != nil {
				s.logger.Errorf("%v", err)
				s.listener.Close()
				return err
			}

		case err := <-failed:
			return errors.Wrap(err, "accepting connections")

		case <-s.mailbox.Signal():
			if s.dispatch(st, s.mailbox.Drain()) {
				return s.shutdown(st)
			}
		}
	}
}

// accept takes one connection per token. It never accepts ahead of the supervisor.
func (s *Supervisor) accept(done <-chan struct{}, tokens <-chan struct{}, accepted chan<- net.Conn, failed chan<- error) {
	for {
		select {
		case <-done:
			return
		case <-tokens:
		}
		conn, err := s.listener.Accept()
		if err != nil {
			failed <- err
			return
		}
		select {
		case accepted <- conn:
		case <-done:
			conn.Close()
			return
		}
	}
}

func (s *Supervisor) spawn(st *state, conn net.Conn) error {
	session := xid.New().String()
	remote := conn.RemoteAddr()
	w, err := s.spawner.Spawn(conn, session, s.mailbox)
	if err != nil {
		conn.Close()
		return errors.Wrap(err, "can't create new worker")
	}
	st.registry.put(w, session)
	st.pending = w.ID()
	s.count(st)
	s.metrics.Spawned.Inc()
	s.logger.Infof("New client: %d [%s] from %s", w.ID(), session, remote)
	return nil
}

// dispatch handles a batch of events: readiness first, then exits, then shutdown requests.
// It reports whether the service must shut down.
func (s *Supervisor) dispatch(st *state, events []Event) bool {
	var shutdown bool
	for _, ev := range events {
		switch ev.Kind {
		case EventReady:
			st.ready(ev.Worker)
		case EventShutdown:
			if !shutdown {
				s.logger.Infof("shutdown requested by %s", requester(ev.Worker))
			}
			shutdown = true
		}
	}
	for _, ev := range events {
		if ev.Kind == EventExited {
			s.reap(st, ev.Worker)
		}
	}
	return shutdown
}

// reap removes a worker confirmed terminated; other records are left alone
func (s *Supervisor) reap(st *state, id int) {
	if _, ok := st.registry.remove(id); !ok {
		return
	}
	s.count(st)
	s.metrics.Reaped.Inc()
	s.logger.Infof("%d destroyed", id)

	if id == st.pending && st.ready(id) {
		s.logger.Errorf("worker %d exited before it was ready", id)
	}
}

func (s *Supervisor) shutdown(st *state) error {
	st.phase = shuttingDown
	for _, id := range st.registry.ids() {
		rec, _ := st.registry.get(id)
		s.logger.Infof("Shutting down connection %d...%s", id, memory(rec.worker))
		if err := rec.worker.Terminate(); err != nil {
			s.logger.Errorf("terminating %d: %v", id, err)
		}
	}

	grace := time.NewTimer(s.grace)
	defer grace.Stop()
wait:
	for st.registry.len() > 0 {
		select {
		case <-grace.C:
			break wait
		case <-s.mailbox.Signal():
			for _, ev := range s.mailbox.Drain() {
				if ev.Kind == EventExited {
					s.reap(st, ev.Worker)
				}
			}
		}
	}

	for _, id := range st.registry.ids() {
		rec, _ := st.registry.get(id)
		s.logger.Errorf("killing %d%s, still alive after %s", id, memory(rec.worker), s.grace)
		if err := rec.worker.Kill(); err != nil {
			s.logger.Errorf("killing %d: %v", id, err)
		}
		st.registry.remove(id)
		s.metrics.Killed.Inc()
	}
	s.count(st)

	s.logger.Infof("Server is shutting down... Bye :)")
	if err := st.listener.Close(); err != nil {
		s.logger.Errorf("closing listener: %v", err)
	}
	return nil
}

func (s *Supervisor) count(st *state) {
	atomic.StoreInt64(&s.live, int64(st.registry.len()))
	s.metrics.Live.Set(float64(st.registry.len()))
}

// memory describes the resident memory of w for log lines, when w can tell
func memory(w Worker) string {
	m, ok := w.(MemoryReporter)
	if !ok {
		return ""
	}
	rss, err := m.RSS()
	if err != nil {
		return ""
	}
	return fmt.Sprintf(" (rss %d kB)", rss/1024)
}

func requester(worker int) string {
	if worker == 0 {
		return "signal"
	}
	return "worker " + strconv.Itoa(worker)
}
