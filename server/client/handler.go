package client

import (
	"bufio"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/elastic/bchecker/bracket"
	"github.com/elastic/bchecker/out"
)

// MaxLineLength bounds a single request; longer lines are cut and the rest of the line is dropped.
const MaxLineLength = 2048

// Validator decides whether a request line is valid.
// An error means the line could not be checked, and it is reported to the client verbatim.
type Validator interface {
	Check(line string) (bool, error)
}

// Coordinator is the worker's narrow channel back to its supervisor.
type Coordinator interface {
	// Ready tells the supervisor that this worker owns its connection, so it can accept the next one.
	Ready() error
	// Shutdown asks the supervisor to stop the whole service.
	Shutdown() error
}

// Handler serves exactly one client connection.
type Handler struct {
	ID           int
	SupervisorID int
	// correlates the supervisor's and the worker's log lines about one connection
	Session     string
	Name        string
	Validator   Validator
	Coordinator Coordinator
	Logger      *out.Logger
}

// Serve runs the line protocol on conn until the client quits or asks for a shutdown, the connection fails,
// or stop is closed. conn is always closed, and the client is always said goodbye, when Serve returns.
func (h *Handler) Serve(conn net.Conn, stop <-chan struct{}) error {
	if h.Validator == nil {
		h.Validator = bracket.Checker{}
	}
	if h.Logger == nil {
		h.Logger = out.Discard()
	}

	// notify before any I/O, a slow client must not hold the supervisor back
	if err := h.Coordinator.Ready(); err != nil {
		conn.Close()
		return errors.Wrap(err, "notifying readiness")
	}
	h.Logger.Infof("New client: %d [%s], supervisor %d", h.ID, h.Session, h.SupervisorID)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-stop:
			// unblocks a pending read so the loop reaches its next checkpoint
			conn.SetReadDeadline(time.Now())
		case <-done:
		}
	}()
	defer wg.Wait()
	defer close(done)

	err := h.loop(conn, stop)
	h.farewell(conn)
	return err
}

func (h *Handler) loop(conn net.Conn, stop <-chan struct{}) error {
	if err := out.Welcome(conn, h.Name); err != nil {
		return nil
	}
	r := bufio.NewReaderSize(conn, MaxLineLength)
	for {
		if stopped(stop) {
			return nil
		}

		if err := out.Prompt(conn); err != nil {
			return nil
		}
		line, err := readLine(r)
		if err != nil && (line == "" || stopped(stop)) {
			return nil
		}
		line = strings.TrimSpace(line)
		h.Logger.Infof("Client %d > %s", h.ID, line)

		switch line {
		case "quit":
			return nil
		case "shutdown":
			return errors.Wrap(h.Coordinator.Shutdown(), "requesting shutdown")
		default:
			h.reply(conn, line)
		}
		if err != nil {
			// the unterminated last line was served, the peer is gone
			return nil
		}
	}
}

func (h *Handler) reply(w io.Writer, line string) {
	valid, err := h.Validator.Check(line)
	var berr *bracket.Error
	switch {
	case errors.As(err, &berr):
		out.ReplyError(w, berr)
	case err != nil:
		h.Logger.Errorf("checking %q: %v", line, err)
		out.ReplyError(w, err)
	default:
		out.Verdict(w, valid)
	}
}

// farewell is the single exit path of a worker, whatever the reason to stop
func (h *Handler) farewell(conn net.Conn) {
	out.Bye(conn, h.ID)
	conn.Close()
	h.Logger.Infof("Client %d disconnected", h.ID)
}

func stopped(stop <-chan struct{}) bool {
	select {
	case <-stop:
		return true
	default:
		return false
	}
}

// readLine reads up to and without the next newline, keeping at most MaxLineLength bytes.
// A non-nil error comes with whatever was read before it.
func readLine(r *bufio.Reader) (string, error) {
	chunk, err := r.ReadSlice('\n')
	line := string(chunk)
	for err == bufio.ErrBufferFull {
		_, err = r.ReadSlice('\n')
	}
	return strings.TrimSuffix(line, "\n"), err
}
