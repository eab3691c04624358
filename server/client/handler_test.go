package client

import (
	"bufio"
	"bytes"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/nettest"

	"github.com/elastic/bchecker/out"
	"github.com/elastic/bchecker/server/tests"
)

type mockCoordinator struct {
	ready    int32
	shutdown int32
}

func (c *mockCoordinator) Ready() error {
	atomic.AddInt32(&c.ready, 1)
	return nil
}

func (c *mockCoordinator) Shutdown() error {
	atomic.AddInt32(&c.shutdown, 1)
	return nil
}

type failingValidator struct{}

func (failingValidator) Check(string) (bool, error) {
	return false, errors.New("backend unavailable")
}

// serve starts a handler for the first connection to a fresh listener, and returns a client connected to it
func serve(t *testing.T, h *Handler, stop <-chan struct{}) (*tests.Client, <-chan error) {
	t.Helper()
	l, err := nettest.NewLocalListener("tcp")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	result := make(chan error, 1)
	go func() {
		conn, err := l.Accept()
		if err != nil {
			result <- err
			return
		}
		result <- h.Serve(conn, stop)
	}()
	return tests.Dial(t, l.Addr().String()), result
}

func wait(t *testing.T, result <-chan error) error {
	t.Helper()
	select {
	case err := <-result:
		return err
	case <-time.After(tests.Timeout):
		t.Fatal("handler did not return")
		return nil
	}
}

func newHandler(c Coordinator) *Handler {
	return &Handler{ID: 42, Name: "bchecker", Coordinator: c}
}

func TestValidationRequests(t *testing.T) {
	coord := &mockCoordinator{}
	c, result := serve(t, newHandler(coord), nil)

	c.Greet(t, "bchecker")
	for _, test := range []struct {
		line, response string
	}{
		{"(a(b)c)", "VALID"},
		{"(a(b", "INVALID"},
		{"   {[ ]}   ", "VALID"},
		{"", "Error: empty string"},
		{"a\x01b", "Error: unexpected control character U+0001 at position 1"},
		{"()", "VALID"},
	} {
		c.Ask(t, test.line, test.response)
	}
	c.Send(t, "quit")
	c.ExpectClosed(t, "Bye 42 :)")

	assert.NoError(t, wait(t, result))
	assert.EqualValues(t, 1, atomic.LoadInt32(&coord.ready))
	assert.EqualValues(t, 0, atomic.LoadInt32(&coord.shutdown))
}

func TestLogsConnectionLifecycle(t *testing.T) {
	var log bytes.Buffer
	h := newHandler(&mockCoordinator{})
	h.SupervisorID = 7
	h.Session = "c0ffee"
	h.Logger = out.NewLogger(&log, "")
	c, result := serve(t, h, nil)

	c.Greet(t, "bchecker")
	c.Ask(t, "([)]", "INVALID")
	c.Send(t, "quit")
	c.ExpectClosed(t, "Bye 42 :)")
	require.NoError(t, wait(t, result))

	for _, line := range []string{
		"New client: 42 [c0ffee], supervisor 7",
		"Client 42 > ([)]",
		"Client 42 disconnected",
	} {
		assert.Contains(t, log.String(), line)
	}
}

func TestValidatorFailureKeepsConnectionOpen(t *testing.T) {
	h := newHandler(&mockCoordinator{})
	h.Validator = failingValidator{}
	c, result := serve(t, h, nil)

	c.Greet(t, "bchecker")
	c.Ask(t, "(x)", "Error: backend unavailable")
	c.Ask(t, "(y)", "Error: backend unavailable")
	c.Send(t, "quit")
	c.ExpectClosed(t, "Bye 42 :)")
	assert.NoError(t, wait(t, result))
}

func TestShutdownRequest(t *testing.T) {
	coord := &mockCoordinator{}
	c, result := serve(t, newHandler(coord), nil)

	c.Greet(t, "bchecker")
	c.Send(t, "  shutdown ")
	c.ExpectClosed(t, "Bye 42 :)")
	assert.NoError(t, wait(t, result))
	assert.EqualValues(t, 1, atomic.LoadInt32(&coord.shutdown))
}

func TestStopInterruptsBlockedRead(t *testing.T) {
	stop := make(chan struct{})
	c, result := serve(t, newHandler(&mockCoordinator{}), stop)

	c.Greet(t, "bchecker")
	// the handler is now blocked reading
	close(stop)
	c.ExpectClosed(t, "Bye 42 :)")
	assert.NoError(t, wait(t, result))
}

func TestPeerDisconnect(t *testing.T) {
	c, result := serve(t, newHandler(&mockCoordinator{}), nil)

	c.Greet(t, "bchecker")
	c.Close()
	assert.NoError(t, wait(t, result))
}

func TestUnterminatedLastLine(t *testing.T) {
	c, result := serve(t, newHandler(&mockCoordinator{}), nil)

	c.Greet(t, "bchecker")
	_, err := c.Write([]byte("(a)"))
	require.NoError(t, err)
	c.Conn.(*net.TCPConn).CloseWrite()
	c.Expect(t, "VALID", "Bye 42 :)")
	assert.NoError(t, wait(t, result))
}

func TestReadLine(t *testing.T) {
	long := strings.Repeat("(", MaxLineLength+100)
	r := bufio.NewReaderSize(strings.NewReader(long+"\nquit\n"+"tail"), MaxLineLength)

	line, err := readLine(r)
	assert.NoError(t, err)
	assert.Len(t, line, MaxLineLength)

	line, err = readLine(r)
	assert.NoError(t, err)
	assert.Equal(t, "quit", line)

	line, err = readLine(r)
	assert.Error(t, err)
	assert.Equal(t, "tail", line)
}
