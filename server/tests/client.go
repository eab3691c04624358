// Package tests provides a line protocol client to drive the server from tests.
package tests

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Timeout bounds every read of a test client, so a misbehaving server fails a test instead of hanging it.
var Timeout = 5 * time.Second

type Client struct {
	net.Conn
	r *bufio.Reader
}

func Dial(t *testing.T, addr string) *Client {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, Timeout)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &Client{Conn: conn, r: bufio.NewReader(conn)}
}

func (c *Client) Send(t *testing.T, line string) {
	t.Helper()
	_, err := c.Write([]byte(line + "\n"))
	require.NoError(t, err)
}

// ReadLine returns the next line without its newline.
func (c *Client) ReadLine() (string, error) {
	c.SetReadDeadline(time.Now().Add(Timeout))
	line, err := c.r.ReadString('\n')
	return strings.TrimSuffix(line, "\n"), err
}

// Expect reads as many lines as given and requires them to be equal.
func (c *Client) Expect(t *testing.T, lines ...string) {
	t.Helper()
	for _, want := range lines {
		got, err := c.ReadLine()
		require.NoError(t, err, "waiting for %q", want)
		require.Equal(t, want, got)
	}
}

// Greet consumes the welcome line and the first prompt.
func (c *Client) Greet(t *testing.T, name string) {
	t.Helper()
	c.Expect(t, "Welcome to "+name, "RDY")
}

// Ask sends line, requires the given response, and consumes the following prompt.
func (c *Client) Ask(t *testing.T, line, response string) {
	t.Helper()
	c.Send(t, line)
	c.Expect(t, response, "RDY")
}

// ExpectClosed requires the given farewell followed by the server closing the connection.
func (c *Client) ExpectClosed(t *testing.T, farewell string) {
	t.Helper()
	c.Expect(t, farewell)
	_, err := c.ReadLine()
	require.Error(t, err, "connection still open")
}
