//go:build unix

// Package exec isolates every connection in its own worker process.
//
// The supervisor re-executes a worker binary (by default, itself) with the accepted connection as file descriptor 3
// and the write end of a pipe as file descriptor 4. The worker writes its pid to that pipe once it owns the
// connection, and sends TerminateSignal to its parent when a client asks for a shutdown. The supervisor sends
// TerminateSignal to a worker to stop it, and kills it if that is not enough.
package exec

import (
	"bufio"
	"io"
	"math"
	"net"
	"os"
	"os/exec"
	"strconv"

	"github.com/pkg/errors"
	"github.com/struCoder/pidusage"

	"github.com/elastic/bchecker/server"
)

// Spawner starts one worker process per connection.
type Spawner struct {
	// worker binary, the running executable if empty
	Path string
	// arguments of the worker binary; the connection session is appended as `--session <id>`
	Args []string
	// extra environment for the worker, on top of the supervisor's
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
}

type filer interface {
	File() (*os.File, error)
}

func (s *Spawner) Spawn(conn net.Conn, session string, n server.Notifier) (server.Worker, error) {
	fc, ok := conn.(filer)
	if !ok {
		return nil, errors.Errorf("%T can't be handed over to a worker process", conn)
	}
	f, err := fc.File()
	if err != nil {
		return nil, errors.Wrap(err, "duplicating connection")
	}
	// the child gets its own copy
	defer f.Close()

	path := s.Path
	if path == "" {
		if path, err = os.Executable(); err != nil {
			return nil, errors.Wrap(err, "locating worker binary")
		}
	}

	ready, readyW, err := os.Pipe()
	if err != nil {
		return nil, errors.Wrap(err, "creating readiness pipe")
	}
	// only the worker may hold the write end, or ready never sees EOF
	defer readyW.Close()

	args := append(append([]string{}, s.Args...), "--session", session)
	cmd := exec.Command(path, args...)
	cmd.ExtraFiles = []*os.File{f, readyW}
	cmd.Env = append(os.Environ(), s.Env...)
	cmd.Stdout = s.Stdout
	cmd.Stderr = s.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	cmd.SysProcAttr = sysProcAttr()

	if err := cmd.Start(); err != nil {
		ready.Close()
		return nil, errors.Wrapf(err, "starting %s", path)
	}
	// the worker owns the connection from now on
	conn.Close()

	pid := cmd.Process.Pid
	go func() {
		// readiness is always posted before the exit of the same worker
		watchReady(ready, pid, n)
		// the exit status carries nothing for the supervisor, only the fact that the worker is gone
		cmd.Wait()
		n.Notify(server.Event{Kind: server.EventExited, Worker: pid})
	}()
	return &process{cmd: cmd}, nil
}

// watchReady reads the readiness pipe of worker pid until the worker closes it or exits.
func watchReady(r io.ReadCloser, pid int, n server.Notifier) {
	defer r.Close()
	lines := bufio.NewScanner(r)
	for lines.Scan() {
		if got, err := strconv.Atoi(lines.Text()); err == nil && got == pid {
			n.Notify(server.Event{Kind: server.EventReady, Worker: pid})
		}
	}
}

type process struct {
	cmd *exec.Cmd
}

func (p *process) ID() int {
	return p.cmd.Process.Pid
}

func (p *process) Terminate() error {
	return p.cmd.Process.Signal(server.TerminateSignal)
}

func (p *process) Kill() error {
	return p.cmd.Process.Kill()
}

// RSS returns the resident memory of the worker process, in bytes.
func (p *process) RSS() (int64, error) {
	info, err := pidusage.GetStat(p.cmd.Process.Pid)
	if err != nil {
		return 0, errors.Wrapf(err, "reading memory of %d", p.cmd.Process.Pid)
	}
	return int64(math.Trunc(info.Memory)), nil
}
