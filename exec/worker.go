//go:build unix

package exec

import (
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"

	"github.com/elastic/bchecker/server"
)

// file descriptors handed over by the supervisor, in cmd.ExtraFiles order
const (
	connFD  = 3
	readyFD = 4
)

// InheritedConn returns the client connection handed over by the supervisor.
func InheritedConn() (net.Conn, error) {
	f := os.NewFile(connFD, "client")
	if f == nil {
		return nil, errors.New("no client connection inherited")
	}
	// net.FileConn dups the descriptor
	defer f.Close()
	conn, err := net.FileConn(f)
	return conn, errors.Wrap(err, "inheriting client connection")
}

// Parent is the supervisor process of a worker, as seen from the worker.
type Parent struct {
	PID int
	// write end of the readiness pipe
	Pipe io.WriteCloser
}

// InheritedParent returns the supervisor that started this worker process.
func InheritedParent() Parent {
	return Parent{PID: os.Getppid(), Pipe: os.NewFile(readyFD, "ready")}
}

// Ready tells the supervisor that this worker owns its connection. It can only be called once.
func (p Parent) Ready() error {
	if p.Pipe == nil {
		return errors.New("no readiness pipe inherited")
	}
	_, err := fmt.Fprintf(p.Pipe, "%d\n", os.Getpid())
	p.Pipe.Close()
	return errors.Wrap(err, "signalling readiness")
}

func (p Parent) Shutdown() error {
	return errors.Wrap(syscall.Kill(p.PID, server.TerminateSignal), "requesting shutdown")
}

// StopOnSignal returns a channel that is closed when this process is asked to terminate.
// The signal no longer kills the process, the worker says goodbye and exits by itself.
func StopOnSignal() <-chan struct{} {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, server.TerminateSignal)
	stop := make(chan struct{})
	go func() {
		<-sigs
		close(stop)
	}()
	return stop
}
