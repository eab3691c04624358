package server

import (
	"os"
	"os/signal"
	"syscall"
)

// TerminateSignal stops a worker process when sent by the supervisor,
// and the whole service when sent to the supervisor.
const TerminateSignal = syscall.SIGTERM

// relaySignals turns shutdown signals into mailbox events until done is closed.
// Handlers never touch the supervisor state themselves.
func (s *Supervisor) relaySignals(done <-chan struct{}) {
	sigs := make(chan os.Signal, 16)
	signal.Notify(sigs, TerminateSignal, os.Interrupt)
	go func() {
		defer signal.Stop(sigs)
		for {
			select {
			case <-done:
				return
			case sig := <-sigs:
				s.logger.Infof("received %s", sig)
				s.mailbox.Notify(Event{Kind: EventShutdown})
			}
		}
	}()
}
