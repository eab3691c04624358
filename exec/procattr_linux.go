package exec

import "syscall"

// workers get their own process group, so a ^C in the terminal reaches only the supervisor.
// Pdeathsig is tied to the OS thread that forked the worker, not to the supervisor process; the Go runtime only
// retires a thread when a goroutine locked to it exits, which the supervisor never does.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGTERM,
	}
}
