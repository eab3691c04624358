package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/elastic/bchecker/bracket"
	"github.com/elastic/bchecker/exec"
	"github.com/elastic/bchecker/out"
	"github.com/elastic/bchecker/server/client"
)

// workerCmd is what the supervisor runs for every connection, it is not meant to be started by hand
func workerCmd() *cobra.Command {
	var name, session string

	cmd := &cobra.Command{
		Use:    "worker",
		Short:  "Serve the connection inherited from the supervisor",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			// before anything else, a terminate signal must never kill a worker mid-conversation
			stop := exec.StopOnSignal()

			conn, err := exec.InheritedConn()
			if err != nil {
				return err
			}
			id, parent := os.Getpid(), exec.InheritedParent()
			h := &client.Handler{
				ID:           id,
				SupervisorID: parent.PID,
				Session:      session,
				Name:         name,
				Validator:    bracket.Checker{},
				Coordinator:  parent,
				Logger:       out.NewLogger(os.Stdout, fmt.Sprintf("[%d] ", id)),
			}
			return h.Serve(conn, stop)
		},
	}

	cmd.Flags().StringVar(&name, "name", "bchecker", "service name in the welcome message")
	cmd.Flags().StringVar(&session, "session", "", "connection session id, for logging")
	return cmd
}
