package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/elastic/bchecker/bracket"
	"github.com/elastic/bchecker/exec"
	"github.com/elastic/bchecker/internal/workgroup"
	"github.com/elastic/bchecker/metrics"
	"github.com/elastic/bchecker/out"
	"github.com/elastic/bchecker/server"
)

type config struct {
	addr        string
	name        string
	isolation   string
	metricsAddr string
	grace       time.Duration
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var cfg config
	cmd := &cobra.Command{
		Use:   "bchecker",
		Short: "Checks that brackets are balanced, one process per connection",
		Long: `bchecker listens for TCP connections and serves every one of them in its own worker.

A client sends one line at a time after each RDY prompt, and gets back VALID, INVALID or Error: <reason>.
"quit" ends the connection, "shutdown" stops the whole server and every other connection with it.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(*cobra.Command, []string) error {
			return serve(cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.addr, "addr", ":10001", "address to listen on")
	cmd.Flags().StringVar(&cfg.name, "name", "bchecker", "service name in the welcome message")
	cmd.Flags().StringVar(&cfg.isolation, "isolation", "process", "how workers are isolated: process or goroutine")
	cmd.Flags().StringVar(&cfg.metricsAddr, "metrics-addr", "", "serve /metrics and /healthz on this address, disabled if empty")
	cmd.Flags().DurationVar(&cfg.grace, "grace", server.DefaultGrace, "time given to workers to say goodbye on shutdown")

	cmd.AddCommand(workerCmd(), versionCmd())
	return cmd
}

func newSpawner(cfg config) (server.Spawner, error) {
	switch cfg.isolation {
	case "process":
		return &exec.Spawner{Args: []string{"worker", "--name", cfg.name}}, nil
	case "goroutine":
		return &server.GoroutineSpawner{Name: cfg.name, Validator: bracket.Checker{}, Log: os.Stdout}, nil
	}
	return nil, errors.Errorf("unknown isolation %q, want process or goroutine", cfg.isolation)
}

// serve runs the supervisor, and the metrics server if asked to, until the supervisor shuts down
func serve(cfg config) error {
	spawner, err := newSpawner(cfg)
	if err != nil {
		return err
	}

	logger := out.NewLogger(os.Stdout, "")
	l, err := net.Listen("tcp", cfg.addr)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", cfg.addr)
	}

	reg := prometheus.NewRegistry()
	sup := server.New(l, spawner,
		server.WithLogger(logger),
		server.WithGrace(cfg.grace),
		server.WithMetrics(metrics.New(reg)),
		server.WithSignals(),
	)

	var g workgroup.Group
	g.Add(func(stop <-chan struct{}) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			select {
			case <-stop:
				cancel()
			case <-ctx.Done():
			}
		}()
		return sup.Run(ctx)
	})

	if cfg.metricsAddr != "" {
		srv := &http.Server{Addr: cfg.metricsAddr, Handler: metrics.Handler(reg, sup.Live)}
		g.Add(func(stop <-chan struct{}) error {
			go func() {
				<-stop
				srv.Shutdown(context.Background())
			}()
			logger.Infof("Serving metrics on %s", cfg.metricsAddr)
			if err := srv.ListenAndServe(); err != http.ErrServerClosed {
				return errors.Wrap(err, "serving metrics")
			}
			return nil
		})
	}

	return g.Run()
}
