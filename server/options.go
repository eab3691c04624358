package server

import (
	"time"

	"github.com/elastic/bchecker/metrics"
	"github.com/elastic/bchecker/out"
)

// DefaultGrace is how long workers are given to say goodbye on shutdown before they are killed.
const DefaultGrace = 3 * time.Second

type Option func(*Supervisor)

func WithLogger(logger *out.Logger) Option {
	return func(s *Supervisor) {
		s.logger = logger
	}
}

func WithGrace(grace time.Duration) Option {
	return func(s *Supervisor) {
		s.grace = grace
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Supervisor) {
		s.metrics = m
	}
}

// WithSignals makes the supervisor treat SIGTERM or SIGINT as a shutdown request.
func WithSignals() Option {
	return func(s *Supervisor) {
		s.signals = true
	}
}
