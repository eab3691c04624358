// Package workgroup runs a set of functions as a unit: when the first one returns, all the others are asked to stop.
package workgroup

import "sync"

// Group is a set of goroutines whose lifetimes are bound together.
// The zero value is ready to use.
type Group struct {
	fns []func(<-chan struct{}) error
}

// Add adds fn to the group. fn must return once the stop channel it receives is closed.
func (g *Group) Add(fn func(<-chan struct{}) error) {
	g.fns = append(g.fns, fn)
}

// Run runs every function in its own goroutine and blocks until the first one returns.
// It then closes the stop channel, waits for the rest and returns the first function's result.
func (g *Group) Run() error {
	if len(g.fns) == 0 {
		return nil
	}

	stop := make(chan struct{})
	result := make(chan error, len(g.fns))

	var wg sync.WaitGroup
	wg.Add(len(g.fns))
	for _, fn := range g.fns {
		go func(fn func(<-chan struct{}) error) {
			defer wg.Done()
			result <- fn(stop)
		}(fn)
	}

	defer wg.Wait()
	defer close(stop)
	return <-result
}
