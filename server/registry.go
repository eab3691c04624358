package server

import (
	"sort"
	"time"
)

// WorkerRecord is the supervisor's bookkeeping about one live worker.
type WorkerRecord struct {
	ID      int
	Alive   bool
	Session string
	Started time.Time
	worker  Worker
}

// Registry maps worker ids to their records. Only the supervisor loop reads or writes it.
type Registry struct {
	records map[int]*WorkerRecord
}

func newRegistry() *Registry {
	return &Registry{records: make(map[int]*WorkerRecord)}
}

// put records a worker that has already started
func (r *Registry) put(w Worker, session string) *WorkerRecord {
	rec := &WorkerRecord{
		ID:      w.ID(),
		Alive:   true,
		Session: session,
		Started: time.Now(),
		worker:  w,
	}
	r.records[rec.ID] = rec
	return rec
}

func (r *Registry) get(id int) (*WorkerRecord, bool) {
	rec, ok := r.records[id]
	return rec, ok
}

// remove forgets a worker confirmed terminated. Unknown ids are ignored.
func (r *Registry) remove(id int) (*WorkerRecord, bool) {
	rec, ok := r.records[id]
	if !ok {
		return nil, false
	}
	rec.Alive = false
	delete(r.records, id)
	return rec, true
}

func (r *Registry) len() int {
	return len(r.records)
}

// ids returns the registered worker ids in ascending order
func (r *Registry) ids() []int {
	ids := make([]int, 0, len(r.records))
	for id := range r.records {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
