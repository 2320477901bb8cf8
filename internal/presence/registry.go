// Package presence tracks which worker connections are currently reachable
// for live dispatch, partitioned by service category. It is purely
// in-memory; the durable worker row stays the source of truth for
// eligibility and the gateway re-validates against it on every event.
package presence

import (
	"sync"

	"github.com/google/uuid"
)

// Entry is one reachable worker connection inside a category partition.
type Entry struct {
	ConnID     string
	WorkerID   uuid.UUID
	CategoryID uuid.UUID
}

// Registry maps category → set of connections, plus a reverse index from
// connection ID to its entry. All operations hold the mutex only long
// enough to mutate or copy; iteration always happens on snapshots.
type Registry struct {
	mu         sync.Mutex
	byCategory map[uuid.UUID]map[string]Entry
	byConn     map[string]Entry
}

func NewRegistry() *Registry {
	return &Registry{
		byCategory: make(map[uuid.UUID]map[string]Entry),
		byConn:     make(map[string]Entry),
	}
}

// Register adds the connection to the category partition. Registering an
// already-present connection under the same category is a no-op; under a
// different category it is first removed from the old partition.
func (r *Registry) Register(connID string, workerID, categoryID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byConn[connID]; ok {
		if prev.CategoryID == categoryID {
			return
		}
		r.removeLocked(prev)
	}

	e := Entry{ConnID: connID, WorkerID: workerID, CategoryID: categoryID}
	part, ok := r.byCategory[categoryID]
	if !ok {
		part = make(map[string]Entry)
		r.byCategory[categoryID] = part
	}
	part[connID] = e
	r.byConn[connID] = e
}

// Unregister removes the connection from whatever partition the reverse
// index points to. Removing an absent connection is a no-op.
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byConn[connID]
	if !ok {
		return
	}
	r.removeLocked(e)
}

func (r *Registry) removeLocked(e Entry) {
	delete(r.byConn, e.ConnID)
	if part, ok := r.byCategory[e.CategoryID]; ok {
		delete(part, e.ConnID)
		if len(part) == 0 {
			delete(r.byCategory, e.CategoryID)
		}
	}
}

// MembersOf returns a snapshot of the category partition. Callers iterate
// the copy outside the registry lock.
func (r *Registry) MembersOf(categoryID uuid.UUID) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	part := r.byCategory[categoryID]
	out := make([]Entry, 0, len(part))
	for _, e := range part {
		out = append(out, e)
	}
	return out
}

// Snapshot returns every registered entry across all partitions. Used by
// the periodic reconciliation sweep.
func (r *Registry) Snapshot() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, 0, len(r.byConn))
	for _, e := range r.byConn {
		out = append(out, e)
	}
	return out
}

// Lookup reports the entry for a connection, if registered.
func (r *Registry) Lookup(connID string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byConn[connID]
	return e, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byConn)
}
