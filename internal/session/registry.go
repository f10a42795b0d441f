package session

import (
	"sort"
	"sync"
)

// DefaultRetention bounds how many terminal sessions the registry keeps
// around for late reads before evicting the oldest.
const DefaultRetention = 100

// Registry is the process-wide session table. All structural mutation is
// serialized through its mutex; session ids increase monotonically and are
// never reused, even after removal.
type Registry struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	nextID   int64
	retain   int
}

// NewRegistry constructs an empty registry retaining at most retain terminal
// sessions. A non-positive retain selects DefaultRetention.
func NewRegistry(retain int) *Registry {
	if retain <= 0 {
		retain = DefaultRetention
	}
	return &Registry{
		sessions: make(map[int64]*Session),
		nextID:   1,
		retain:   retain,
	}
}

// Create allocates the next session id, registers a new running session and
// returns it. Every execute call allocates a session, including ones whose
// spawn subsequently fails.
func (r *Registry) Create(command, shell, runner string, bufferSize int) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	sess := newSession(id, command, shell, runner, bufferSize)
	r.sessions[id] = sess
	return sess
}

// Get returns the session with the given id.
func (r *Registry) Get(id int64) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	return sess, ok
}

// List returns a point-in-time snapshot of all sessions ordered by id. The
// returned slice is owned by the caller; no lock is held while it iterates.
func (r *Registry) List() []*Session {
	r.mu.Lock()
	out := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		out = append(out, sess)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Remove deletes the session and releases its handle reference. Removing an
// unknown id is a no-op.
func (r *Registry) Remove(id int64) {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if ok {
		sess.release()
	}
}

// Prune evicts the oldest terminal sessions beyond the retention cap.
// Running sessions are never pruned. The engine calls this after each
// finalization.
func (r *Registry) Prune() {
	r.mu.Lock()
	var terminal []*Session
	for _, sess := range r.sessions {
		if sess.Status().Terminal() {
			terminal = append(terminal, sess)
		}
	}
	excess := len(terminal) - r.retain
	var evicted []*Session
	if excess > 0 {
		sort.Slice(terminal, func(i, j int) bool { return terminal[i].ID < terminal[j].ID })
		evicted = terminal[:excess]
		for _, sess := range evicted {
			delete(r.sessions, sess.ID)
		}
	}
	r.mu.Unlock()

	for _, sess := range evicted {
		sess.release()
	}
}

// Len reports the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
