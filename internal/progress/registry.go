// Package progress tracks in-flight translation jobs and arbitrates
// access to the single global translation slot. At most one job may be
// ACTIVE at a time; everything else sits PENDING in FIFO order behind the
// Gate.
package progress

import (
	"sync"
	"time"
)

// State is a job's position in its lifecycle.
type State string

const (
	Pending State = "pending"
	Active  State = "active"
	Done    State = "done"
	Failed  State = "failed"
)

// Job is a snapshot of one translation job's progress.
type Job struct {
	ID          string
	Fingerprint string
	Lang        string
	State       State
	Total       int
	Completed   int
	StartedAt   time.Time
	UpdatedAt   time.Time
	Err         string
}

// Registry tracks every job this process knows about and owns the single
// Gate that enforces the at-most-one-ACTIVE invariant.
type Registry struct {
	mu   sync.Mutex
	jobs map[string]*Job
	gate *Gate
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		jobs: make(map[string]*Job),
		gate: NewGate(),
	}
}

// Gate returns the registry's translation gate, for callers that need to
// acquire it directly (the subtitle orchestrator, around the engine's
// LLM work).
func (r *Registry) Gate() *Gate {
	return r.gate
}

// Begin registers a new job in the PENDING state. Callers transition it
// to ACTIVE themselves, once they've acquired the gate, via MarkActive.
func (r *Registry) Begin(id, fingerprint, lang string, total int) *Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	job := &Job{
		ID:          id,
		Fingerprint: fingerprint,
		Lang:        lang,
		State:       Pending,
		Total:       total,
		StartedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	r.jobs[id] = job
	return job
}

// MarkActive flips a job from PENDING to ACTIVE. It is a no-op if the job
// is unknown or already past PENDING.
func (r *Registry) MarkActive(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.State != Pending {
		return
	}
	job.State = Active
	job.UpdatedAt = time.Now()
}

// Update records completed-of-total progress for a job. It is a no-op for
// an unknown job id, so a stray update after End (or for a job that was
// never registered) cannot resurrect or corrupt a snapshot.
func (r *Registry) Update(id string, completed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return
	}
	job.Completed = completed
	job.UpdatedAt = time.Now()
}

// End marks a job DONE (or FAILED, if cause is non-nil) and removes it from
// the registry: only in-flight (pending/active) jobs are tracked, so a
// finished job drops out of SnapshotAll/ActiveCount immediately rather than
// accumulating forever. It is idempotent: once a job id has been removed, a
// second End call for the same id is a no-op, so a deferred End racing an
// explicit one is harmless.
func (r *Registry) End(id string, cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return
	}
	if cause != nil {
		job.State = Failed
		job.Err = cause.Error()
	} else {
		job.State = Done
	}
	job.UpdatedAt = time.Now()
	delete(r.jobs, id)
}

// Snapshot returns a copy of a single job's state.
func (r *Registry) Snapshot(id string) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// SnapshotAll returns a copy of every known job.
func (r *Registry) SnapshotAll() []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, *j)
	}
	return out
}

// ActiveCount reports how many jobs are currently ACTIVE. The at-most-
// one-ACTIVE invariant means callers can treat any value above 1 as a bug.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, j := range r.jobs {
		if j.State == Active {
			n++
		}
	}
	return n
}
