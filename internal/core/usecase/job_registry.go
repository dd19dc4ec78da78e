package usecase

import "sync"

type jobFlags struct {
	paused    bool
	cancelled bool
}

// JobRegistry holds the per-job pause/cancel flags shared between section
// workers and the external signal surface. It is an explicitly owned object
// wired at startup, not an ambient singleton; one registry instance serves
// one worker process. Reads and writes are serialized by the mutex, which
// gives the sequentially consistent visibility the section loop relies on.
type JobRegistry struct {
	mu   sync.RWMutex
	jobs map[string]jobFlags
}

func NewJobRegistry() *JobRegistry {
	return &JobRegistry{jobs: make(map[string]jobFlags)}
}

func (r *JobRegistry) Pause(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	flags := r.jobs[jobID]
	flags.paused = true
	r.jobs[jobID] = flags
}

func (r *JobRegistry) Resume(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	flags := r.jobs[jobID]
	flags.paused = false
	r.jobs[jobID] = flags
}

func (r *JobRegistry) Cancel(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	flags := r.jobs[jobID]
	flags.cancelled = true
	r.jobs[jobID] = flags
}

func (r *JobRegistry) IsPaused(jobID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.jobs[jobID].paused
}

func (r *JobRegistry) IsCancelled(jobID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.jobs[jobID].cancelled
}

// Clear drops all flags for a job. Called once the job reaches a terminal
// state so a later retry of the same id starts clean.
func (r *JobRegistry) Clear(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, jobID)
}
