package web

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"zigbee-go-setup/internal/calibration"
)

// Job states
const (
	JobRunning = "running"
	JobDone    = "done"
	JobFailed  = "failed"
)

// Job tracks one asynchronous calibration run.
type Job struct {
	ID         string             `json:"id"`
	Device     string             `json:"device"`
	State      string             `json:"state"`
	Error      string             `json:"error,omitempty"`
	Report     calibration.Report `json:"report,omitempty"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt *time.Time         `json:"finished_at,omitempty"`
}

type jobRegistry struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func newJobRegistry() *jobRegistry {
	return &jobRegistry{jobs: make(map[string]*Job)}
}

func (r *jobRegistry) create(device string) *Job {
	job := &Job{
		ID:        uuid.NewString(),
		Device:    device,
		State:     JobRunning,
		StartedAt: time.Now().UTC(),
	}
	r.mu.Lock()
	r.jobs[job.ID] = job
	r.mu.Unlock()
	return job
}

func (r *jobRegistry) get(id string) *Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if job, ok := r.jobs[id]; ok {
		clone := *job
		return &clone
	}
	return nil
}

func (r *jobRegistry) finish(id string, report calibration.Report, err error) {
	now := time.Now().UTC()
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return
	}
	job.FinishedAt = &now
	if err != nil {
		job.State = JobFailed
		job.Error = err.Error()
		return
	}
	job.State = JobDone
	job.Report = report
}
