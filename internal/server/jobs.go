package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/legendai/legendai/internal/pipeline"
	"github.com/legendai/legendai/internal/subtitle"
)

type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type JobResult struct {
	Format   string         `json:"format"`
	Content  string         `json:"content"`
	Cues     []subtitle.Cue `json:"cues"`
	Language string         `json:"language,omitempty"`
	Duration float64        `json:"duration"`
}

// Job is an asynchronous transcription request. Values handed out by the
// store are snapshots.
type Job struct {
	ID          string            `json:"id"`
	FileName    string            `json:"file_name"`
	Status      JobStatus         `json:"status"`
	Progress    pipeline.Progress `json:"progress"`
	Error       string            `json:"error,omitempty"`
	Result      *JobResult        `json:"result,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// JobStore keeps jobs in memory and notifies subscribers of changes.
type JobStore struct {
	mu          sync.Mutex
	jobs        map[string]*Job
	subscribers map[string]map[chan struct{}]struct{}
	now         func() time.Time
}

func NewJobStore() *JobStore {
	return &JobStore{
		jobs:        make(map[string]*Job),
		subscribers: make(map[string]map[chan struct{}]struct{}),
		now:         time.Now,
	}
}

func (s *JobStore) Create(fileName string) Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	job := &Job{
		ID:        uuid.New().String(),
		FileName:  fileName,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.jobs[job.ID] = job
	return *job
}

func (s *JobStore) Get(id string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Update applies fn to the job and wakes its subscribers. Terminal jobs are
// not modified.
func (s *JobStore) Update(id string, fn func(*Job)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok || job.Status.Terminal() {
		return false
	}

	fn(job)
	job.UpdatedAt = s.now()
	if job.Status.Terminal() {
		completed := job.UpdatedAt
		job.CompletedAt = &completed
	}

	for ch := range s.subscribers[id] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return true
}

func (s *JobStore) SetProgress(id string, p pipeline.Progress) {
	s.Update(id, func(j *Job) {
		j.Status = StatusProcessing
		j.Progress = p
	})
}

func (s *JobStore) Complete(id string, result *JobResult) {
	s.Update(id, func(j *Job) {
		j.Status = StatusCompleted
		j.Result = result
		j.Progress.Stage = pipeline.StageDone
	})
}

func (s *JobStore) Fail(id string, err error) {
	s.Update(id, func(j *Job) {
		j.Status = StatusFailed
		j.Error = err.Error()
	})
}

// Subscribe returns a channel that receives a signal after each update of
// the job. Signals coalesce; readers should re-read the job.
func (s *JobStore) Subscribe(id string) (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan struct{}, 1)
	if s.subscribers[id] == nil {
		s.subscribers[id] = make(map[chan struct{}]struct{})
	}
	s.subscribers[id][ch] = struct{}{}

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers[id], ch)
		if len(s.subscribers[id]) == 0 {
			delete(s.subscribers, id)
		}
	}
}

// Prune removes terminal jobs completed more than retention ago.
func (s *JobStore) Prune(retention time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-retention)
	removed := 0
	for id, job := range s.jobs {
		if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}
