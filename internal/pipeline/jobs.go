package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/qqlww1987/KnowFlow-sub000/internal/coordmap"
	"github.com/qqlww1987/KnowFlow-sub000/internal/hierarchy"
	"github.com/qqlww1987/KnowFlow-sub000/internal/segment"
)

// JobStatus represents the state of an ingestion job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusConverting JobStatus = "converting"
	StatusChunking   JobStatus = "chunking"
	StatusGrouping   JobStatus = "grouping"
	StatusMapping    JobStatus = "mapping"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Job tracks one document through convert → segment → hierarchy →
// coordinate mapping.
type Job struct {
	mu sync.Mutex

	ID       string `json:"job_id"`
	DocID    string `json:"doc_id"`
	Filename string `json:"filename"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Request parameters.
	Strategy     segment.Strategy
	TargetTokens int
	MinTokens    int
	ParentBudget int
	BuildParents bool
	Layout       []coordmap.LayoutElement
	LayoutSystem coordmap.System

	// Internal: not serialized.
	fileData []byte

	// Results, populated by the worker.
	chunks        []segment.Chunk
	parents       []hierarchy.Parent
	relationships []hierarchy.Relationship
	positions     map[string][]coordmap.Position
	usedStrategy  segment.Strategy
	errors        []string
}

// Progress tracks processing progress.
type Progress struct {
	Chunks     int      `json:"chunks"`
	Parents    int      `json:"parents"`
	Positioned int      `json:"positioned_chunks"`
	Errors     []string `json:"errors"`
}

// Result is a read-only copy of a completed job's output.
type Result struct {
	Chunks        []segment.Chunk                `json:"chunks"`
	Parents       []hierarchy.Parent             `json:"parents,omitempty"`
	Relationships []hierarchy.Relationship       `json:"relationships,omitempty"`
	Positions     map[string][]coordmap.Position `json:"positions,omitempty"`
	UsedStrategy  segment.Strategy               `json:"used_strategy"`
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.UpdatedAt) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetFileData sets the raw file bytes for processing.
func (j *Job) SetFileData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = data
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

func (j *Job) setResult(res Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.chunks = res.Chunks
	j.parents = res.Parents
	j.relationships = res.Relationships
	j.positions = res.Positions
	j.usedStrategy = res.UsedStrategy
	j.Progress.Chunks = len(res.Chunks)
	j.Progress.Parents = len(res.Parents)
	j.Progress.Positioned = len(res.Positions)
	j.UpdatedAt = time.Now()
}

// Result returns a copy of the job's output, or nil until completion.
func (j *Job) Result() *Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status != StatusCompleted {
		return nil
	}
	return &Result{
		Chunks:        j.chunks,
		Parents:       j.parents,
		Relationships: j.relationships,
		Positions:     j.positions,
		UsedStrategy:  j.usedStrategy,
	}
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID       string    `json:"job_id"`
	DocID    string    `json:"doc_id"`
	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`
	Progress Progress  `json:"progress"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.Progress.Errors
	if errs == nil {
		errs = []string{}
	}
	return JobSnapshot{
		ID:       j.ID,
		DocID:    j.DocID,
		Status:   j.Status,
		Phase:    j.Phase,
		Filename: j.Filename,
		Progress: Progress{
			Chunks:     j.Progress.Chunks,
			Parents:    j.Progress.Parents,
			Positioned: j.Progress.Positioned,
			Errors:     errs,
		},
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
