// Package jobs implements the in-memory scheduler for deferred,
// notification-style work: a pending store of jobs plus a sweep loop that
// extracts due jobs on a fixed cadence and dispatches them by type.
//
// The store is deliberately volatile. Jobs do not survive a process restart,
// a job is handed to its handler at most once, and a failed dispatch is
// discarded rather than retried.
package jobs

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job is one deferred unit of work: a type tag routing it through the
// dispatch table, a payload of named fields, and the time it becomes due.
type Job struct {
	ID      string
	Type    string
	Payload map[string]string
	RunAt   time.Time
	Created time.Time
}

// Store holds pending jobs. All methods are safe for concurrent use; the
// sweep loop and any caller of Schedule, Delete, or Query share it.
type Store struct {
	mu   sync.Mutex
	jobs map[string]Job
}

// NewStore builds an empty pending store.
func NewStore() *Store {
	return &Store{jobs: make(map[string]Job)}
}

// Schedule adds a job of jobType that becomes due at runAt and returns its
// generated id. The payload map is copied, so the caller keeps ownership of
// its argument.
func (s *Store) Schedule(jobType string, payload map[string]string, runAt time.Time) string {
	p := make(map[string]string, len(payload))
	for k, v := range payload {
		p[k] = v
	}
	job := Job{
		ID:      uuid.NewString(),
		Type:    jobType,
		Payload: p,
		RunAt:   runAt,
		Created: time.Now().UTC(),
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	jobsScheduled.WithLabelValues(jobType).Inc()
	return job.ID
}

// Delete removes a pending job when both type and id match. It reports
// whether a job was removed; deleting an unknown or already-taken job is a
// no-op.
func (s *Store) Delete(jobType, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.Type != jobType {
		return false
	}
	delete(s.jobs, id)
	return true
}

// Query scans the pending set and returns jobs of jobType whose payload
// holds value under field. It supports lookups such as "all pending
// notifications for user X". Returned payloads are copies; mutating them
// does not touch the pending jobs.
func (s *Store) Query(jobType, field, value string) []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Job
	for _, job := range s.jobs {
		if job.Type == jobType && job.Payload[field] == value {
			p := make(map[string]string, len(job.Payload))
			for k, v := range job.Payload {
				p[k] = v
			}
			job.Payload = p
			out = append(out, job)
		}
	}
	return out
}

// TakeDue atomically removes and returns every job whose due time is at or
// before now, ordered by due time. Because due jobs leave the pending set
// before dispatch starts, a concurrent sweep or query can never re-select
// them.
func (s *Store) TakeDue(now time.Time) []Job {
	s.mu.Lock()
	var due []Job
	for id, job := range s.jobs {
		if !job.RunAt.After(now) {
			due = append(due, job)
			delete(s.jobs, id)
		}
	}
	s.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].RunAt.Before(due[j].RunAt) })
	return due
}

// Len returns the number of pending jobs.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}
