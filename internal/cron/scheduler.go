// Package cron runs periodic maintenance jobs for the server.
package cron

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/kayz/slidefit/internal/logger"
)

// jobTimeout bounds a single job run.
const jobTimeout = 5 * time.Minute

// Scheduler manages scheduled jobs
type Scheduler struct {
	cron *cron.Cron
	jobs map[string]*Job
	mu   sync.RWMutex
}

// NewScheduler creates a new scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()), // Support second-level precision
		jobs: make(map[string]*Job),
	}
}

// normalizeCron prepends "0 " to standard 5-field cron expressions
// so they work with the 6-field (with seconds) parser.
func normalizeCron(schedule string) string {
	if len(strings.Fields(schedule)) == 5 {
		return "0 " + schedule
	}
	return schedule
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info("[Cron] Scheduler started with %d jobs", s.count())
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("[Cron] Scheduler stopped")
}

// AddJob validates and schedules a job
func (s *Scheduler) AddJob(name, schedule string, task Task) (*Job, error) {
	if task == nil {
		return nil, fmt.Errorf("job %s has no task", name)
	}
	job := &Job{
		ID:        uuid.New().String(),
		Name:      name,
		Schedule:  normalizeCron(strings.TrimSpace(schedule)),
		Enabled:   true,
		CreatedAt: time.Now(),
		Task:      task,
	}

	// Validate cron expression using the 6-field (with seconds) parser
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(job.Schedule); err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	jobID := job.ID
	entryID, err := s.cron.AddFunc(job.Schedule, func() {
		s.executeJob(jobID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule job: %w", err)
	}
	job.EntryID = entryID
	s.jobs[job.ID] = job

	logger.Info("[Cron] Job created: %s (%s) - schedule: %s", job.ID, job.Name, job.Schedule)
	return job.Clone(), nil
}

// RemoveJob removes a job from the scheduler
func (s *Scheduler) RemoveJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[id]
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}
	if job.EntryID != 0 {
		s.cron.Remove(job.EntryID)
	}
	delete(s.jobs, id)

	logger.Info("[Cron] Job removed: %s (%s)", job.ID, job.Name)
	return nil
}

// RunNow executes a job immediately, outside its schedule.
func (s *Scheduler) RunNow(id string) error {
	s.mu.RLock()
	_, exists := s.jobs[id]
	s.mu.RUnlock()
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}
	return s.executeJob(id)
}

// ListJobs returns copies of all jobs ordered by name.
func (s *Scheduler) ListJobs() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job.Clone())
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })
	return jobs
}

func (s *Scheduler) executeJob(id string) error {
	s.mu.RLock()
	job, exists := s.jobs[id]
	var task Task
	var name string
	if exists {
		task, name = job.Task, job.Name
	}
	s.mu.RUnlock()
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	err := task(ctx)

	s.mu.Lock()
	if job, ok := s.jobs[id]; ok {
		now := time.Now()
		job.LastRun = &now
		job.Runs++
		job.LastError = ""
		if err != nil {
			job.LastError = err.Error()
		}
	}
	s.mu.Unlock()

	if err != nil {
		logger.Error("[Cron] Job %s failed: %v", name, err)
		return err
	}
	logger.Debug("[Cron] Job %s finished in %s", name, time.Since(start).Round(time.Millisecond))
	return nil
}

func (s *Scheduler) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
