package cron

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakePruner struct {
	cutoff time.Time
	calls  int
}

func (p *fakePruner) PruneBefore(cutoff time.Time) (int64, error) {
	p.calls++
	p.cutoff = cutoff
	return 3, nil
}

type fakeCleaner struct {
	calls int
	err   error
}

func (c *fakeCleaner) CleanupOldAuditFiles() error {
	c.calls++
	return c.err
}

func TestAddJobValidatesSchedule(t *testing.T) {
	s := NewScheduler()
	noop := func(context.Context) error { return nil }

	for _, schedule := range []string{"@daily", "0 3 * * *", "*/30 * * * * *"} {
		if _, err := s.AddJob("ok", schedule, noop); err != nil {
			t.Fatalf("schedule %q: %v", schedule, err)
		}
	}
	if _, err := s.AddJob("bad", "every tuesday", noop); err == nil {
		t.Fatalf("expected invalid cron expression error")
	}
	if _, err := s.AddJob("nil", "@daily", nil); err == nil {
		t.Fatalf("expected error for a job without a task")
	}
	if len(s.ListJobs()) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(s.ListJobs()))
	}
	if got := normalizeCron("0 3 * * *"); got != "0 0 3 * * *" {
		t.Fatalf("normalizeCron = %q", got)
	}
}

func TestRunNowRecordsOutcome(t *testing.T) {
	s := NewScheduler()
	pruner := &fakePruner{}
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)

	job, err := s.AddJob("prune-history", "@daily", PruneHistoryTask(pruner, 30, func() time.Time { return now }))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.RunNow(job.ID); err != nil {
		t.Fatalf("run: %v", err)
	}
	if pruner.calls != 1 || !pruner.cutoff.Equal(now.AddDate(0, 0, -30)) {
		t.Fatalf("unexpected prune call: %d %v", pruner.calls, pruner.cutoff)
	}

	cleaner := &fakeCleaner{err: errors.New("disk full")}
	failing, err := s.AddJob("cleanup-audit", "@daily", CleanupAuditTask(cleaner))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.RunNow(failing.ID); err == nil {
		t.Fatalf("expected job error")
	}

	for _, j := range s.ListJobs() {
		if j.Runs != 1 || j.LastRun == nil {
			t.Fatalf("job %s should have run once: %#v", j.Name, j)
		}
		if j.Name == "cleanup-audit" && j.LastError != "disk full" {
			t.Fatalf("expected last error recorded, got %q", j.LastError)
		}
	}

	if err := s.RemoveJob(job.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.RunNow(job.ID); err == nil {
		t.Fatalf("removed job should not run")
	}
}

func TestPruneHistoryDisabled(t *testing.T) {
	pruner := &fakePruner{}
	if err := PruneHistoryTask(pruner, 0, nil)(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if pruner.calls != 0 {
		t.Fatalf("retention 0 must not prune")
	}
}
