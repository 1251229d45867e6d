// Package jobs runs the SalesFlow API's scheduled background work on robfig/cron.
package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/salesflow/salesflow-api/internal/auth"
	"github.com/salesflow/salesflow-api/internal/config"
	"go.uber.org/zap"
)

const defaultJobTimeout = 5 * time.Minute

// Job is a named unit of scheduled work. The context carries the service token
// and the per-run deadline.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// JobStatus reports a registered job's schedule and last outcome
type JobStatus struct {
	Name      string     `json:"name"`
	Schedule  string     `json:"schedule"`
	Running   bool       `json:"running"`
	NextRun   *time.Time `json:"nextRun,omitempty"`
	LastRun   *time.Time `json:"lastRun,omitempty"`
	LastError string     `json:"lastError,omitempty"`
}

// Scheduler runs jobs on six-field cron expressions (with seconds). Every run gets
// its own timeout and authenticates to the backend with the service token.
type Scheduler struct {
	cron    *cron.Cron
	token   string
	timeout time.Duration
	logger  *zap.Logger

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	id       cron.EntryID
	schedule string
	running  bool
	lastRun  time.Time
	lastErr  error
}

// NewScheduler creates a scheduler using the job token and timeout from cfg
func NewScheduler(cfg *config.JobsConfig, logger *zap.Logger) *Scheduler {
	timeout := cfg.JobTimeout()
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	return &Scheduler{
		cron: cron.New(cron.WithSeconds(), cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
			cron.Recover(cron.DefaultLogger),
		)),
		token:   cfg.SnapshotToken,
		timeout: timeout,
		logger:  logger,
		entries: make(map[string]*entry),
	}
}

// Start starts the scheduler. Jobs registered before this call begin running.
func (s *Scheduler) Start() {
	s.logger.Info("starting job scheduler", zap.Int("jobs", len(s.Status())))
	s.cron.Start()
}

// Stop stops the scheduler; the returned context is done once running jobs finish
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("stopping job scheduler")
	return s.cron.Stop()
}

// Register schedules job under its name
func (s *Scheduler) Register(job Job, cronExpr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.entries[name]; exists {
		return fmt.Errorf("job %s already exists", name)
	}

	entryID, err := s.cron.AddFunc(cronExpr, func() { s.run(job) })
	if err != nil {
		return fmt.Errorf("failed to add job %s: %w", name, err)
	}
	s.entries[name] = &entry{id: entryID, schedule: cronExpr}

	if s.token == "" {
		s.logger.Warn("scheduled job has no service token; backend calls will be anonymous",
			zap.String("job_name", name))
	}
	s.logger.Info("added scheduled job",
		zap.String("job_name", name),
		zap.String("cron_expr", cronExpr),
		zap.Duration("timeout", s.timeout))
	return nil
}

// Status lists the registered jobs ordered by name
func (s *Scheduler) Status() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make([]JobStatus, 0, len(s.entries))
	for name, e := range s.entries {
		status := JobStatus{Name: name, Schedule: e.schedule, Running: e.running}
		if next := s.cron.Entry(e.id).Next; !next.IsZero() {
			status.NextRun = &next
		}
		if !e.lastRun.IsZero() {
			last := e.lastRun
			status.LastRun = &last
		}
		if e.lastErr != nil {
			status.LastError = e.lastErr.Error()
		}
		statuses = append(statuses, status)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses
}

func (s *Scheduler) run(job Job) {
	name := job.Name()
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	ctx = auth.WithToken(ctx, s.token)

	start := time.Now()
	s.update(name, func(e *entry) { e.running = true })
	s.logger.Info("running scheduled job", zap.String("job_name", name))

	err := job.Run(ctx)

	s.update(name, func(e *entry) {
		e.running = false
		e.lastRun = start
		e.lastErr = err
	})
	if err != nil {
		s.logger.Error("scheduled job failed",
			zap.String("job_name", name),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return
	}
	s.logger.Info("completed scheduled job",
		zap.String("job_name", name),
		zap.Duration("duration", time.Since(start)))
}

func (s *Scheduler) update(name string, fn func(*entry)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[name]; ok {
		fn(e)
	}
}
