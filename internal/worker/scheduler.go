package worker

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jwalitptl/appointment-api/internal/config"
	"github.com/jwalitptl/appointment-api/internal/repository"
	"github.com/jwalitptl/appointment-api/pkg/logger"
	"github.com/jwalitptl/appointment-api/pkg/metrics"
)

// Scheduler runs registered jobs on cron specs evaluated in a fixed location.
type Scheduler struct {
	cron    *cron.Cron
	jobs    map[string]Job
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewScheduler(loc *time.Location, log *logger.Logger, m *metrics.Metrics) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(log),
			cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log)),
		),
		jobs:    make(map[string]Job),
		logger:  log,
		metrics: m,
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Register schedules job on spec. Job names must be unique.
func (s *Scheduler) Register(spec string, job Job) error {
	if _, exists := s.jobs[job.Name()]; exists {
		return fmt.Errorf("job %s already registered", job.Name())
	}
	if _, err := s.cron.AddFunc(spec, func() {
		_, _ = s.RunOnce(s.ctx, job, s.now())
	}); err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", spec, job.Name(), err)
	}
	s.jobs[job.Name()] = job
	return nil
}

// Job looks up a registered job by name.
func (s *Scheduler) Job(name string) (Job, bool) {
	job, ok := s.jobs[name]
	return job, ok
}

// JobNames lists registered jobs in name order.
func (s *Scheduler) JobNames() []string {
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunOnce executes job immediately, logging the outcome and recording metrics.
func (s *Scheduler) RunOnce(ctx context.Context, job Job, now time.Time) (Report, error) {
	start := time.Now()
	report, err := job.Run(ctx, now)
	elapsed := time.Since(start)

	name := job.Name()
	s.metrics.SweepDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	s.metrics.SweepItems.WithLabelValues(name, "processed").Add(float64(report.Processed))
	if report.Failed > 0 {
		s.metrics.SweepItems.WithLabelValues(name, "failed").Add(float64(report.Failed))
	}

	if err != nil {
		s.metrics.SweepRuns.WithLabelValues(name, "error").Inc()
		s.logger.Error(err, "sweep failed", "job", name, "processed", report.Processed, "duration", elapsed.String())
		return report, err
	}

	s.metrics.SweepRuns.WithLabelValues(name, "ok").Inc()
	s.logger.Info("sweep finished",
		"job", name,
		"processed", report.Processed,
		"failed", report.Failed,
		"batches", report.Batches,
		"duration", elapsed.String(),
	)
	return report, nil
}

func (s *Scheduler) Start() {
	s.logger.Info("scheduler started", "jobs", s.JobNames())
	s.cron.Start()
}

// Stop stops new ticks, cancels running jobs' context and waits for them to
// return or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dependencies are the stores and delivery path the sweep jobs operate on.
type Dependencies struct {
	Notifications repository.NotificationRepository
	Appointments  repository.AppointmentRepository
	Deliverer     Deliverer
}

// NewFromConfig builds a scheduler with the reminder, notification retention
// and appointment retention jobs registered.
func NewFromConfig(cfg config.SweepsConfig, loc *time.Location, deps Dependencies, log *logger.Logger, m *metrics.Metrics) (*Scheduler, error) {
	s := NewScheduler(loc, log, m)
	batch := BatchConfig{BatchSize: cfg.BatchSize, MaxBatches: cfg.MaxBatches}

	jobs := []struct {
		spec string
		job  Job
	}{
		{cfg.ReminderSpec, NewReminderJob(deps.Notifications, deps.Deliverer, cfg.BatchSize, log)},
		{cfg.NotificationRetentionSpec, NewNotificationRetentionJob(deps.Notifications, cfg.NotificationRetentionDays, batch)},
		{cfg.AppointmentRetentionSpec, NewAppointmentRetentionJob(deps.Appointments, cfg.AppointmentRetentionMonths, loc, batch)},
	}
	for _, j := range jobs {
		if err := s.Register(j.spec, j.job); err != nil {
			return nil, err
		}
	}
	return s, nil
}
