package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/appointment-api/internal/model"
	"github.com/jwalitptl/appointment-api/internal/repository"
)

const (
	NotificationRetentionJobName = "notification_retention"
	AppointmentRetentionJobName  = "appointment_retention"
)

// NotificationRetentionJob deletes notifications created on or before
// now minus Days, whatever their status.
type NotificationRetentionJob struct {
	repo  repository.NotificationRepository
	days  int
	batch BatchConfig
}

func NewNotificationRetentionJob(repo repository.NotificationRepository, days int, batch BatchConfig) *NotificationRetentionJob {
	if days <= 0 {
		days = 7
	}
	return &NotificationRetentionJob{repo: repo, days: days, batch: batch.normalized()}
}

func (j *NotificationRetentionJob) Name() string { return NotificationRetentionJobName }

// Cutoff is inclusive.
func (j *NotificationRetentionJob) Cutoff(now time.Time) time.Time {
	return now.AddDate(0, 0, -j.days)
}

func (j *NotificationRetentionJob) Run(ctx context.Context, now time.Time) (Report, error) {
	report := Report{Job: NotificationRetentionJobName}
	cutoff := j.Cutoff(now)

	err := deleteInBatches(ctx, j.batch, &report, func(ctx context.Context, limit int) (int64, error) {
		return j.repo.DeleteCreatedOnOrBefore(ctx, cutoff, limit)
	})
	if err != nil {
		return report, fmt.Errorf("failed to purge notifications created before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return report, nil
}

// AppointmentRetentionJob deletes appointments dated on or before the civil
// date Months ago in the scheduling location, whatever their status.
type AppointmentRetentionJob struct {
	repo   repository.AppointmentRepository
	months int
	loc    *time.Location
	batch  BatchConfig
}

func NewAppointmentRetentionJob(repo repository.AppointmentRepository, months int, loc *time.Location, batch BatchConfig) *AppointmentRetentionJob {
	if months <= 0 {
		months = 1
	}
	if loc == nil {
		loc = time.UTC
	}
	return &AppointmentRetentionJob{repo: repo, months: months, loc: loc, batch: batch.normalized()}
}

func (j *AppointmentRetentionJob) Name() string { return AppointmentRetentionJobName }

func (j *AppointmentRetentionJob) Cutoff(now time.Time) model.Date {
	return model.NewDate(now.In(j.loc).AddDate(0, -j.months, 0))
}

func (j *AppointmentRetentionJob) Run(ctx context.Context, now time.Time) (Report, error) {
	report := Report{Job: AppointmentRetentionJobName}
	cutoff := j.Cutoff(now)

	err := deleteInBatches(ctx, j.batch, &report, func(ctx context.Context, limit int) (int64, error) {
		return j.repo.DeleteOnOrBefore(ctx, cutoff, limit)
	})
	if err != nil {
		return report, fmt.Errorf("failed to purge appointments dated on or before %s: %w", cutoff, err)
	}
	return report, nil
}
