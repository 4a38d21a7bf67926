package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/appointment-api/internal/model"
	"github.com/jwalitptl/appointment-api/internal/repository"
	"github.com/jwalitptl/appointment-api/pkg/logger"
	"github.com/jwalitptl/appointment-api/pkg/push"
)

const ReminderJobName = "reminder_promotion"

// Deliverer sends a stored notification to its addressee.
type Deliverer interface {
	Deliver(ctx context.Context, n *model.Notification) push.Result
}

// ReminderJob promotes due reminders: it delivers each one and marks it sent.
// A crash between the two steps re-fires the reminder on the next tick.
type ReminderJob struct {
	repo      repository.NotificationRepository
	deliverer Deliverer
	batchSize int
	logger    *logger.Logger
}

func NewReminderJob(repo repository.NotificationRepository, deliverer Deliverer, batchSize int, log *logger.Logger) *ReminderJob {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &ReminderJob{
		repo:      repo,
		deliverer: deliverer,
		batchSize: batchSize,
		logger:    log.WithFields(map[string]interface{}{"job": ReminderJobName}),
	}
}

func (j *ReminderJob) Name() string { return ReminderJobName }

func (j *ReminderJob) Run(ctx context.Context, now time.Time) (Report, error) {
	report := Report{Job: ReminderJobName, Batches: 1}

	due, err := j.repo.ListDueReminders(ctx, now, j.batchSize)
	if err != nil {
		return report, fmt.Errorf("failed to list due reminders: %w", err)
	}

	for _, n := range due {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		res := j.deliverer.Deliver(ctx, n)
		if !res.Delivered {
			report.Failed++
		}

		// Delivery failures still mark the reminder sent.
		marked, err := j.repo.MarkSent(ctx, n.ID)
		if err != nil {
			return report, fmt.Errorf("failed to mark reminder %s sent: %w", n.ID, err)
		}
		if !marked {
			j.logger.Debug("reminder already handled", "notification_id", n.ID.String())
			continue
		}
		report.Processed++
	}

	return report, nil
}
