package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/appointment-api/internal/model"
	"github.com/jwalitptl/appointment-api/internal/repository"
	apperrors "github.com/jwalitptl/appointment-api/pkg/errors"
	"github.com/jwalitptl/appointment-api/pkg/logger"
	"github.com/jwalitptl/appointment-api/pkg/messaging"
	"github.com/jwalitptl/appointment-api/pkg/metrics"
	"github.com/jwalitptl/appointment-api/pkg/push"
)

const (
	msgNoNotifications = "No notifications found for you!!"
	msgNoUnread        = "No unread notifications found!!"
	msgNotFound        = "Notification not found"
	msgDeleteNotFound  = "No notification found"

	// MessageTypeCreated is the in-app envelope type for a delivered notification.
	MessageTypeCreated = "notification.created"
)

type Service interface {
	// Create persists n, defaulting status to pending.
	Create(ctx context.Context, n *model.Notification) error
	// ScheduleReminder persists n as a pending reminder due at remindAt.
	ScheduleReminder(ctx context.Context, n *model.Notification, remindAt time.Time) error
	// Deliver sends n by push and in-app fan-out. Failures are logged and
	// counted, never returned.
	Deliver(ctx context.Context, n *model.Notification) push.Result

	ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Notification, error)
	UnreadForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Notification, error)
	ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Notification, error)
	MarkRead(ctx context.Context, patientID, id uuid.UUID) (*model.Notification, error)
	Delete(ctx context.Context, patientID, id uuid.UUID) error

	// Reminder bookkeeping for appointment transitions.
	MoveReminders(ctx context.Context, appointmentID uuid.UUID, remindAt time.Time, message string) (int64, error)
	DropReminders(ctx context.Context, appointmentID uuid.UUID) (int64, error)
}

type service struct {
	repo       repository.NotificationRepository
	dispatcher push.Dispatcher
	broker     messaging.Broker
	channel    string
	logger     *logger.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// NewService wires the notification service. broker may be nil, in which
// case in-app fan-out is skipped.
func NewService(repo repository.NotificationRepository, dispatcher push.Dispatcher, broker messaging.Broker, channel string, log *logger.Logger, m *metrics.Metrics) Service {
	if channel == "" {
		channel = "notifications"
	}
	return &service{
		repo:       repo,
		dispatcher: dispatcher,
		broker:     broker,
		channel:    channel,
		logger:     log,
		metrics:    m,
		now:        time.Now,
	}
}

func (s *service) Create(ctx context.Context, n *model.Notification) error {
	if n.Status == "" {
		n.Status = model.NotificationStatusPending
	}
	if n.Type == "" {
		n.Type = model.NotificationTypeUpdate
	}
	if err := n.Validate(); err != nil {
		return apperrors.BadRequest(err.Error(), err)
	}

	n.ID = uuid.New()
	n.CreatedAt = s.now()

	if err := s.repo.Create(ctx, n); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

func (s *service) ScheduleReminder(ctx context.Context, n *model.Notification, remindAt time.Time) error {
	n.Type = model.NotificationTypeReminder
	n.Status = model.NotificationStatusPending
	n.RemindAt = &remindAt
	return s.Create(ctx, n)
}

func (s *service) Deliver(ctx context.Context, n *model.Notification) push.Result {
	kind, addressee := n.Addressee()
	log := s.logger.WithFields(map[string]interface{}{
		"notification_id": n.ID.String(),
		"addressee_kind":  kind,
		"addressee_id":    addressee.String(),
	})

	res := s.dispatcher.Dispatch(ctx, n.FCMToken, n.Title, n.Message)
	s.metrics.PushDispatch.WithLabelValues(res.Outcome()).Inc()
	switch {
	case res.Delivered:
		log.Debug("push delivered", "message_id", res.MessageID)
	case errors.Is(res.Err, push.ErrNoToken):
		log.Info("push skipped, no device token")
	default:
		log.Error(res.Err, "push dispatch failed")
	}

	if s.broker != nil {
		msg := messaging.Message{Type: MessageTypeCreated, Payload: n}
		if err := s.broker.Publish(ctx, s.channel, msg); err != nil {
			s.metrics.InAppPublish.WithLabelValues("failed").Inc()
			log.Error(err, "in-app publish failed")
		} else {
			s.metrics.InAppPublish.WithLabelValues("ok").Inc()
		}
	}

	return res
}

func (s *service) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Notification, error) {
	list, err := s.repo.ListByPatient(ctx, patientID, false)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if len(list) == 0 {
		return nil, apperrors.NotFound(msgNoNotifications, nil)
	}
	return list, nil
}

func (s *service) UnreadForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Notification, error) {
	list, err := s.repo.ListByPatient(ctx, patientID, true)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if len(list) == 0 {
		return nil, apperrors.NotFound(msgNoUnread, nil)
	}
	return list, nil
}

func (s *service) ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Notification, error) {
	list, err := s.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if len(list) == 0 {
		return nil, apperrors.NotFound(msgNoNotifications, nil)
	}
	return list, nil
}

func (s *service) MarkRead(ctx context.Context, patientID, id uuid.UUID) (*model.Notification, error) {
	n, err := s.repo.MarkRead(ctx, id, patientID, s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound(msgNotFound, err)
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return n, nil
}

func (s *service) Delete(ctx context.Context, patientID, id uuid.UUID) error {
	err := s.repo.DeleteForPatient(ctx, id, patientID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound(msgDeleteNotFound, err)
	}
	if err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

func (s *service) MoveReminders(ctx context.Context, appointmentID uuid.UUID, remindAt time.Time, message string) (int64, error) {
	n, err := s.repo.ReschedulePendingReminders(ctx, appointmentID, remindAt, message)
	if err != nil {
		return 0, fmt.Errorf("move reminders for %s: %w", appointmentID, err)
	}
	return n, nil
}

func (s *service) DropReminders(ctx context.Context, appointmentID uuid.UUID) (int64, error) {
	n, err := s.repo.DeletePendingReminders(ctx, appointmentID)
	if err != nil {
		return 0, fmt.Errorf("drop reminders for %s: %w", appointmentID, err)
	}
	return n, nil
}
