package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/appointment-api/internal/model"
	"github.com/jwalitptl/appointment-api/internal/repository"
)

const notificationColumns = `id, patient_id, doctor_id, appointment_id, title, message,
		notification_type, status, fcm_token, created_at, read_at, remind_at`

type notificationRepository struct {
	*BaseRepository
}

func NewNotificationRepository(base *BaseRepository) repository.NotificationRepository {
	return &notificationRepository{
		BaseRepository: base,
	}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	query := `
		INSERT INTO notifications (
			id, patient_id, doctor_id, appointment_id, title, message,
			notification_type, status, fcm_token, created_at, read_at, remind_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, query,
		n.ID,
		n.PatientID,
		n.DoctorID,
		n.AppointmentID,
		n.Title,
		n.Message,
		n.Type,
		n.Status,
		n.FCMToken,
		n.CreatedAt,
		n.ReadAt,
		n.RemindAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, unreadOnly bool) ([]*model.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE patient_id = $1`
	if unreadOnly {
		query += ` AND status <> 'read'`
	}
	query += ` ORDER BY created_at DESC`

	var notifications []*model.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list patient notifications: %w", err)
	}
	return notifications, nil
}

func (r *notificationRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Notification, error) {
	query := `SELECT ` + notificationColumns + `
		FROM notifications
		WHERE doctor_id = $1
		ORDER BY created_at DESC`

	var notifications []*model.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, doctorID); err != nil {
		return nil, fmt.Errorf("failed to list doctor notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead only touches notifications addressed to patientID.
func (r *notificationRepository) MarkRead(ctx context.Context, id, patientID uuid.UUID, at time.Time) (*model.Notification, error) {
	query := `
		UPDATE notifications
		SET status = 'read', read_at = $3
		WHERE id = $1 AND patient_id = $2
		RETURNING ` + notificationColumns

	var n model.Notification
	if err := r.db.GetContext(ctx, &n, query, id, patientID, at); err != nil {
		return nil, notFound(err, "mark notification read")
	}
	return &n, nil
}

func (r *notificationRepository) DeleteForPatient(ctx context.Context, id, patientID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE id = $1 AND patient_id = $2`, id, patientID)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return affected(result)
}

func (r *notificationRepository) ListDueReminders(ctx context.Context, now time.Time, limit int) ([]*model.Notification, error) {
	query := `SELECT ` + notificationColumns + `
		FROM notifications
		WHERE notification_type = 'reminder'
		AND status = 'pending'
		AND remind_at <= $1
		ORDER BY remind_at ASC
		LIMIT $2`

	var notifications []*model.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, now, limit); err != nil {
		return nil, fmt.Errorf("failed to list due reminders: %w", err)
	}
	return notifications, nil
}

// MarkSent promotes a pending notification. It reports false when the row
// already left pending, e.g. read by the patient or sent by a parallel sweep.
func (r *notificationRepository) MarkSent(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET status = 'sent' WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark notification sent: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *notificationRepository) ReschedulePendingReminders(ctx context.Context, appointmentID uuid.UUID, remindAt time.Time, message string) (int64, error) {
	query := `
		UPDATE notifications
		SET remind_at = $2, message = $3
		WHERE appointment_id = $1
		AND notification_type = 'reminder'
		AND status = 'pending'
	`
	result, err := r.db.ExecContext(ctx, query, appointmentID, remindAt, message)
	if err != nil {
		return 0, fmt.Errorf("failed to reschedule reminders: %w", err)
	}
	return result.RowsAffected()
}

func (r *notificationRepository) DeletePendingReminders(ctx context.Context, appointmentID uuid.UUID) (int64, error) {
	query := `
		DELETE FROM notifications
		WHERE appointment_id = $1
		AND notification_type = 'reminder'
		AND status = 'pending'
	`
	result, err := r.db.ExecContext(ctx, query, appointmentID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete reminders: %w", err)
	}
	return result.RowsAffected()
}

func (r *notificationRepository) DeleteCreatedOnOrBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	query := `
		DELETE FROM notifications
		WHERE id IN (
			SELECT id FROM notifications
			WHERE created_at <= $1
			ORDER BY created_at ASC
			LIMIT $2
		)
	`
	result, err := r.db.ExecContext(ctx, query, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old notifications: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}
