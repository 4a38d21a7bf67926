package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/appointment-api/internal/model"
)

// ErrNotFound is returned when a lookup or guarded write matches no row.
var ErrNotFound = errors.New("record not found")

type DoctorRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
}

type PatientRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	UpdateFCMToken(ctx context.Context, id uuid.UUID, token string) error
	// AddFavorite reports false when the doctor is already a favorite.
	AddFavorite(ctx context.Context, patientID, doctorID uuid.UUID) (bool, error)
	ListFavorites(ctx context.Context, patientID uuid.UUID) ([]*model.Doctor, error)
	// DeleteCascade removes the patient together with everything the patient owns.
	DeleteCascade(ctx context.Context, patientID uuid.UUID) error
}

type AppointmentRepository interface {
	Create(ctx context.Context, appointment *model.Appointment) error
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	Update(ctx context.Context, appointment *model.Appointment) error
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Appointment, error)
	// DeleteOnOrBefore removes at most limit appointments dated on or before cutoff.
	DeleteOnOrBefore(ctx context.Context, cutoff model.Date, limit int) (int64, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, notification *model.Notification) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, unreadOnly bool) ([]*model.Notification, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Notification, error)
	MarkRead(ctx context.Context, id, patientID uuid.UUID, at time.Time) (*model.Notification, error)
	DeleteForPatient(ctx context.Context, id, patientID uuid.UUID) error

	// Reminder lifecycle
	ListDueReminders(ctx context.Context, now time.Time, limit int) ([]*model.Notification, error)
	MarkSent(ctx context.Context, id uuid.UUID) (bool, error)
	ReschedulePendingReminders(ctx context.Context, appointmentID uuid.UUID, remindAt time.Time, message string) (int64, error)
	DeletePendingReminders(ctx context.Context, appointmentID uuid.UUID) (int64, error)

	// DeleteCreatedOnOrBefore removes at most limit notifications created on or before cutoff.
	DeleteCreatedOnOrBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}
