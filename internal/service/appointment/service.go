package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/appointment-api/internal/model"
	"github.com/jwalitptl/appointment-api/internal/repository"
	"github.com/jwalitptl/appointment-api/internal/service/notification"
	apperrors "github.com/jwalitptl/appointment-api/pkg/errors"
	"github.com/jwalitptl/appointment-api/pkg/logger"
	"github.com/jwalitptl/appointment-api/pkg/metrics"
)

const (
	msgDoctorNotFoundOnSchedule = "Doctor not found!!"
	msgDoctorNotFound           = "Doctor not found."
	msgPatientNotFound          = "Patient not found"
	msgAppointmentNotFound      = "Appointment not found.."
	msgCancelNotFound           = "Appointment not found!!"
	msgNoAppointments           = "No appointments found!!"
	msgCancelledImmutable       = "Cannot modify a cancelled appointment"
)

// Event names a lifecycle transition that produces a doctor notification.
type Event string

const (
	EventRequested Event = "requested"
	EventUpdated   Event = "updated"
	EventCancelled Event = "cancelled"
)

type Config struct {
	// Location is where appointment dates and times are interpreted.
	Location *time.Location
	// PersistReminders stores a patient reminder when an appointment is scheduled.
	PersistReminders bool
}

// Result is returned by every transition.
type Result struct {
	Appointment  *model.Appointment
	Notification *model.Notification
	ReminderAt   time.Time
}

type ScheduleInput struct {
	PatientID      uuid.UUID
	DoctorID       uuid.UUID
	Date           string
	Time           string
	RemindMeBefore model.Minutes
}

type RescheduleInput struct {
	NewDate *string
	NewTime *string
}

type Service struct {
	appointments  repository.AppointmentRepository
	doctors       repository.DoctorRepository
	patients      repository.PatientRepository
	notifications notification.Service
	config        Config
	logger        *logger.Logger
	metrics       *metrics.Metrics
	now           func() time.Time
}

func NewService(
	appointments repository.AppointmentRepository,
	doctors repository.DoctorRepository,
	patients repository.PatientRepository,
	notifications notification.Service,
	cfg Config,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{
		appointments:  appointments,
		doctors:       doctors,
		patients:      patients,
		notifications: notifications,
		config:        cfg,
		logger:        log,
		metrics:       m,
		now:           time.Now,
	}
}

func (s *Service) Schedule(ctx context.Context, in ScheduleInput) (*Result, error) {
	doctor, err := s.doctors.Get(ctx, in.DoctorID)
	if err != nil {
		return nil, lookupError(err, msgDoctorNotFoundOnSchedule)
	}
	patient, err := s.patients.Get(ctx, in.PatientID)
	if err != nil {
		return nil, lookupError(err, msgPatientNotFound)
	}

	date, err := model.ParseDate(in.Date)
	if err != nil {
		return nil, apperrors.BadRequest(err.Error(), err)
	}
	apt := &model.Appointment{
		PatientID:      patient.ID,
		DoctorID:       doctor.ID,
		Date:           date,
		Time:           in.Time,
		Status:         model.AppointmentStatusPending,
		RemindMeBefore: in.RemindMeBefore,
	}
	reminderAt, err := apt.ReminderAt(s.config.Location)
	if err != nil {
		return nil, apperrors.BadRequest(err.Error(), err)
	}

	if err := s.appointments.Create(ctx, apt); err != nil {
		return nil, apperrors.Internal(err)
	}

	log := s.logger.WithFields(map[string]interface{}{
		"appointment_id": apt.ID.String(),
		"patient_id":     patient.ID.String(),
		"doctor_id":      doctor.ID.String(),
	})
	log.Info("appointment requested", "reminder_at", reminderAt.Format(time.RFC3339))

	n, err := s.emit(ctx, EventRequested, apt, patient, doctor, nil)
	if err != nil {
		return nil, err
	}

	if s.config.PersistReminders && apt.RemindMeBefore > 0 {
		if err := s.persistReminder(ctx, apt, patient, doctor, reminderAt); err != nil {
			log.Error(err, "failed to persist reminder")
			return nil, apperrors.As(err)
		}
	}

	return &Result{Appointment: apt, Notification: n, ReminderAt: reminderAt}, nil
}

func (s *Service) List(ctx context.Context, patientID uuid.UUID) ([]*model.Appointment, error) {
	if _, err := s.patients.Get(ctx, patientID); err != nil {
		return nil, lookupError(err, msgPatientNotFound)
	}
	list, err := s.appointments.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if len(list) == 0 {
		return nil, apperrors.NotFound(msgNoAppointments, nil)
	}
	return list, nil
}

func (s *Service) Reschedule(ctx context.Context, callerID, appointmentID uuid.UUID, in RescheduleInput) (*Result, error) {
	apt, patient, doctor, err := s.load(ctx, callerID, appointmentID, msgAppointmentNotFound)
	if err != nil {
		return nil, err
	}
	if apt.Status == model.AppointmentStatusCancelled {
		return nil, apperrors.BadRequest(msgCancelledImmutable, nil)
	}

	prev := *apt
	if in.NewDate != nil && *in.NewDate != "" {
		date, err := model.ParseDate(*in.NewDate)
		if err != nil {
			return nil, apperrors.BadRequest(err.Error(), err)
		}
		apt.Date = date
	}
	if in.NewTime != nil && *in.NewTime != "" {
		apt.Time = *in.NewTime
	}
	reminderAt, err := apt.ReminderAt(s.config.Location)
	if err != nil {
		return nil, apperrors.BadRequest(err.Error(), err)
	}

	if err := s.appointments.Update(ctx, apt); err != nil {
		return nil, apperrors.Internal(err)
	}

	n, err := s.emit(ctx, EventUpdated, apt, patient, doctor, &prev)
	if err != nil {
		return nil, err
	}

	s.followReminder(ctx, apt, patient, doctor, reminderAt)

	return &Result{Appointment: apt, Notification: n, ReminderAt: reminderAt}, nil
}

// Cancel is idempotent. Cancelling an already cancelled appointment still
// emits the notification.
func (s *Service) Cancel(ctx context.Context, callerID, appointmentID uuid.UUID) (*Result, error) {
	apt, patient, doctor, err := s.load(ctx, callerID, appointmentID, msgCancelNotFound)
	if err != nil {
		return nil, err
	}

	apt.Status = model.AppointmentStatusCancelled
	if err := s.appointments.Update(ctx, apt); err != nil {
		return nil, apperrors.Internal(err)
	}

	n, err := s.emit(ctx, EventCancelled, apt, patient, doctor, nil)
	if err != nil {
		return nil, err
	}

	if _, err := s.notifications.DropReminders(ctx, apt.ID); err != nil {
		s.logger.Error(err, "failed to drop reminders", "appointment_id", apt.ID.String())
	}

	return &Result{Appointment: apt, Notification: n}, nil
}

// load resolves patient, appointment and doctor in that order and checks
// that the appointment belongs to the caller.
func (s *Service) load(ctx context.Context, callerID, appointmentID uuid.UUID, notFound string) (*model.Appointment, *model.Patient, *model.Doctor, error) {
	patient, err := s.patients.Get(ctx, callerID)
	if err != nil {
		return nil, nil, nil, lookupError(err, msgPatientNotFound)
	}
	apt, err := s.appointments.Get(ctx, appointmentID)
	if err != nil {
		return nil, nil, nil, lookupError(err, notFound)
	}
	if apt.PatientID != patient.ID {
		return nil, nil, nil, apperrors.NotFound(notFound, nil)
	}
	doctor, err := s.doctors.Get(ctx, apt.DoctorID)
	if err != nil {
		return nil, nil, nil, lookupError(err, msgDoctorNotFound)
	}
	return apt, patient, doctor, nil
}

// emit builds the doctor notification for event, persists it and delivers it.
// The appointment write is not rolled back when this fails.
func (s *Service) emit(ctx context.Context, event Event, apt *model.Appointment, patient *model.Patient, doctor *model.Doctor, prev *model.Appointment) (*model.Notification, error) {
	n := &model.Notification{
		DoctorID:      &doctor.ID,
		AppointmentID: &apt.ID,
		Type:          model.NotificationTypeUpdate,
		FCMToken:      doctor.FCMToken,
	}
	switch event {
	case EventRequested:
		n.Title = "Appointment Request"
		n.Message = fmt.Sprintf("A new appointment has been requested by %s for %s at %s.",
			patient.Name, apt.Date, apt.Time)
	case EventUpdated:
		n.Title = "Appointment Updated"
		n.Message = fmt.Sprintf("The appointment with %s has been updated from %s at %s to %s at %s.",
			patient.Name, prev.Date, prev.Time, apt.Date, apt.Time)
	case EventCancelled:
		n.Title = "Appointment Cancelled"
		n.Message = fmt.Sprintf("The appointment with %s scheduled for %s at %s has been cancelled.",
			patient.Name, apt.Date, apt.Time)
	default:
		return nil, apperrors.Internal(fmt.Errorf("unknown appointment event %q", event))
	}

	if err := s.notifications.Create(ctx, n); err != nil {
		s.logger.Error(err, "failed to create notification",
			"appointment_id", apt.ID.String(), "event", string(event))
		return nil, apperrors.As(err)
	}
	s.metrics.Emitted.WithLabelValues(string(event)).Inc()
	s.notifications.Deliver(ctx, n)
	return n, nil
}

func (s *Service) persistReminder(ctx context.Context, apt *model.Appointment, patient *model.Patient, doctor *model.Doctor, at time.Time) error {
	reminder := &model.Notification{
		PatientID:     &patient.ID,
		AppointmentID: &apt.ID,
		Title:         "Appointment Reminder",
		Message:       reminderMessage(doctor, apt),
		FCMToken:      patient.FCMToken,
	}
	return s.notifications.ScheduleReminder(ctx, reminder, at)
}

// followReminder moves the pending reminder to the new instant. When the old
// one already fired or was read, a fresh reminder is stored as long as the
// new instant is still ahead.
func (s *Service) followReminder(ctx context.Context, apt *model.Appointment, patient *model.Patient, doctor *model.Doctor, at time.Time) {
	log := s.logger.WithFields(map[string]interface{}{"appointment_id": apt.ID.String()})

	moved, err := s.notifications.MoveReminders(ctx, apt.ID, at, reminderMessage(doctor, apt))
	if err != nil {
		log.Error(err, "failed to move reminders")
		return
	}
	if moved > 0 {
		log.Debug("reminders moved", "count", moved)
		return
	}
	if !s.config.PersistReminders || apt.RemindMeBefore <= 0 || !at.After(s.now()) {
		return
	}
	if err := s.persistReminder(ctx, apt, patient, doctor, at); err != nil {
		log.Error(err, "failed to reschedule reminder")
	}
}

func reminderMessage(doctor *model.Doctor, apt *model.Appointment) string {
	return fmt.Sprintf("Your appointment with %s is on %s at %s.", doctor.Name, apt.Date, apt.Time)
}

func lookupError(err error, notFound string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound(notFound, err)
	}
	return apperrors.Internal(err)
}
