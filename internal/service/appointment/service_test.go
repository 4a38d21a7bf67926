package appointment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/appointment-api/internal/model"
	"github.com/jwalitptl/appointment-api/internal/repository/memory"
	"github.com/jwalitptl/appointment-api/internal/service/notification"
	apperrors "github.com/jwalitptl/appointment-api/pkg/errors"
	"github.com/jwalitptl/appointment-api/pkg/logger"
	"github.com/jwalitptl/appointment-api/pkg/metrics"
	"github.com/jwalitptl/appointment-api/pkg/push"
)

type recordingDispatcher struct {
	tokens []string
	titles []string
}

func (d *recordingDispatcher) Dispatch(_ context.Context, token, title, _ string) push.Result {
	d.tokens = append(d.tokens, token)
	d.titles = append(d.titles, title)
	return push.Result{Delivered: true}
}

type fixture struct {
	svc        *Service
	store      *memory.Store
	dispatcher *recordingDispatcher
	patient    *model.Patient
	doctor     *model.Doctor
	loc        *time.Location
}

func newFixture(t *testing.T, persistReminders bool) *fixture {
	t.Helper()
	store := memory.NewStore()
	patient := &model.Patient{ID: uuid.New(), Name: "Asha", FCMToken: "patient-token"}
	doctor := &model.Doctor{ID: uuid.New(), Name: "Dr. Rao", FCMToken: "doctor-token"}
	store.AddPatient(patient)
	store.AddDoctor(doctor)

	d := &recordingDispatcher{}
	notifications := notification.NewService(store.Notifications(), d, nil, "", logger.Nop(), metrics.Nop())
	loc := time.FixedZone("IST", 5*3600+1800)
	svc := NewService(store.Appointments(), store.Doctors(), store.Patients(), notifications,
		Config{Location: loc, PersistReminders: persistReminders}, logger.Nop(), metrics.Nop())

	return &fixture{svc: svc, store: store, dispatcher: d, patient: patient, doctor: doctor, loc: loc}
}

func (f *fixture) schedule(t *testing.T) *Result {
	t.Helper()
	res, err := f.svc.Schedule(context.Background(), ScheduleInput{
		PatientID:      f.patient.ID,
		DoctorID:       f.doctor.ID,
		Date:           "2025-06-01",
		Time:           "10:00",
		RemindMeBefore: 30,
	})
	require.NoError(t, err)
	return res
}

func reminders(store *memory.Store) []*model.Notification {
	var out []*model.Notification
	for _, n := range store.AllNotifications() {
		if n.Type == model.NotificationTypeReminder {
			out = append(out, n)
		}
	}
	return out
}

func TestSchedule(t *testing.T) {
	f := newFixture(t, true)
	res := f.schedule(t)

	assert.Equal(t, model.AppointmentStatusPending, res.Appointment.Status)
	assert.Equal(t, time.Date(2025, 6, 1, 9, 30, 0, 0, f.loc), res.ReminderAt)

	n := res.Notification
	require.NotNil(t, n.DoctorID)
	assert.Equal(t, f.doctor.ID, *n.DoctorID)
	assert.Nil(t, n.PatientID)
	assert.Equal(t, model.NotificationTypeUpdate, n.Type)
	assert.Equal(t, model.NotificationStatusPending, n.Status)
	assert.Equal(t, "Appointment Request", n.Title)
	assert.Equal(t, "A new appointment has been requested by Asha for 2025-06-01 at 10:00.", n.Message)
	assert.Equal(t, []string{"doctor-token"}, f.dispatcher.tokens)

	rem := reminders(f.store)
	require.Len(t, rem, 1)
	assert.Equal(t, f.patient.ID, *rem[0].PatientID)
	assert.Equal(t, "patient-token", rem[0].FCMToken)
	assert.True(t, rem[0].RemindAt.Equal(res.ReminderAt))
	assert.Equal(t, "Your appointment with Dr. Rao is on 2025-06-01 at 10:00.", rem[0].Message)
}

func TestScheduleWithoutReminderPersistence(t *testing.T) {
	f := newFixture(t, false)
	f.schedule(t)
	assert.Empty(t, reminders(f.store))
}

func TestScheduleZeroLeadTimeSkipsReminder(t *testing.T) {
	f := newFixture(t, true)
	_, err := f.svc.Schedule(context.Background(), ScheduleInput{
		PatientID: f.patient.ID,
		DoctorID:  f.doctor.ID,
		Date:      "2025-06-01",
		Time:      "10:00",
	})
	require.NoError(t, err)
	assert.Empty(t, reminders(f.store))
}

func TestScheduleUnknownDoctor(t *testing.T) {
	f := newFixture(t, true)
	_, err := f.svc.Schedule(context.Background(), ScheduleInput{
		PatientID: f.patient.ID,
		DoctorID:  uuid.New(),
		Date:      "2025-06-01",
		Time:      "10:00",
	})
	appErr := apperrors.As(err)
	assert.Equal(t, 404, appErr.HTTPStatus())
	assert.Equal(t, "Doctor not found!!", appErr.Message)
	assert.Zero(t, f.store.AppointmentCount())
}

func TestScheduleUnknownPatient(t *testing.T) {
	f := newFixture(t, true)
	_, err := f.svc.Schedule(context.Background(), ScheduleInput{
		PatientID: uuid.New(),
		DoctorID:  f.doctor.ID,
		Date:      "2025-06-01",
		Time:      "10:00",
	})
	assert.Equal(t, "Patient not found", apperrors.As(err).Message)
}

func TestScheduleNotificationFailureKeepsAppointment(t *testing.T) {
	f := newFixture(t, true)
	f.store.FailOn("notifications.Create", errors.New("insert failed"))

	_, err := f.svc.Schedule(context.Background(), ScheduleInput{
		PatientID: f.patient.ID,
		DoctorID:  f.doctor.ID,
		Date:      "2025-06-01",
		Time:      "10:00",
	})
	appErr := apperrors.As(err)
	assert.Equal(t, 500, appErr.HTTPStatus())
	assert.Contains(t, appErr.Message, "insert failed")
	assert.Equal(t, 1, f.store.AppointmentCount())
	assert.Empty(t, f.dispatcher.tokens)
}

func TestList(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.svc.List(ctx, f.patient.ID)
	assert.Equal(t, "No appointments found!!", apperrors.As(err).Message)

	_, err = f.svc.List(ctx, uuid.New())
	assert.Equal(t, "Patient not found", apperrors.As(err).Message)

	f.schedule(t)
	list, err := f.svc.List(ctx, f.patient.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRescheduleOnlyDate(t *testing.T) {
	f := newFixture(t, true)
	scheduled := f.schedule(t)
	newDate := "2025-06-03"

	res, err := f.svc.Reschedule(context.Background(), f.patient.ID, scheduled.Appointment.ID, RescheduleInput{NewDate: &newDate})
	require.NoError(t, err)

	assert.Equal(t, "2025-06-03", res.Appointment.Date.String())
	assert.Equal(t, "10:00", res.Appointment.Time)
	assert.Equal(t, "Appointment Updated", res.Notification.Title)
	assert.Equal(t, "The appointment with Asha has been updated from 2025-06-01 at 10:00 to 2025-06-03 at 10:00.",
		res.Notification.Message)

	stored := f.store.Appointment(scheduled.Appointment.ID)
	assert.Equal(t, "2025-06-03", stored.Date.String())

	rem := reminders(f.store)
	require.Len(t, rem, 1)
	assert.True(t, rem[0].RemindAt.Equal(time.Date(2025, 6, 3, 9, 30, 0, 0, f.loc)))
	assert.Equal(t, "Your appointment with Dr. Rao is on 2025-06-03 at 10:00.", rem[0].Message)
}

func TestRescheduleOnlyTime(t *testing.T) {
	f := newFixture(t, true)
	scheduled := f.schedule(t)
	newTime := "11:15"

	res, err := f.svc.Reschedule(context.Background(), f.patient.ID, scheduled.Appointment.ID, RescheduleInput{NewTime: &newTime})
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01", res.Appointment.Date.String())
	assert.Equal(t, "11:15", res.Appointment.Time)
	assert.Equal(t, time.Date(2025, 6, 1, 10, 45, 0, 0, f.loc), res.ReminderAt)
}

func TestRescheduleNotOwned(t *testing.T) {
	f := newFixture(t, true)
	scheduled := f.schedule(t)

	other := &model.Patient{ID: uuid.New(), Name: "Ravi"}
	f.store.AddPatient(other)

	_, err := f.svc.Reschedule(context.Background(), other.ID, scheduled.Appointment.ID, RescheduleInput{})
	assert.Equal(t, "Appointment not found..", apperrors.As(err).Message)
}

func TestRescheduleUnknownAppointment(t *testing.T) {
	f := newFixture(t, true)
	_, err := f.svc.Reschedule(context.Background(), f.patient.ID, uuid.New(), RescheduleInput{})
	assert.Equal(t, 404, apperrors.As(err).HTTPStatus())
}

func TestRescheduleCancelled(t *testing.T) {
	f := newFixture(t, true)
	scheduled := f.schedule(t)
	ctx := context.Background()

	_, err := f.svc.Cancel(ctx, f.patient.ID, scheduled.Appointment.ID)
	require.NoError(t, err)

	newTime := "12:00"
	_, err = f.svc.Reschedule(ctx, f.patient.ID, scheduled.Appointment.ID, RescheduleInput{NewTime: &newTime})
	appErr := apperrors.As(err)
	assert.Equal(t, 400, appErr.HTTPStatus())
	assert.Equal(t, "Cannot modify a cancelled appointment", appErr.Message)
}

func TestCancelIsIdempotent(t *testing.T) {
	f := newFixture(t, true)
	scheduled := f.schedule(t)
	ctx := context.Background()

	first, err := f.svc.Cancel(ctx, f.patient.ID, scheduled.Appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, first.Appointment.Status)
	assert.Equal(t, "Appointment Cancelled", first.Notification.Title)
	assert.Equal(t, "The appointment with Asha scheduled for 2025-06-01 at 10:00 has been cancelled.",
		first.Notification.Message)
	assert.Empty(t, reminders(f.store))

	second, err := f.svc.Cancel(ctx, f.patient.ID, scheduled.Appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, second.Appointment.Status)

	assert.Equal(t, []string{"Appointment Request", "Appointment Cancelled", "Appointment Cancelled"}, f.dispatcher.titles)
}

func TestCancelMissingDoctor(t *testing.T) {
	f := newFixture(t, true)
	id := uuid.New()
	f.store.PutAppointment(&model.Appointment{
		ID:        id,
		PatientID: f.patient.ID,
		DoctorID:  uuid.New(),
		Time:      "10:00",
		Status:    model.AppointmentStatusPending,
	})

	_, err := f.svc.Cancel(context.Background(), f.patient.ID, id)
	assert.Equal(t, "Doctor not found.", apperrors.As(err).Message)
}

func TestRescheduleEmptyFieldsAreIgnored(t *testing.T) {
	f := newFixture(t, true)
	scheduled := f.schedule(t)
	empty, newTime := "", "11:00"

	res, err := f.svc.Reschedule(context.Background(), f.patient.ID, scheduled.Appointment.ID,
		RescheduleInput{NewDate: &empty, NewTime: &newTime})
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01", res.Appointment.Date.String())
	assert.Equal(t, "11:00", res.Appointment.Time)
}

func pendingReminders(store *memory.Store) []*model.Notification {
	var out []*model.Notification
	for _, n := range reminders(store) {
		if n.Status == model.NotificationStatusPending {
			out = append(out, n)
		}
	}
	return out
}

func TestRescheduleAfterReminderFiredStoresNewReminder(t *testing.T) {
	f := newFixture(t, true)
	scheduled := f.schedule(t)
	ctx := context.Background()

	rem := reminders(f.store)
	require.Len(t, rem, 1)
	marked, err := f.store.Notifications().MarkSent(ctx, rem[0].ID)
	require.NoError(t, err)
	require.True(t, marked)

	f.svc.now = func() time.Time { return time.Date(2025, 6, 2, 8, 0, 0, 0, f.loc) }
	newDate := "2025-06-10"
	_, err = f.svc.Reschedule(ctx, f.patient.ID, scheduled.Appointment.ID, RescheduleInput{NewDate: &newDate})
	require.NoError(t, err)

	pending := pendingReminders(f.store)
	require.Len(t, pending, 1)
	assert.True(t, pending[0].RemindAt.Equal(time.Date(2025, 6, 10, 9, 30, 0, 0, f.loc)))
	assert.Equal(t, "Your appointment with Dr. Rao is on 2025-06-10 at 10:00.", pending[0].Message)
	assert.Equal(t, f.patient.ID, *pending[0].PatientID)
	assert.Len(t, reminders(f.store), 2)
}

func TestRescheduleAfterReminderFiredIntoPast(t *testing.T) {
	f := newFixture(t, true)
	scheduled := f.schedule(t)
	ctx := context.Background()

	rem := reminders(f.store)
	require.Len(t, rem, 1)
	_, err := f.store.Notifications().MarkSent(ctx, rem[0].ID)
	require.NoError(t, err)

	f.svc.now = func() time.Time { return time.Date(2025, 6, 2, 8, 0, 0, 0, f.loc) }
	newTime := "12:00"
	_, err = f.svc.Reschedule(ctx, f.patient.ID, scheduled.Appointment.ID, RescheduleInput{NewTime: &newTime})
	require.NoError(t, err)

	assert.Empty(t, pendingReminders(f.store))
}

func TestCancelNotOwned(t *testing.T) {
	f := newFixture(t, true)
	scheduled := f.schedule(t)

	other := &model.Patient{ID: uuid.New(), Name: "Ravi"}
	f.store.AddPatient(other)

	_, err := f.svc.Cancel(context.Background(), other.ID, scheduled.Appointment.ID)
	appErr := apperrors.As(err)
	assert.Equal(t, 404, appErr.HTTPStatus())
	assert.Equal(t, "Appointment not found!!", appErr.Message)
}
