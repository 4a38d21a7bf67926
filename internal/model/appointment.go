package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "Pending"
	AppointmentStatusConfirmed AppointmentStatus = "Confirmed"
	AppointmentStatusCancelled AppointmentStatus = "Cancelled"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusConfirmed, AppointmentStatusCancelled:
		return true
	}
	return false
}

type Appointment struct {
	ID             uuid.UUID         `db:"id" json:"id"`
	PatientID      uuid.UUID         `db:"patient_id" json:"patient"`
	DoctorID       uuid.UUID         `db:"doctor_id" json:"doctor"`
	Date           Date              `db:"appointment_date" json:"date"`
	Time           string            `db:"appointment_time" json:"time"`
	Status         AppointmentStatus `db:"status" json:"status"`
	RemindMeBefore Minutes           `db:"remind_me_before" json:"remindMeBefore"`
	CreatedAt      time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time         `db:"updated_at" json:"updatedAt"`
}

// StartsAt is the appointment instant in loc.
func (a *Appointment) StartsAt(loc *time.Location) (time.Time, error) {
	return a.Date.At(a.Time, loc)
}

// ReminderAt is StartsAt minus the requested lead time.
func (a *Appointment) ReminderAt(loc *time.Location) (time.Time, error) {
	start, err := a.StartsAt(loc)
	if err != nil {
		return time.Time{}, err
	}
	return start.Add(-a.RemindMeBefore.Duration()), nil
}

// ScheduleAppointmentRequest is the body of POST /appointments/:doctorId.
// Status is accepted for compatibility and ignored.
type ScheduleAppointmentRequest struct {
	Date           string  `json:"date" binding:"required,date"`
	Time           string  `json:"time" binding:"required,clock"`
	Status         string  `json:"status"`
	RemindMeBefore Minutes `json:"remindMeBefore"`
}

// RescheduleAppointmentRequest carries the optional new date and time. An
// empty value leaves the field unchanged.
type RescheduleAppointmentRequest struct {
	NewDate string `json:"newDate" binding:"omitempty,date"`
	NewTime string `json:"newTime" binding:"omitempty,clock"`
}
