package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusRead    NotificationStatus = "read"
)

type NotificationType string

const (
	NotificationTypeUpdate   NotificationType = "update"
	NotificationTypeReminder NotificationType = "reminder"
)

var ErrNotificationAddressee = errors.New("notification must address exactly one of patient or doctor")

// Notification is addressed to exactly one patient or doctor. FCMToken is the
// device token captured when the record was created.
type Notification struct {
	ID            uuid.UUID          `db:"id" json:"id"`
	PatientID     *uuid.UUID         `db:"patient_id" json:"patientId,omitempty"`
	DoctorID      *uuid.UUID         `db:"doctor_id" json:"doctorId,omitempty"`
	AppointmentID *uuid.UUID         `db:"appointment_id" json:"appointmentId,omitempty"`
	Title         string             `db:"title" json:"title"`
	Message       string             `db:"message" json:"message"`
	Type          NotificationType   `db:"notification_type" json:"notificationType"`
	Status        NotificationStatus `db:"status" json:"status"`
	FCMToken      string             `db:"fcm_token" json:"fcmToken"`
	CreatedAt     time.Time          `db:"created_at" json:"createdAt"`
	ReadAt        *time.Time         `db:"read_at" json:"readAt"`
	RemindAt      *time.Time         `db:"remind_at" json:"remindAt,omitempty"`
}

func (n *Notification) Validate() error {
	if (n.PatientID == nil) == (n.DoctorID == nil) {
		return ErrNotificationAddressee
	}
	if n.Title == "" || n.Message == "" {
		return errors.New("notification title and message are required")
	}
	if n.Type == NotificationTypeReminder && n.RemindAt == nil {
		return errors.New("reminder notification requires remindAt")
	}
	return nil
}

// Addressee returns a log-friendly description of the recipient.
func (n *Notification) Addressee() (kind string, id uuid.UUID) {
	if n.PatientID != nil {
		return "patient", *n.PatientID
	}
	if n.DoctorID != nil {
		return "doctor", *n.DoctorID
	}
	return "", uuid.Nil
}
