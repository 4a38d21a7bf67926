package model

import (
	"time"

	"github.com/google/uuid"
)

type Doctor struct {
	ID              uuid.UUID `db:"id" json:"id"`
	Name            string    `db:"doctor_name" json:"doctorName"`
	Email           string    `db:"email" json:"email"`
	PhoneNo         string    `db:"phone_no" json:"phoneNo"`
	Gender          string    `db:"gender" json:"gender"`
	City            string    `db:"city" json:"city"`
	Specialization  string    `db:"specialization" json:"specialization"`
	ConsultationFee float64   `db:"consultation_fee" json:"consultationFee"`
	FCMToken        string    `db:"fcm_token" json:"fcmToken"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
}
