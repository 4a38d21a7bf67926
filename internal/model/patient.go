package model

import (
	"time"

	"github.com/google/uuid"
)

type Patient struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	PhoneNo   string    `db:"phone_no" json:"phoneNo"`
	Gender    string    `db:"gender" json:"gender"`
	City      string    `db:"city" json:"city"`
	FCMToken  string    `db:"fcm_token" json:"fcmToken"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type UpdateFCMTokenRequest struct {
	FCMToken string `json:"fcmToken" binding:"required"`
}
