package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/appointment-api/internal/model"
	"github.com/jwalitptl/appointment-api/internal/repository"
)

type patientRepository struct {
	*BaseRepository
}

func NewPatientRepository(base *BaseRepository) repository.PatientRepository {
	return &patientRepository{BaseRepository: base}
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	query := `
		SELECT id, name, email, phone_no, gender, city, fcm_token, created_at
		FROM patients
		WHERE id = $1
	`
	var patient model.Patient
	if err := r.db.GetContext(ctx, &patient, query, id); err != nil {
		return nil, notFound(err, "get patient")
	}
	return &patient, nil
}

func (r *patientRepository) UpdateFCMToken(ctx context.Context, id uuid.UUID, token string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE patients SET fcm_token = $1 WHERE id = $2`, token, id)
	if err != nil {
		return fmt.Errorf("failed to update fcm token: %w", err)
	}
	return affected(result)
}

func (r *patientRepository) AddFavorite(ctx context.Context, patientID, doctorID uuid.UUID) (bool, error) {
	query := `
		INSERT INTO patient_favorite_doctors (patient_id, doctor_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (patient_id, doctor_id) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query, patientID, doctorID, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to add favorite doctor: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *patientRepository) ListFavorites(ctx context.Context, patientID uuid.UUID) ([]*model.Doctor, error) {
	query := `SELECT ` + doctorColumns("d") + `
		FROM patient_favorite_doctors f
		JOIN doctors d ON d.id = f.doctor_id
		WHERE f.patient_id = $1
		ORDER BY f.created_at ASC`

	var doctors []*model.Doctor
	if err := r.db.SelectContext(ctx, &doctors, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list favorite doctors: %w", err)
	}
	return doctors, nil
}

// DeleteCascade removes OTPs, appointments, wallet, notifications and
// favorites before the patient row, all in one transaction.
func (r *patientRepository) DeleteCascade(ctx context.Context, patientID uuid.UUID) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		steps := []struct {
			what  string
			query string
		}{
			{"otps", `DELETE FROM otps WHERE user_id = $1`},
			{"appointments", `DELETE FROM appointments WHERE patient_id = $1`},
			{"wallet", `DELETE FROM wallets WHERE user_id = $1`},
			{"notifications", `DELETE FROM notifications WHERE patient_id = $1`},
			{"favorites", `DELETE FROM patient_favorite_doctors WHERE patient_id = $1`},
		}
		for _, step := range steps {
			if _, err := tx.ExecContext(ctx, step.query, patientID); err != nil {
				return fmt.Errorf("failed to delete %s: %w", step.what, err)
			}
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM patients WHERE id = $1`, patientID)
		if err != nil {
			return fmt.Errorf("failed to delete patient: %w", err)
		}
		return affected(result)
	})
}
