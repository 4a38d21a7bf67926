package postgres

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/appointment-api/internal/model"
	"github.com/jwalitptl/appointment-api/internal/repository"
)

var doctorFields = []string{
	"id", "doctor_name", "email", "phone_no", "gender", "city",
	"specialization", "consultation_fee", "fcm_token", "created_at",
}

// doctorColumns renders the doctor select list, optionally qualified by alias.
func doctorColumns(alias string) string {
	if alias == "" {
		return strings.Join(doctorFields, ", ")
	}
	cols := make([]string, len(doctorFields))
	for i, f := range doctorFields {
		cols[i] = alias + "." + f
	}
	return strings.Join(cols, ", ")
}

type doctorRepository struct {
	db *sqlx.DB
}

func NewDoctorRepository(db *sqlx.DB) repository.DoctorRepository {
	return &doctorRepository{db: db}
}

func (r *doctorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	query := `SELECT ` + doctorColumns("") + ` FROM doctors WHERE id = $1`

	var doctor model.Doctor
	if err := r.db.GetContext(ctx, &doctor, query, id); err != nil {
		return nil, notFound(err, "get doctor")
	}
	return &doctor, nil
}
