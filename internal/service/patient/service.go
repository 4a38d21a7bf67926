package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jwalitptl/appointment-api/internal/model"
	"github.com/jwalitptl/appointment-api/internal/repository"
	apperrors "github.com/jwalitptl/appointment-api/pkg/errors"
	"github.com/jwalitptl/appointment-api/pkg/logger"
)

const (
	msgPatientNotFound  = "Patient not found"
	msgDoctorNotFound   = "Doctor not found."
	msgUserNotFound     = "User not found!!"
	msgAlreadyFavorite  = "Doctor is already in favorites"
	msgNoFavoriteDoctor = "No doctors marked as favorites"
)

type Service struct {
	patients repository.PatientRepository
	doctors  repository.DoctorRepository
	logger   *logger.Logger
}

func NewService(patients repository.PatientRepository, doctors repository.DoctorRepository, log *logger.Logger) *Service {
	return &Service{
		patients: patients,
		doctors:  doctors,
		logger:   log,
	}
}

// UpdateFCMToken stores the device token. Notifications created earlier keep
// the token they were created with.
func (s *Service) UpdateFCMToken(ctx context.Context, patientID uuid.UUID, token string) error {
	err := s.patients.UpdateFCMToken(ctx, patientID, token)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound(msgPatientNotFound, err)
	}
	if err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

func (s *Service) MarkFavorite(ctx context.Context, patientID, doctorID uuid.UUID) ([]*model.Doctor, error) {
	if _, err := s.patients.Get(ctx, patientID); err != nil {
		return nil, lookupError(err, msgPatientNotFound)
	}
	if _, err := s.doctors.Get(ctx, doctorID); err != nil {
		return nil, lookupError(err, msgDoctorNotFound)
	}

	added, err := s.patients.AddFavorite(ctx, patientID, doctorID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if !added {
		return nil, apperrors.BadRequest(msgAlreadyFavorite, nil)
	}

	favorites, err := s.patients.ListFavorites(ctx, patientID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return favorites, nil
}

func (s *Service) Favorites(ctx context.Context, patientID uuid.UUID) ([]*model.Doctor, error) {
	favorites, err := s.patients.ListFavorites(ctx, patientID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if len(favorites) == 0 {
		return nil, apperrors.NotFound(msgNoFavoriteDoctor, nil)
	}
	return favorites, nil
}

// DeleteAccount removes the patient and everything the patient owns in one
// transaction.
func (s *Service) DeleteAccount(ctx context.Context, patientID uuid.UUID) error {
	err := s.patients.DeleteCascade(ctx, patientID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound(msgUserNotFound, err)
	}
	if err != nil {
		s.logger.Error(err, "account deletion failed", "patient_id", patientID.String())
		return apperrors.Internal(err)
	}
	s.logger.Info("account deleted", "patient_id", patientID.String())
	return nil
}

func lookupError(err error, notFound string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound(notFound, err)
	}
	return apperrors.Internal(err)
}
