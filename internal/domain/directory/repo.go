package directory

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a clinic, doctor, or service does not exist.
var ErrNotFound = errors.New("directory entry not found")

// Repository is the narrow read surface the scheduling core consumes.
// Clinic/doctor/service management is owned elsewhere.
type Repository interface {
	GetClinic(ctx context.Context, id uuid.UUID) (*Clinic, error)
	GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetService(ctx context.Context, id uuid.UUID) (*Service, error)
	// DoctorOffersService reports whether the doctor is linked to the
	// service in doctor_services.
	DoctorOffersService(ctx context.Context, doctorID, serviceID uuid.UUID) (bool, error)
	ListDoctorsByClinic(ctx context.Context, clinicID uuid.UUID, limit, offset int) ([]*Doctor, int, error)
}
