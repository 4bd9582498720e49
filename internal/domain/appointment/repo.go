package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when an appointment does not exist.
var ErrNotFound = errors.New("appointment not found")

// ErrSlotTaken is returned when an insert or reschedule would overlap
// another slot-holding appointment for the same doctor. The repository maps
// the unique-index violation to this error so callers never see SQLSTATEs.
var ErrSlotTaken = errors.New("slot already taken")

// SearchParams narrows appointment listings.
type SearchParams struct {
	ClinicID uuid.UUID
	DoctorID *uuid.UUID
	Status   *Status
	From     *time.Time
	To       *time.Time
}

// Repository is the persistence port for appointments.
type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	Search(ctx context.Context, params SearchParams, limit, offset int) ([]*Appointment, int, error)

	// FindConflicting returns slot-holding appointments for the doctor whose
	// [start, end) interval overlaps the given one, excluding excludeID (use
	// uuid.Nil to exclude nothing).
	FindConflicting(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID uuid.UUID) ([]*Appointment, error)

	// ListActiveIntervals returns slot-holding appointments for the doctor
	// intersecting [from, to).
	ListActiveIntervals(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*Appointment, error)

	// ListOverdue returns pending and confirmed appointments whose start time
	// is before the cutoff, for the no-show sweep.
	ListOverdue(ctx context.Context, before time.Time) ([]*Appointment, error)

	// CountByStatus folds appointments starting within [from, to) into
	// per-status counts.
	CountByStatus(ctx context.Context, clinicID uuid.UUID, doctorID *uuid.UUID, from, to time.Time) (map[Status]int, error)
}
