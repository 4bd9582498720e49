package availability

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a window or time-off entry does not exist.
var ErrNotFound = errors.New("availability entry not found")

type WindowRepository interface {
	Create(ctx context.Context, w *Window) error
	GetByID(ctx context.Context, id uuid.UUID) (*Window, error)
	Update(ctx context.Context, w *Window) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Window, int, error)
	// ListForDay returns active windows for the doctor on the given weekday,
	// ordered by start minute. Effective-range filtering happens in the
	// service, which knows the concrete date.
	ListForDay(ctx context.Context, doctorID uuid.UUID, dayOfWeek int) ([]*Window, error)
}

type TimeOffRepository interface {
	Create(ctx context.Context, t *TimeOff) error
	GetByID(ctx context.Context, id uuid.UUID) (*TimeOff, error)
	Update(ctx context.Context, t *TimeOff) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*TimeOff, int, error)
	// ListIntersecting returns blackouts overlapping [from, to), ordered by
	// start time.
	ListIntersecting(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*TimeOff, error)
}
