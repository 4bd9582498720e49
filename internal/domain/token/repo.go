package token

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no token matches the presented value.
var ErrNotFound = errors.New("action token not found")

// Repository is the persistence port for action tokens.
type Repository interface {
	Create(ctx context.Context, t *ActionToken) error

	// GetByToken looks a token up by its opaque value regardless of status.
	GetByToken(ctx context.Context, token string) (*ActionToken, error)

	// Consume atomically marks an active, unexpired token of the given kind
	// as used and returns it. It returns ErrNotFound when no such row flips;
	// callers disambiguate with GetByToken.
	Consume(ctx context.Context, token string, kind Kind, now time.Time) (*ActionToken, error)

	// ExpireForAppointment marks all remaining active tokens for the
	// appointment as expired.
	ExpireForAppointment(ctx context.Context, appointmentID uuid.UUID) error

	ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*ActionToken, error)
}
