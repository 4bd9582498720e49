package auth

import (
	"context"

	"github.com/google/uuid"
)

// Staff roles recognized by the platform.
const (
	RoleAdmin        = "admin"
	RoleReceptionist = "receptionist"
	RoleDoctor       = "doctor"
)

// Actor is the authenticated caller, resolved once by the auth middleware
// and injected into the request context. Scheduling code never looks up
// identity on its own.
type Actor struct {
	UserID   uuid.UUID
	Role     string
	ClinicID uuid.UUID
	// DoctorID is set only for callers with the doctor role.
	DoctorID uuid.UUID
}

type contextKey string

const actorKey contextKey = "actor"

// WithActor returns a context carrying the actor.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// ActorFromContext returns the actor stored in ctx. The second return is
// false for unauthenticated requests.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey).(Actor)
	return a, ok
}
