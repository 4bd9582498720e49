package token

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes the two self-service actions a token grants.
type Kind string

const (
	KindCancel     Kind = "cancel"
	KindReschedule Kind = "reschedule"
)

func (k Kind) Valid() bool {
	return k == KindCancel || k == KindReschedule
}

// TokenStatus tracks whether a token can still be redeemed.
type TokenStatus string

const (
	StatusActive  TokenStatus = "active"
	StatusUsed    TokenStatus = "used"
	StatusExpired TokenStatus = "expired"
)

// ActionToken maps to the action_tokens table. Each token is bound to one
// appointment, one action kind, and one use. The opaque Token string is the
// only credential a patient needs; it is never derivable from appointment
// data.
type ActionToken struct {
	ID            uuid.UUID   `db:"id" json:"id"`
	AppointmentID uuid.UUID   `db:"appointment_id" json:"appointment_id"`
	Kind          Kind        `db:"kind" json:"kind"`
	Token         string      `db:"token" json:"token"`
	Status        TokenStatus `db:"status" json:"status"`
	ExpiresAt     time.Time   `db:"expires_at" json:"expires_at"`
	UsedAt        *time.Time  `db:"used_at" json:"used_at,omitempty"`
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`
}

func (t *ActionToken) Validate() error {
	if t.AppointmentID == uuid.Nil {
		return fmt.Errorf("appointment_id is required")
	}
	if !t.Kind.Valid() {
		return fmt.Errorf("invalid token kind: %s", t.Kind)
	}
	if t.Token == "" {
		return fmt.Errorf("token value is required")
	}
	if t.ExpiresAt.IsZero() {
		return fmt.Errorf("expires_at is required")
	}
	return nil
}

// Pair is the cancel and reschedule token couple issued with a booking.
type Pair struct {
	Cancel     *ActionToken `json:"cancel"`
	Reschedule *ActionToken `json:"reschedule"`
}
