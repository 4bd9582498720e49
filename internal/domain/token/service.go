package token

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrUsed is returned when a token has already been redeemed.
var ErrUsed = errors.New("action token already used")

// ErrExpired is returned when a token's validity window has passed or the
// appointment reached a terminal state.
var ErrExpired = errors.New("action token expired")

// ErrWrongKind is returned when a token is presented to the endpoint for the
// other action.
var ErrWrongKind = errors.New("action token does not grant this action")

const tokenBytes = 32

// Service issues and redeems single-use action tokens.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// IssuePair mints a cancel and a reschedule token for the appointment, both
// expiring at the scheduled start.
func (s *Service) IssuePair(ctx context.Context, appointmentID uuid.UUID, expiresAt time.Time) (*Pair, error) {
	cancel, err := s.issue(ctx, appointmentID, KindCancel, expiresAt)
	if err != nil {
		return nil, err
	}
	reschedule, err := s.issue(ctx, appointmentID, KindReschedule, expiresAt)
	if err != nil {
		return nil, err
	}
	return &Pair{Cancel: cancel, Reschedule: reschedule}, nil
}

func (s *Service) issue(ctx context.Context, appointmentID uuid.UUID, kind Kind, expiresAt time.Time) (*ActionToken, error) {
	value, err := generateToken()
	if err != nil {
		return nil, err
	}
	t := &ActionToken{
		AppointmentID: appointmentID,
		Kind:          kind,
		Token:         value,
		Status:        StatusActive,
		ExpiresAt:     expiresAt,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Redeem consumes a token of the given kind. The consume is a single
// conditional update, so two concurrent redeems of the same token can never
// both succeed. On failure the specific reason is looked up so callers can
// report it.
func (s *Service) Redeem(ctx context.Context, value string, kind Kind) (*ActionToken, error) {
	now := s.now().UTC()
	t, err := s.repo.Consume(ctx, value, kind, now)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	// The conditional update matched nothing. Distinguish why.
	existing, lookupErr := s.repo.GetByToken(ctx, value)
	if lookupErr != nil {
		return nil, lookupErr
	}
	switch {
	case existing.Kind != kind:
		return nil, ErrWrongKind
	case existing.Status == StatusUsed:
		return nil, ErrUsed
	case existing.Status == StatusExpired, !existing.ExpiresAt.After(now):
		return nil, ErrExpired
	default:
		return nil, ErrNotFound
	}
}

// ExpireForAppointment invalidates all outstanding tokens for an
// appointment. Called when the appointment reaches a terminal state.
func (s *Service) ExpireForAppointment(ctx context.Context, appointmentID uuid.UUID) error {
	return s.repo.ExpireForAppointment(ctx, appointmentID)
}

// ListByAppointment returns every token ever issued for the appointment.
func (s *Service) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*ActionToken, error) {
	return s.repo.ListByAppointment(ctx, appointmentID)
}

func generateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
