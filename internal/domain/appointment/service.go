package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrInvalidTransition is returned when the requested lifecycle change is
// not permitted from the appointment's current status.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrTooLateToCancel is returned when a cancellation arrives inside the
// cancellation lead-time window.
var ErrTooLateToCancel = errors.New("too late to cancel")

// ErrNotYetStarted is returned when a no-show is recorded before the
// scheduled start has passed.
var ErrNotYetStarted = errors.New("appointment has not started yet")

// TokenRevoker invalidates outstanding action tokens once an appointment
// reaches a terminal state. The token domain provides the implementation.
type TokenRevoker interface {
	ExpireForAppointment(ctx context.Context, appointmentID uuid.UUID) error
}

// TransitionResult reports the outcome of a lifecycle command. Changed is
// false when the command was an idempotent repeat.
type TransitionResult struct {
	Appointment *Appointment `json:"appointment"`
	Changed     bool         `json:"changed"`
	Message     string       `json:"message,omitempty"`
}

// Service drives the appointment lifecycle.
type Service struct {
	repo       Repository
	tokens     TokenRevoker
	cancelLead time.Duration
	now        func() time.Time
}

func NewService(repo Repository, tokens TokenRevoker, cancelLead time.Duration) *Service {
	return &Service{
		repo:       repo,
		tokens:     tokens,
		cancelLead: cancelLead,
		now:        time.Now,
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Search(ctx context.Context, params SearchParams, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.Search(ctx, params, limit, offset)
}

// Confirm moves a pending appointment to confirmed. Confirming an already
// confirmed appointment is an idempotent success. The slot is re-checked
// against later bookings before the transition lands.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*TransitionResult, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status == StatusConfirmed {
		return &TransitionResult{Appointment: appt, Message: "appointment is already confirmed"}, nil
	}
	if appt.Status != StatusPending {
		return nil, fmt.Errorf("%w: cannot confirm a %s appointment", ErrInvalidTransition, appt.Status)
	}

	conflicts, err := s.repo.FindConflicting(ctx, appt.DoctorID, appt.StartTime, appt.EndTime, appt.ID)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, fmt.Errorf("%w: interval claimed by another appointment", ErrSlotTaken)
	}

	appt.Status = StatusConfirmed
	if err := s.repo.Update(ctx, appt); err != nil {
		return nil, err
	}
	return &TransitionResult{Appointment: appt, Changed: true, Message: "appointment confirmed"}, nil
}

// CheckIn records patient arrival. Repeating a check-in is an idempotent
// success; pending appointments check in directly (walk-in confirmation).
func (s *Service) CheckIn(ctx context.Context, id uuid.UUID) (*TransitionResult, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch appt.Status {
	case StatusCheckedIn:
		return &TransitionResult{Appointment: appt, Message: "patient is already checked in"}, nil
	case StatusPending, StatusConfirmed:
		appt.Status = StatusCheckedIn
		if err := s.repo.Update(ctx, appt); err != nil {
			return nil, err
		}
		return &TransitionResult{Appointment: appt, Changed: true, Message: "patient checked in"}, nil
	default:
		return nil, fmt.Errorf("%w: cannot check in a %s appointment", ErrInvalidTransition, appt.Status)
	}
}

// StartVisit moves a checked-in appointment to in-progress and stamps the
// actual start time.
func (s *Service) StartVisit(ctx context.Context, id uuid.UUID) (*TransitionResult, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status == StatusInProgress {
		return &TransitionResult{Appointment: appt, Message: "visit is already in progress"}, nil
	}
	// Confirmed is accepted directly: walk-ins are sometimes taken straight
	// to the room without a front-desk check-in step.
	if appt.Status != StatusCheckedIn && appt.Status != StatusConfirmed {
		return nil, fmt.Errorf("%w: cannot start a %s appointment", ErrInvalidTransition, appt.Status)
	}
	now := s.now().UTC()
	appt.Status = StatusInProgress
	appt.ActualStart = &now
	if err := s.repo.Update(ctx, appt); err != nil {
		return nil, err
	}
	return &TransitionResult{Appointment: appt, Changed: true, Message: "visit started"}, nil
}

// Complete closes an in-progress visit and stamps the actual end time.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*TransitionResult, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status == StatusCompleted {
		return &TransitionResult{Appointment: appt, Message: "visit is already completed"}, nil
	}
	if appt.Status != StatusInProgress {
		return nil, fmt.Errorf("%w: cannot complete a %s appointment", ErrInvalidTransition, appt.Status)
	}
	now := s.now().UTC()
	appt.Status = StatusCompleted
	appt.ActualEnd = &now
	if err := s.repo.Update(ctx, appt); err != nil {
		return nil, err
	}
	s.expireTokens(ctx, appt.ID)
	msg := "visit completed"
	if appt.ActualStart != nil {
		msg = fmt.Sprintf("visit completed in %s", now.Sub(*appt.ActualStart).Round(time.Second))
	}
	return &TransitionResult{Appointment: appt, Changed: true, Message: msg}, nil
}

// Cancel releases the appointment's slot. Cancelling an already cancelled
// appointment is an idempotent success. When enforceLead is true the
// cancellation lead-time window applies; staff cancellations pass false.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, enforceLead bool) (*TransitionResult, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status == StatusCancelled {
		return &TransitionResult{Appointment: appt, Message: "appointment is already cancelled"}, nil
	}
	if appt.Status.Terminal() {
		return nil, fmt.Errorf("%w: cannot cancel a %s appointment", ErrInvalidTransition, appt.Status)
	}
	if enforceLead && s.now().Add(s.cancelLead).After(appt.StartTime) {
		return nil, fmt.Errorf("%w: cancellations close %s before the scheduled start",
			ErrTooLateToCancel, s.cancelLead)
	}
	appt.Status = StatusCancelled
	if err := s.repo.Update(ctx, appt); err != nil {
		return nil, err
	}
	s.expireTokens(ctx, appt.ID)
	return &TransitionResult{Appointment: appt, Changed: true, Message: "appointment cancelled"}, nil
}

// MarkNoShow records a missed appointment. Only non-terminal appointments
// whose start has passed can be marked.
func (s *Service) MarkNoShow(ctx context.Context, id uuid.UUID) (*TransitionResult, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status == StatusNoShow {
		return &TransitionResult{Appointment: appt, Message: "appointment is already marked as a no-show"}, nil
	}
	if appt.Status.Terminal() {
		return nil, fmt.Errorf("%w: cannot mark a %s appointment as no-show", ErrInvalidTransition, appt.Status)
	}
	if s.now().Before(appt.StartTime) {
		return nil, ErrNotYetStarted
	}
	appt.Status = StatusNoShow
	if err := s.repo.Update(ctx, appt); err != nil {
		return nil, err
	}
	s.expireTokens(ctx, appt.ID)
	return &TransitionResult{Appointment: appt, Changed: true, Message: "appointment marked as no-show"}, nil
}

// UpdateStatus dispatches the staff status-update endpoint to the matching
// lifecycle command. Only confirm and cancel are reachable through it; the
// other transitions have dedicated commands.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, target Status) (*TransitionResult, error) {
	switch target {
	case StatusConfirmed:
		return s.Confirm(ctx, id)
	case StatusCancelled:
		return s.Cancel(ctx, id, false)
	default:
		return nil, fmt.Errorf("%w: %q is not a reachable target status", ErrInvalidTransition, target)
	}
}

// SweepNoShows marks overdue pending and confirmed appointments as no-shows
// once their start time is more than grace in the past. Returns the number
// of appointments swept.
func (s *Service) SweepNoShows(ctx context.Context, grace time.Duration) (int, error) {
	cutoff := s.now().Add(-grace)
	overdue, err := s.repo.ListOverdue(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	swept := 0
	for _, appt := range overdue {
		appt.Status = StatusNoShow
		if err := s.repo.Update(ctx, appt); err != nil {
			return swept, fmt.Errorf("sweep appointment %s: %w", appt.ID, err)
		}
		s.expireTokens(ctx, appt.ID)
		swept++
	}
	return swept, nil
}

func (s *Service) expireTokens(ctx context.Context, appointmentID uuid.UUID) {
	if s.tokens == nil {
		return
	}
	if err := s.tokens.ExpireForAppointment(ctx, appointmentID); err != nil {
		log.Warn().Err(err).Str("appointment_id", appointmentID.String()).
			Msg("failed to expire action tokens")
	}
}
