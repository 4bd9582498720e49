package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/domain/appointment"
	"github.com/clinicdesk/clinicdesk/internal/domain/availability"
	"github.com/clinicdesk/clinicdesk/internal/domain/directory"
	"github.com/clinicdesk/clinicdesk/internal/domain/token"
	"github.com/clinicdesk/clinicdesk/pkg/interval"
)

var (
	ErrClinicNotFound      = errors.New("clinic not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrServiceNotFound     = errors.New("service not found")
	ErrServiceNotOffered   = errors.New("doctor does not offer this service")
	ErrTimeOffConflict     = errors.New("interval falls within doctor time off")
	ErrOutsideAvailability = errors.New("interval is outside the doctor's availability")
	ErrAlreadyCancelled    = errors.New("appointment is already cancelled")
)

// TxRunner executes fn inside a single database transaction. Repositories
// called through the fn context join that transaction.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// Service orchestrates slot display and the booking flows across the
// directory, availability, appointment, and token domains.
type Service struct {
	directory    directory.Repository
	availability *availability.Service
	appts        appointment.Repository
	lifecycle    *appointment.Service
	tokens       *token.Service
	runTx        TxRunner
}

func NewService(
	dir directory.Repository,
	avail *availability.Service,
	appts appointment.Repository,
	lifecycle *appointment.Service,
	tokens *token.Service,
	runTx TxRunner,
) *Service {
	return &Service{
		directory:    dir,
		availability: avail,
		appts:        appts,
		lifecycle:    lifecycle,
		tokens:       tokens,
		runTx:        runTx,
	}
}

// Slot is a bookable interval offered to patients.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// GetSlots derives the bookable slots for a doctor on a date: availability
// windows minus time off minus slot-holding appointments. Slots sit on a
// fixed grid anchored at each window's start; a blocked sub-slot removes
// only itself, never the whole window.
func (s *Service) GetSlots(ctx context.Context, clinicID, doctorID uuid.UUID, serviceID *uuid.UUID, date time.Time) ([]Slot, error) {
	if err := s.checkDirectory(ctx, clinicID, doctorID, serviceID); err != nil {
		return nil, err
	}

	windows, err := s.availability.ListWindows(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	blackouts, err := s.availability.ListBlackouts(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	dayStart, dayEnd := s.availability.DayBounds(date)
	booked, err := s.appts.ListActiveIntervals(ctx, doctorID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	blocked := make([]interval.Span, 0, len(blackouts)+len(booked))
	blocked = append(blocked, blackouts...)
	for _, a := range booked {
		blocked = append(blocked, a.Span())
	}

	loc := s.availability.Location()
	var slots []Slot
	for _, w := range windows {
		span := w.SpanOn(date, loc)
		size := time.Duration(w.SlotSizeMinutes) * time.Minute
		if size <= 0 || !span.Start.Before(span.End) {
			continue
		}
		for cursor := span.Start; !cursor.Add(size).After(span.End); cursor = cursor.Add(size) {
			end := cursor.Add(size)
			candidate := interval.Span{Start: cursor, End: end}
			if !candidate.OverlapsAny(blocked) {
				slots = append(slots, Slot{Start: cursor, End: end})
			}
		}
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].Start.Before(slots[j].Start) })
	return slots, nil
}

// CreateRequest carries a booking request from any channel.
type CreateRequest struct {
	ClinicID     uuid.UUID           `json:"clinic_id"`
	DoctorID     uuid.UUID           `json:"doctor_id"`
	ServiceID    *uuid.UUID          `json:"service_id,omitempty"`
	PatientID    *uuid.UUID          `json:"patient_id,omitempty"`
	Start        time.Time           `json:"start"`
	End          time.Time           `json:"end"`
	ContactName  string              `json:"contact_name"`
	ContactPhone string              `json:"contact_phone"`
	ContactEmail *string             `json:"contact_email,omitempty"`
	Notes        *string             `json:"notes,omitempty"`
	Channel      appointment.Channel `json:"channel"`
}

// CreateResult is returned to the booking caller. The token values are
// surfaced exactly once, here.
type CreateResult struct {
	Appointment     *appointment.Appointment `json:"appointment"`
	CancelToken     string                   `json:"cancel_token"`
	RescheduleToken string                   `json:"reschedule_token"`
}

// CreateBooking validates the request against the directory, time off, and
// availability, then commits the appointment and its token pair in one
// transaction. The conflict check runs inside that transaction; the partial
// unique index on the appointments table backstops concurrent commits.
func (s *Service) CreateBooking(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	appt := &appointment.Appointment{
		ClinicID:     req.ClinicID,
		DoctorID:     req.DoctorID,
		ServiceID:    req.ServiceID,
		PatientID:    req.PatientID,
		StartTime:    req.Start,
		EndTime:      req.End,
		Channel:      req.Channel,
		ContactName:  req.ContactName,
		ContactPhone: req.ContactPhone,
		ContactEmail: req.ContactEmail,
		Notes:        req.Notes,
		Status:       appointment.StatusConfirmed,
	}
	if req.Channel.SelfService() {
		appt.Status = appointment.StatusPending
	}
	if err := appt.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkDirectory(ctx, req.ClinicID, req.DoctorID, req.ServiceID); err != nil {
		return nil, err
	}

	blackouts, err := s.availability.ListBlackouts(ctx, req.DoctorID, req.Start)
	if err != nil {
		return nil, err
	}
	if (interval.Span{Start: req.Start, End: req.End}).OverlapsAny(blackouts) {
		return nil, ErrTimeOffConflict
	}
	if err := s.checkCoverage(ctx, req.DoctorID, req.Start, req.End); err != nil {
		return nil, err
	}

	var pair *token.Pair
	err = s.runTx(ctx, func(ctx context.Context) error {
		conflicts, err := s.appts.FindConflicting(ctx, req.DoctorID, req.Start, req.End, uuid.Nil)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return appointment.ErrSlotTaken
		}
		if err := s.appts.Create(ctx, appt); err != nil {
			return err
		}
		pair, err = s.tokens.IssuePair(ctx, appt.ID, appt.StartTime)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &CreateResult{
		Appointment:     appt,
		CancelToken:     pair.Cancel.Token,
		RescheduleToken: pair.Reschedule.Token,
	}, nil
}

// ConfirmBooking promotes a pending booking to confirmed. Idempotent on an
// already confirmed booking.
func (s *Service) ConfirmBooking(ctx context.Context, id uuid.UUID) (*appointment.TransitionResult, error) {
	var res *appointment.TransitionResult
	err := s.runTx(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.lifecycle.Confirm(ctx, id)
		return err
	})
	return res, err
}

// RedeemCancel burns a cancel token and cancels its appointment, enforcing
// the cancellation lead time. Token consumption and cancellation commit
// atomically: a lead-time rejection leaves the token unspent.
func (s *Service) RedeemCancel(ctx context.Context, tokenValue string) (*appointment.TransitionResult, error) {
	var res *appointment.TransitionResult
	err := s.runTx(ctx, func(ctx context.Context) error {
		t, err := s.tokens.Redeem(ctx, tokenValue, token.KindCancel)
		if err != nil {
			return err
		}
		res, err = s.lifecycle.Cancel(ctx, t.AppointmentID, true)
		if err != nil {
			return err
		}
		if !res.Changed && res.Appointment.Status == appointment.StatusCancelled {
			return ErrAlreadyCancelled
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// RedeemReschedule burns a reschedule token and moves the appointment to
// new times after a conflict check that excludes the appointment itself.
// The rebooked appointment lands in confirmed; no replacement token is
// issued.
func (s *Service) RedeemReschedule(ctx context.Context, tokenValue string, newStart, newEnd time.Time) (*appointment.Appointment, error) {
	if !newStart.Before(newEnd) {
		return nil, fmt.Errorf("new start must be before new end")
	}

	var moved *appointment.Appointment
	err := s.runTx(ctx, func(ctx context.Context) error {
		t, err := s.tokens.Redeem(ctx, tokenValue, token.KindReschedule)
		if err != nil {
			return err
		}
		appt, err := s.appts.GetByID(ctx, t.AppointmentID)
		if err != nil {
			return err
		}
		if appt.Status == appointment.StatusCancelled {
			return ErrAlreadyCancelled
		}
		if appt.Status.Terminal() {
			return fmt.Errorf("%w: cannot reschedule a %s appointment",
				appointment.ErrInvalidTransition, appt.Status)
		}

		conflicts, err := s.appts.FindConflicting(ctx, appt.DoctorID, newStart, newEnd, appt.ID)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return appointment.ErrSlotTaken
		}

		appt.StartTime = newStart
		appt.EndTime = newEnd
		appt.Status = appointment.StatusConfirmed
		if err := s.appts.Update(ctx, appt); err != nil {
			return err
		}
		moved = appt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

func (s *Service) checkDirectory(ctx context.Context, clinicID, doctorID uuid.UUID, serviceID *uuid.UUID) error {
	if _, err := s.directory.GetClinic(ctx, clinicID); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return ErrClinicNotFound
		}
		return err
	}
	doc, err := s.directory.GetDoctor(ctx, doctorID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return ErrDoctorNotFound
		}
		return err
	}
	if doc.ClinicID != clinicID {
		return ErrDoctorNotFound
	}
	if serviceID != nil {
		if _, err := s.directory.GetService(ctx, *serviceID); err != nil {
			if errors.Is(err, directory.ErrNotFound) {
				return ErrServiceNotFound
			}
			return err
		}
		offers, err := s.directory.DoctorOffersService(ctx, doctorID, *serviceID)
		if err != nil {
			return err
		}
		if !offers {
			return ErrServiceNotOffered
		}
	}
	return nil
}

// checkCoverage requires some active window on the booking's date to fully
// contain [start, end).
func (s *Service) checkCoverage(ctx context.Context, doctorID uuid.UUID, start, end time.Time) error {
	windows, err := s.availability.ListWindows(ctx, doctorID, start)
	if err != nil {
		return err
	}
	loc := s.availability.Location()
	for _, w := range windows {
		span := w.SpanOn(start, loc)
		if !start.Before(span.Start) && !end.After(span.End) {
			return nil
		}
	}
	return ErrOutsideAvailability
}
