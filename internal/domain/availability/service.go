package availability

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/pkg/interval"
)

// BookedInterval is the slice of an appointment the time-off impact report
// needs. The full appointment entity lives in the appointment domain; the
// wiring layer adapts its repository to this interface.
type BookedInterval struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Status        string    `json:"status"`
}

// AppointmentSource lists committed (non-terminal) appointment intervals for
// a doctor within a time range.
type AppointmentSource interface {
	ListActiveIntervals(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]BookedInterval, error)
}

type Service struct {
	windows      WindowRepository
	timeOff      TimeOffRepository
	appointments AppointmentSource
	loc          *time.Location
}

func NewService(windows WindowRepository, timeOff TimeOffRepository, appts AppointmentSource, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{windows: windows, timeOff: timeOff, appointments: appts, loc: loc}
}

// Location returns the clinic timezone all day arithmetic uses.
func (s *Service) Location() *time.Location {
	return s.loc
}

// DayBounds returns the half-open clinic-day interval containing date.
func (s *Service) DayBounds(date time.Time) (time.Time, time.Time) {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, s.loc)
	return start, start.AddDate(0, 0, 1)
}

// -- Windows --

func (s *Service) CreateWindow(ctx context.Context, w *Window) error {
	if err := w.Validate(); err != nil {
		return err
	}
	w.Active = true
	return s.windows.Create(ctx, w)
}

func (s *Service) GetWindow(ctx context.Context, id uuid.UUID) (*Window, error) {
	return s.windows.GetByID(ctx, id)
}

func (s *Service) UpdateWindow(ctx context.Context, w *Window) error {
	if err := w.Validate(); err != nil {
		return err
	}
	if _, err := s.windows.GetByID(ctx, w.ID); err != nil {
		return err
	}
	return s.windows.Update(ctx, w)
}

// DeactivateWindow retires a window. Windows are never deleted so past
// schedules stay explainable.
func (s *Service) DeactivateWindow(ctx context.Context, id uuid.UUID) error {
	if _, err := s.windows.GetByID(ctx, id); err != nil {
		return err
	}
	return s.windows.Deactivate(ctx, id)
}

func (s *Service) ListWindowsByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Window, int, error) {
	return s.windows.ListByDoctor(ctx, doctorID, limit, offset)
}

// ListWindows returns the windows in force for the doctor on the given
// date, ordered by start minute.
func (s *Service) ListWindows(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*Window, error) {
	dayStart, _ := s.DayBounds(date)
	candidates, err := s.windows.ListForDay(ctx, doctorID, int(dayStart.Weekday()))
	if err != nil {
		return nil, err
	}
	var applicable []*Window
	for _, w := range candidates {
		if w.AppliesOn(dayStart) {
			applicable = append(applicable, w)
		}
	}
	return applicable, nil
}

// ListBlackouts returns time-off intervals intersecting the clinic day
// containing date, ordered by start.
func (s *Service) ListBlackouts(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]interval.Span, error) {
	dayStart, dayEnd := s.DayBounds(date)
	entries, err := s.timeOff.ListIntersecting(ctx, doctorID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	spans := make([]interval.Span, 0, len(entries))
	for _, t := range entries {
		spans = append(spans, t.Span())
	}
	return spans, nil
}

// -- Time off --

// TimeOffReport is the result of creating a blackout: the entry itself plus
// the committed appointments it collides with. Those appointments are
// reported, never auto-cancelled; staff decide what to do with them.
type TimeOffReport struct {
	TimeOff  *TimeOff         `json:"time_off"`
	Affected []BookedInterval `json:"affected_appointments"`
}

func (s *Service) AddTimeOff(ctx context.Context, t *TimeOff) (*TimeOffReport, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := s.timeOff.Create(ctx, t); err != nil {
		return nil, err
	}

	affected, err := s.affectedBy(ctx, t)
	if err != nil {
		return nil, err
	}
	return &TimeOffReport{TimeOff: t, Affected: affected}, nil
}

func (s *Service) UpdateTimeOff(ctx context.Context, t *TimeOff) (*TimeOffReport, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.timeOff.GetByID(ctx, t.ID); err != nil {
		return nil, err
	}
	if err := s.timeOff.Update(ctx, t); err != nil {
		return nil, err
	}

	affected, err := s.affectedBy(ctx, t)
	if err != nil {
		return nil, err
	}
	return &TimeOffReport{TimeOff: t, Affected: affected}, nil
}

func (s *Service) DeleteTimeOff(ctx context.Context, id uuid.UUID) error {
	if _, err := s.timeOff.GetByID(ctx, id); err != nil {
		return err
	}
	return s.timeOff.Delete(ctx, id)
}

func (s *Service) GetTimeOff(ctx context.Context, id uuid.UUID) (*TimeOff, error) {
	return s.timeOff.GetByID(ctx, id)
}

func (s *Service) ListTimeOffByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*TimeOff, int, error) {
	return s.timeOff.ListByDoctor(ctx, doctorID, limit, offset)
}

func (s *Service) affectedBy(ctx context.Context, t *TimeOff) ([]BookedInterval, error) {
	booked, err := s.appointments.ListActiveIntervals(ctx, t.DoctorID, t.StartTime, t.EndTime)
	if err != nil {
		return nil, err
	}
	var affected []BookedInterval
	for _, b := range booked {
		if interval.Overlaps(b.Start, b.End, t.StartTime, t.EndTime) {
			affected = append(affected, b)
		}
	}
	return affected, nil
}
