package availability

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/pkg/interval"
)

// Window maps to the doctor_availability table: a recurring weekly interval
// during which a doctor accepts appointments. Windows are never deleted,
// only deactivated.
type Window struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	DoctorID        uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	ClinicID        uuid.UUID  `db:"clinic_id" json:"clinic_id"`
	DayOfWeek       int        `db:"day_of_week" json:"day_of_week"` // 0 = Sunday … 6 = Saturday
	StartMinute     int        `db:"start_minute" json:"start_minute"`
	EndMinute       int        `db:"end_minute" json:"end_minute"`
	SlotSizeMinutes int        `db:"slot_size_minutes" json:"slot_size_minutes"`
	Active          bool       `db:"active" json:"active"`
	EffectiveFrom   *time.Time `db:"effective_from" json:"effective_from,omitempty"`
	EffectiveTo     *time.Time `db:"effective_to" json:"effective_to,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// Validate checks the window's field-level invariants.
func (w *Window) Validate() error {
	if w.DoctorID == uuid.Nil {
		return fmt.Errorf("doctor_id is required")
	}
	if w.ClinicID == uuid.Nil {
		return fmt.Errorf("clinic_id is required")
	}
	if w.DayOfWeek < 0 || w.DayOfWeek > 6 {
		return fmt.Errorf("day_of_week must be 0-6, got %d", w.DayOfWeek)
	}
	if w.StartMinute < 0 || w.EndMinute > 24*60 {
		return fmt.Errorf("window must fall within a single day")
	}
	if w.StartMinute >= w.EndMinute {
		return fmt.Errorf("window start must be before end")
	}
	if w.SlotSizeMinutes <= 0 {
		return fmt.Errorf("slot_size_minutes must be positive, got %d", w.SlotSizeMinutes)
	}
	if w.EffectiveFrom != nil && w.EffectiveTo != nil && w.EffectiveTo.Before(*w.EffectiveFrom) {
		return fmt.Errorf("effective_to must not precede effective_from")
	}
	return nil
}

// AppliesOn reports whether the window is in force on the given calendar
// date. Effective bounds are inclusive; a missing bound is unbounded.
// Bounds are compared as calendar dates in date's location, so the check
// stays correct for clinic timezones away from UTC.
func (w *Window) AppliesOn(date time.Time) bool {
	if !w.Active {
		return false
	}
	if int(date.Weekday()) != w.DayOfWeek {
		return false
	}
	day := dateOnly(date, date.Location())
	if w.EffectiveFrom != nil && day.Before(dateOnly(*w.EffectiveFrom, date.Location())) {
		return false
	}
	if w.EffectiveTo != nil && day.After(dateOnly(*w.EffectiveTo, date.Location())) {
		return false
	}
	return true
}

func dateOnly(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// SpanOn materializes the window's time-of-day bounds into instants on the
// given date in the given location.
func (w *Window) SpanOn(date time.Time, loc *time.Location) interval.Span {
	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	return interval.Span{
		Start: midnight.Add(time.Duration(w.StartMinute) * time.Minute),
		End:   midnight.Add(time.Duration(w.EndMinute) * time.Minute),
	}
}

// TimeOff maps to the doctor_time_off table: an ad hoc blackout interval
// overriding availability for one doctor.
type TimeOff struct {
	ID        uuid.UUID `db:"id" json:"id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	ClinicID  uuid.UUID `db:"clinic_id" json:"clinic_id"`
	StartTime time.Time `db:"start_time" json:"start_time"`
	EndTime   time.Time `db:"end_time" json:"end_time"`
	Reason    *string   `db:"reason" json:"reason,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Validate checks the blackout's field-level invariants.
func (t *TimeOff) Validate() error {
	if t.DoctorID == uuid.Nil {
		return fmt.Errorf("doctor_id is required")
	}
	if t.ClinicID == uuid.Nil {
		return fmt.Errorf("clinic_id is required")
	}
	if t.StartTime.IsZero() || t.EndTime.IsZero() {
		return fmt.Errorf("start_time and end_time are required")
	}
	if !t.StartTime.Before(t.EndTime) {
		return fmt.Errorf("time off start must be before end")
	}
	return nil
}

// Span returns the blackout as a half-open interval.
func (t *TimeOff) Span() interval.Span {
	return interval.Span{Start: t.StartTime, End: t.EndTime}
}
