package appointment

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/pkg/interval"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusPending      Status = "pending"
	StatusConfirmed    Status = "confirmed"
	StatusCheckedIn    Status = "checked_in"
	StatusInProgress   Status = "in_progress"
	StatusCompleted    Status = "completed"
	StatusCancelled    Status = "cancelled"
	StatusNoShow       Status = "no_show"
	StatusRescheduling Status = "rescheduling"
)

// statusLabels is the canonical status-to-display-label table. Reporting and
// UI layers consume it; nothing else redefines these strings.
var statusLabels = map[Status]string{
	StatusPending:      "Pending",
	StatusConfirmed:    "Confirmed",
	StatusCheckedIn:    "Checked In",
	StatusInProgress:   "In Progress",
	StatusCompleted:    "Completed",
	StatusCancelled:    "Cancelled",
	StatusNoShow:       "No Show",
	StatusRescheduling: "Rescheduling",
}

// Label returns the canonical display label for the status.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Terminal reports whether no further lifecycle transition is defined.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// ActiveStatuses are the statuses that hold a slot: everything except
// cancelled and no-show. Completed visits keep their interval because the
// time genuinely was consumed.
func ActiveStatuses() []Status {
	return []Status{
		StatusPending, StatusConfirmed, StatusCheckedIn,
		StatusInProgress, StatusCompleted, StatusRescheduling,
	}
}

// Statuses returns every known status, for reporting folds.
func Statuses() []Status {
	return []Status{
		StatusPending, StatusConfirmed, StatusCheckedIn, StatusInProgress,
		StatusCompleted, StatusCancelled, StatusNoShow, StatusRescheduling,
	}
}

// Channel is the source through which a booking was made.
type Channel string

const (
	ChannelWeb       Channel = "web"
	ChannelApp       Channel = "app"
	ChannelHotline   Channel = "hotline"
	ChannelFrontDesk Channel = "front-desk"
)

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	switch c {
	case ChannelWeb, ChannelApp, ChannelHotline, ChannelFrontDesk:
		return true
	}
	return false
}

// SelfService reports whether bookings from this channel start life as
// Pending. Front-desk bookings are committed directly by staff and start
// Confirmed.
func (c Channel) SelfService() bool {
	return c != ChannelFrontDesk
}

// Appointment maps to the appointments table. A single entity carries the
// whole lifecycle from booking request to completion; cancellation is a
// status, never a deletion.
type Appointment struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	ClinicID     uuid.UUID  `db:"clinic_id" json:"clinic_id"`
	DoctorID     uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	ServiceID    *uuid.UUID `db:"service_id" json:"service_id,omitempty"`
	PatientID    *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	StartTime    time.Time  `db:"start_time" json:"start_time"`
	EndTime      time.Time  `db:"end_time" json:"end_time"`
	Channel      Channel    `db:"channel" json:"channel"`
	ContactName  string     `db:"contact_name" json:"contact_name"`
	ContactPhone string     `db:"contact_phone" json:"contact_phone"`
	ContactEmail *string    `db:"contact_email" json:"contact_email,omitempty"`
	Notes        *string    `db:"notes" json:"notes,omitempty"`
	Status       Status     `db:"status" json:"status"`
	ActualStart  *time.Time `db:"actual_start" json:"actual_start,omitempty"`
	ActualEnd    *time.Time `db:"actual_end" json:"actual_end,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Validate checks field-level invariants on a new appointment.
func (a *Appointment) Validate() error {
	if a.ClinicID == uuid.Nil {
		return fmt.Errorf("clinic_id is required")
	}
	if a.DoctorID == uuid.Nil {
		return fmt.Errorf("doctor_id is required")
	}
	if a.StartTime.IsZero() || a.EndTime.IsZero() {
		return fmt.Errorf("start_time and end_time are required")
	}
	if !a.StartTime.Before(a.EndTime) {
		return fmt.Errorf("appointment start must be before end")
	}
	if !a.Channel.Valid() {
		return fmt.Errorf("invalid channel: %s", a.Channel)
	}
	if a.ContactName == "" {
		return fmt.Errorf("contact_name is required")
	}
	if a.ContactPhone == "" {
		return fmt.Errorf("contact_phone is required")
	}
	if a.Status != "" && !a.Status.Valid() {
		return fmt.Errorf("invalid status: %s", a.Status)
	}
	return nil
}

// Span returns the scheduled [start, end) interval.
func (a *Appointment) Span() interval.Span {
	return interval.Span{Start: a.StartTime, End: a.EndTime}
}

// HoldsSlot reports whether the appointment currently blocks its interval
// from other bookings.
func (a *Appointment) HoldsSlot() bool {
	return a.Status != StatusCancelled && a.Status != StatusNoShow
}
