package reporting

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/domain/appointment"
)

// StatusCount pairs a lifecycle status with its display label and count.
type StatusCount struct {
	Status appointment.Status `json:"status"`
	Label  string             `json:"label"`
	Count  int                `json:"count"`
}

// Summary is the dashboard aggregate over a reporting window.
type Summary struct {
	From          time.Time     `json:"from"`
	To            time.Time     `json:"to"`
	Total         int           `json:"total"`
	ByStatus      []StatusCount `json:"by_status"`
	Completed     int           `json:"completed"`
	Cancelled     int           `json:"cancelled"`
	NoShows       int           `json:"no_shows"`
	NoShowRate    float64       `json:"no_show_rate"`
	UpcomingToday int           `json:"upcoming_today"`
}

// Service derives dashboard statistics as folds over appointment status
// counts. It never mutates anything.
type Service struct {
	appts appointment.Repository
	loc   *time.Location
	now   func() time.Time
}

func NewService(appts appointment.Repository, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{appts: appts, loc: loc, now: time.Now}
}

// Summary aggregates appointments starting within [from, to) for the
// clinic, optionally narrowed to one doctor.
func (s *Service) Summary(ctx context.Context, clinicID uuid.UUID, doctorID *uuid.UUID, from, to time.Time) (*Summary, error) {
	counts, err := s.appts.CountByStatus(ctx, clinicID, doctorID, from, to)
	if err != nil {
		return nil, err
	}

	sum := &Summary{From: from, To: to}
	for _, st := range appointment.Statuses() {
		n := counts[st]
		sum.Total += n
		sum.ByStatus = append(sum.ByStatus, StatusCount{
			Status: st,
			Label:  st.Label(),
			Count:  n,
		})
	}
	sum.Completed = counts[appointment.StatusCompleted]
	sum.Cancelled = counts[appointment.StatusCancelled]
	sum.NoShows = counts[appointment.StatusNoShow]
	if sum.Total > 0 {
		sum.NoShowRate = float64(sum.NoShows) / float64(sum.Total)
	}

	upcoming, err := s.upcomingToday(ctx, clinicID, doctorID)
	if err != nil {
		return nil, err
	}
	sum.UpcomingToday = upcoming
	return sum, nil
}

// upcomingToday counts today's appointments still waiting to happen:
// pending, confirmed, or checked in, starting between now and midnight.
func (s *Service) upcomingToday(ctx context.Context, clinicID uuid.UUID, doctorID *uuid.UUID) (int, error) {
	now := s.now().In(s.loc)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc).AddDate(0, 0, 1)

	counts, err := s.appts.CountByStatus(ctx, clinicID, doctorID, now, midnight)
	if err != nil {
		return 0, err
	}
	return counts[appointment.StatusPending] +
		counts[appointment.StatusConfirmed] +
		counts[appointment.StatusCheckedIn], nil
}
