package appointment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/pkg/interval"
)

type mockRepo struct {
	appts map[uuid.UUID]*Appointment
}

func newMockRepo() *mockRepo {
	return &mockRepo{appts: make(map[uuid.UUID]*Appointment)}
}

func (m *mockRepo) Create(_ context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	for _, other := range m.appts {
		if other.DoctorID == a.DoctorID && other.HoldsSlot() &&
			interval.Overlaps(a.StartTime, a.EndTime, other.StartTime, other.EndTime) {
			return ErrSlotTaken
		}
	}
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, a *Appointment) error {
	if _, ok := m.appts[a.ID]; !ok {
		return ErrNotFound
	}
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *mockRepo) Search(_ context.Context, params SearchParams, limit, offset int) ([]*Appointment, int, error) {
	var list []*Appointment
	for _, a := range m.appts {
		if a.ClinicID != params.ClinicID {
			continue
		}
		if params.Status != nil && a.Status != *params.Status {
			continue
		}
		list = append(list, a)
	}
	return list, len(list), nil
}

func (m *mockRepo) FindConflicting(_ context.Context, doctorID uuid.UUID, start, end time.Time, excludeID uuid.UUID) ([]*Appointment, error) {
	var out []*Appointment
	for _, a := range m.appts {
		if a.ID == excludeID || a.DoctorID != doctorID || !a.HoldsSlot() {
			continue
		}
		if interval.Overlaps(start, end, a.StartTime, a.EndTime) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockRepo) ListActiveIntervals(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*Appointment, error) {
	return m.FindConflicting(ctx, doctorID, from, to, uuid.Nil)
}

func (m *mockRepo) ListOverdue(_ context.Context, before time.Time) ([]*Appointment, error) {
	var out []*Appointment
	for _, a := range m.appts {
		if (a.Status == StatusPending || a.Status == StatusConfirmed) && a.StartTime.Before(before) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockRepo) CountByStatus(_ context.Context, clinicID uuid.UUID, doctorID *uuid.UUID, from, to time.Time) (map[Status]int, error) {
	counts := make(map[Status]int)
	for _, a := range m.appts {
		if a.ClinicID != clinicID {
			continue
		}
		if doctorID != nil && a.DoctorID != *doctorID {
			continue
		}
		if a.StartTime.Before(from) || !a.StartTime.Before(to) {
			continue
		}
		counts[a.Status]++
	}
	return counts, nil
}

type mockRevoker struct {
	expired []uuid.UUID
}

func (m *mockRevoker) ExpireForAppointment(_ context.Context, id uuid.UUID) error {
	m.expired = append(m.expired, id)
	return nil
}

func (m *mockRevoker) expiredFor(id uuid.UUID) bool {
	for _, e := range m.expired {
		if e == id {
			return true
		}
	}
	return false
}

var baseStart = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func seedAppointment(t *testing.T, repo *mockRepo, status Status) *Appointment {
	t.Helper()
	a := &Appointment{
		ClinicID:     uuid.New(),
		DoctorID:     uuid.New(),
		StartTime:    baseStart,
		EndTime:      baseStart.Add(30 * time.Minute),
		Channel:      ChannelWeb,
		ContactName:  "Jordan Fields",
		ContactPhone: "+15550001111",
		Status:       status,
	}
	if err := repo.Create(context.Background(), a); err != nil {
		t.Fatalf("seed appointment: %v", err)
	}
	return a
}

func newTestService(repo *mockRepo, revoker *mockRevoker, now time.Time) *Service {
	var tokens TokenRevoker
	if revoker != nil {
		tokens = revoker
	}
	svc := NewService(repo, tokens, 2*time.Hour)
	svc.now = func() time.Time { return now }
	return svc
}

func TestConfirm_PendingBecomesConfirmed(t *testing.T) {
	repo := newMockRepo()
	a := seedAppointment(t, repo, StatusPending)
	svc := newTestService(repo, nil, baseStart.Add(-24*time.Hour))

	res, err := svc.Confirm(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if !res.Changed {
		t.Error("expected Changed to be true")
	}
	if res.Appointment.Status != StatusConfirmed {
		t.Errorf("status = %s, want confirmed", res.Appointment.Status)
	}
}

func TestConfirm_Idempotent(t *testing.T) {
	repo := newMockRepo()
	a := seedAppointment(t, repo, StatusConfirmed)
	svc := newTestService(repo, nil, baseStart.Add(-24*time.Hour))

	res, err := svc.Confirm(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("Confirm repeat: %v", err)
	}
	if res.Changed {
		t.Error("repeat confirm should report Changed=false")
	}
}

func TestConfirm_RejectsNonPending(t *testing.T) {
	repo := newMockRepo()
	a := seedAppointment(t, repo, StatusCancelled)
	svc := newTestService(repo, nil, baseStart.Add(-24*time.Hour))

	_, err := svc.Confirm(context.Background(), a.ID)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestConfirm_SlotReclaimedByOther(t *testing.T) {
	repo := newMockRepo()
	a := seedAppointment(t, repo, StatusPending)

	// Another confirmed appointment has claimed an overlapping interval for
	// the same doctor in the meantime.
	rival := &Appointment{
		ClinicID:     a.ClinicID,
		DoctorID:     a.DoctorID,
		StartTime:    a.StartTime.Add(15 * time.Minute),
		EndTime:      a.EndTime.Add(15 * time.Minute),
		Channel:      ChannelFrontDesk,
		ContactName:  "Sam Ortiz",
		ContactPhone: "+15550002222",
		Status:       StatusConfirmed,
	}
	rival.ID = uuid.New()
	repo.appts[rival.ID] = rival

	svc := newTestService(repo, nil, baseStart.Add(-24*time.Hour))
	_, err := svc.Confirm(context.Background(), a.ID)
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("err = %v, want ErrSlotTaken", err)
	}
}

func TestVisitFlow_CheckInStartComplete(t *testing.T) {
	repo := newMockRepo()
	revoker := &mockRevoker{}
	a := seedAppointment(t, repo, StatusConfirmed)
	now := baseStart.Add(5 * time.Minute)
	svc := newTestService(repo, revoker, now)

	if _, err := svc.CheckIn(context.Background(), a.ID); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	res, err := svc.StartVisit(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("StartVisit: %v", err)
	}
	if res.Appointment.ActualStart == nil || !res.Appointment.ActualStart.Equal(now) {
		t.Errorf("ActualStart = %v, want %v", res.Appointment.ActualStart, now)
	}

	res, err = svc.Complete(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if res.Appointment.Status != StatusCompleted {
		t.Errorf("status = %s, want completed", res.Appointment.Status)
	}
	if res.Appointment.ActualEnd == nil {
		t.Error("ActualEnd not stamped")
	}
	if !revoker.expiredFor(a.ID) {
		t.Error("completing a visit should expire its action tokens")
	}
}

func TestStartVisit_FromConfirmedSkipsCheckIn(t *testing.T) {
	repo := newMockRepo()
	a := seedAppointment(t, repo, StatusConfirmed)
	svc := newTestService(repo, nil, baseStart)

	res, err := svc.StartVisit(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("StartVisit: %v", err)
	}
	if res.Appointment.Status != StatusInProgress {
		t.Fatalf("status = %s, want in_progress", res.Appointment.Status)
	}
}

func TestStartVisit_RejectsPending(t *testing.T) {
	repo := newMockRepo()
	a := seedAppointment(t, repo, StatusPending)
	svc := newTestService(repo, nil, baseStart)

	_, err := svc.StartVisit(context.Background(), a.ID)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestCancel_LeadTimeEnforced(t *testing.T) {
	repo := newMockRepo()
	a := seedAppointment(t, repo, StatusConfirmed)
	// 90 minutes before start: inside the two-hour window.
	svc := newTestService(repo, nil, baseStart.Add(-90*time.Minute))

	_, err := svc.Cancel(context.Background(), a.ID, true)
	if !errors.Is(err, ErrTooLateToCancel) {
		t.Fatalf("err = %v, want ErrTooLateToCancel", err)
	}
}

func TestCancel_StaffBypassesLeadTime(t *testing.T) {
	repo := newMockRepo()
	revoker := &mockRevoker{}
	a := seedAppointment(t, repo, StatusConfirmed)
	svc := newTestService(repo, revoker, baseStart.Add(-90*time.Minute))

	res, err := svc.Cancel(context.Background(), a.ID, false)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if res.Appointment.Status != StatusCancelled {
		t.Errorf("status = %s, want cancelled", res.Appointment.Status)
	}
	if !revoker.expiredFor(a.ID) {
		t.Error("cancellation should expire action tokens")
	}
}

func TestCancel_Idempotent(t *testing.T) {
	repo := newMockRepo()
	a := seedAppointment(t, repo, StatusCancelled)
	svc := newTestService(repo, nil, baseStart.Add(-24*time.Hour))

	res, err := svc.Cancel(context.Background(), a.ID, true)
	if err != nil {
		t.Fatalf("repeat Cancel: %v", err)
	}
	if res.Changed {
		t.Error("repeat cancel should report Changed=false")
	}
}

func TestCancel_RejectsCompleted(t *testing.T) {
	repo := newMockRepo()
	a := seedAppointment(t, repo, StatusCompleted)
	svc := newTestService(repo, nil, baseStart.Add(-24*time.Hour))

	_, err := svc.Cancel(context.Background(), a.ID, false)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestMarkNoShow_BeforeStartRejected(t *testing.T) {
	repo := newMockRepo()
	a := seedAppointment(t, repo, StatusConfirmed)
	svc := newTestService(repo, nil, baseStart.Add(-10*time.Minute))

	_, err := svc.MarkNoShow(context.Background(), a.ID)
	if !errors.Is(err, ErrNotYetStarted) {
		t.Fatalf("err = %v, want ErrNotYetStarted", err)
	}
}

func TestMarkNoShow_AfterStart(t *testing.T) {
	repo := newMockRepo()
	revoker := &mockRevoker{}
	a := seedAppointment(t, repo, StatusConfirmed)
	svc := newTestService(repo, revoker, baseStart.Add(45*time.Minute))

	res, err := svc.MarkNoShow(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("MarkNoShow: %v", err)
	}
	if res.Appointment.Status != StatusNoShow {
		t.Errorf("status = %s, want no_show", res.Appointment.Status)
	}
	if !revoker.expiredFor(a.ID) {
		t.Error("no-show should expire action tokens")
	}
}

func TestUpdateStatus_RejectsUnreachableTargets(t *testing.T) {
	// Only confirmed and cancelled are reachable through the status
	// endpoint; the other transitions have dedicated commands.
	targets := []Status{
		Status("archived"), StatusCheckedIn, StatusInProgress,
		StatusCompleted, StatusNoShow, StatusRescheduling,
	}
	for _, target := range targets {
		t.Run(string(target), func(t *testing.T) {
			repo := newMockRepo()
			a := seedAppointment(t, repo, StatusConfirmed)
			svc := newTestService(repo, nil, baseStart)

			_, err := svc.UpdateStatus(context.Background(), a.ID, target)
			if !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("err = %v, want ErrInvalidTransition", err)
			}
			stored, err := repo.GetByID(context.Background(), a.ID)
			if err != nil {
				t.Fatalf("GetByID: %v", err)
			}
			if stored.Status != StatusConfirmed {
				t.Fatalf("status mutated to %s", stored.Status)
			}
		})
	}
}

func TestUpdateStatus_ConfirmAndCancel(t *testing.T) {
	repo := newMockRepo()
	a := seedAppointment(t, repo, StatusPending)
	svc := newTestService(repo, nil, baseStart.Add(-24*time.Hour))

	res, err := svc.UpdateStatus(context.Background(), a.ID, StatusConfirmed)
	if err != nil {
		t.Fatalf("UpdateStatus(confirmed): %v", err)
	}
	if res.Appointment.Status != StatusConfirmed {
		t.Fatalf("status = %s, want confirmed", res.Appointment.Status)
	}

	res, err = svc.UpdateStatus(context.Background(), a.ID, StatusCancelled)
	if err != nil {
		t.Fatalf("UpdateStatus(cancelled): %v", err)
	}
	if res.Appointment.Status != StatusCancelled {
		t.Fatalf("status = %s, want cancelled", res.Appointment.Status)
	}
}

func TestSweepNoShows(t *testing.T) {
	repo := newMockRepo()
	revoker := &mockRevoker{}

	overdue := seedAppointment(t, repo, StatusConfirmed)

	upcoming := &Appointment{
		ID:           uuid.New(),
		ClinicID:     uuid.New(),
		DoctorID:     uuid.New(),
		StartTime:    baseStart.Add(3 * time.Hour),
		EndTime:      baseStart.Add(3*time.Hour + 30*time.Minute),
		Channel:      ChannelApp,
		ContactName:  "Avery Chen",
		ContactPhone: "+15550003333",
		Status:       StatusPending,
	}
	repo.appts[upcoming.ID] = upcoming

	// An hour past the overdue start, with a 30-minute grace.
	svc := newTestService(repo, revoker, baseStart.Add(time.Hour))
	swept, err := svc.SweepNoShows(context.Background(), 30*time.Minute)
	if err != nil {
		t.Fatalf("SweepNoShows: %v", err)
	}
	if swept != 1 {
		t.Fatalf("swept = %d, want 1", swept)
	}
	if repo.appts[overdue.ID].Status != StatusNoShow {
		t.Errorf("overdue status = %s, want no_show", repo.appts[overdue.ID].Status)
	}
	if repo.appts[upcoming.ID].Status != StatusPending {
		t.Errorf("upcoming status = %s, want pending", repo.appts[upcoming.ID].Status)
	}
}

func TestStatusLabels(t *testing.T) {
	want := map[Status]string{
		StatusPending:      "Pending",
		StatusConfirmed:    "Confirmed",
		StatusCheckedIn:    "Checked In",
		StatusInProgress:   "In Progress",
		StatusCompleted:    "Completed",
		StatusCancelled:    "Cancelled",
		StatusNoShow:       "No Show",
		StatusRescheduling: "Rescheduling",
	}
	for s, label := range want {
		if got := s.Label(); got != label {
			t.Errorf("Label(%s) = %q, want %q", s, got, label)
		}
	}
}
