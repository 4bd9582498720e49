package availability

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func validWindow() *Window {
	return &Window{
		ID:              uuid.New(),
		DoctorID:        uuid.New(),
		ClinicID:        uuid.New(),
		DayOfWeek:       1, // Monday
		StartMinute:     8 * 60,
		EndMinute:       12 * 60,
		SlotSizeMinutes: 30,
		Active:          true,
	}
}

func TestWindowValidate(t *testing.T) {
	if err := validWindow().Validate(); err != nil {
		t.Fatalf("valid window rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Window)
	}{
		{"missing doctor", func(w *Window) { w.DoctorID = uuid.Nil }},
		{"missing clinic", func(w *Window) { w.ClinicID = uuid.Nil }},
		{"day of week too high", func(w *Window) { w.DayOfWeek = 7 }},
		{"negative day of week", func(w *Window) { w.DayOfWeek = -1 }},
		{"end past midnight", func(w *Window) { w.EndMinute = 24*60 + 30 }},
		{"start after end", func(w *Window) { w.StartMinute, w.EndMinute = 600, 480 }},
		{"zero-length window", func(w *Window) { w.EndMinute = w.StartMinute }},
		{"zero slot size", func(w *Window) { w.SlotSizeMinutes = 0 }},
		{"inverted effective range", func(w *Window) {
			from := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
			to := from.AddDate(0, 0, -7)
			w.EffectiveFrom, w.EffectiveTo = &from, &to
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := validWindow()
			tc.mutate(w)
			if err := w.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestWindowAppliesOn(t *testing.T) {
	monday := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	tuesday := monday.AddDate(0, 0, 1)

	w := validWindow()
	if !w.AppliesOn(monday) {
		t.Fatal("window should apply on its weekday")
	}
	if w.AppliesOn(tuesday) {
		t.Fatal("window should not apply on another weekday")
	}

	w.Active = false
	if w.AppliesOn(monday) {
		t.Fatal("inactive window should not apply")
	}
	w.Active = true

	// Effective bounds are inclusive on both ends.
	from := monday
	to := monday.AddDate(0, 0, 14)
	w.EffectiveFrom, w.EffectiveTo = &from, &to
	if !w.AppliesOn(monday) {
		t.Fatal("window should apply on effective_from itself")
	}
	if !w.AppliesOn(to) {
		t.Fatal("window should apply on effective_to itself")
	}
	if w.AppliesOn(monday.AddDate(0, 0, -7)) {
		t.Fatal("window should not apply before effective_from")
	}
	if w.AppliesOn(monday.AddDate(0, 0, 21)) {
		t.Fatal("window should not apply after effective_to")
	}
}

func TestWindowAppliesOn_NonUTCClinic(t *testing.T) {
	hcm := time.FixedZone("UTC+7", 7*3600)

	// Effective bounds are stored as UTC instants; the window must still
	// apply on the named dates in the clinic's own calendar.
	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC) // a Tuesday
	to := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)

	w := validWindow()
	w.DayOfWeek = int(time.Tuesday)
	w.EffectiveFrom, w.EffectiveTo = &from, &to

	sep1 := time.Date(2026, 9, 1, 0, 0, 0, 0, hcm)
	if !w.AppliesOn(sep1) {
		t.Fatal("window should apply on effective_from in the clinic timezone")
	}
	sep15 := time.Date(2026, 9, 15, 0, 0, 0, 0, hcm)
	if !w.AppliesOn(sep15) {
		t.Fatal("window should apply on effective_to in the clinic timezone")
	}
	if w.AppliesOn(time.Date(2026, 8, 25, 0, 0, 0, 0, hcm)) {
		t.Fatal("window should not apply the Tuesday before effective_from")
	}
	if w.AppliesOn(time.Date(2026, 9, 22, 0, 0, 0, 0, hcm)) {
		t.Fatal("window should not apply the Tuesday after effective_to")
	}
}

func TestWindowSpanOn(t *testing.T) {
	w := validWindow()
	date := time.Date(2026, 3, 9, 15, 42, 0, 0, time.UTC) // time of day is irrelevant

	span := w.SpanOn(date, time.UTC)
	wantStart := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	if !span.Start.Equal(wantStart) || !span.End.Equal(wantEnd) {
		t.Fatalf("span = [%v, %v), want [%v, %v)", span.Start, span.End, wantStart, wantEnd)
	}
}

func TestTimeOffValidate(t *testing.T) {
	start := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	valid := &TimeOff{
		ID:        uuid.New(),
		DoctorID:  uuid.New(),
		ClinicID:  uuid.New(),
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid time off rejected: %v", err)
	}

	inverted := *valid
	inverted.StartTime, inverted.EndTime = inverted.EndTime, inverted.StartTime
	if err := inverted.Validate(); err == nil {
		t.Fatal("expected error for inverted interval")
	}

	empty := *valid
	empty.EndTime = empty.StartTime
	if err := empty.Validate(); err == nil {
		t.Fatal("expected error for empty interval")
	}
}
