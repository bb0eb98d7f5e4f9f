package models

import (
	"encoding/json"
	"testing"
	"time"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return ts
}

func TestDurationSeconds(t *testing.T) {
	start := mustTime(t, "2024-01-01T10:00:00Z")

	tests := []struct {
		name     string
		end      time.Time
		expected int
	}{
		{"whole seconds", start.Add(2730 * time.Second), 2730},
		{"fraction is floored", start.Add(90*time.Second + 999*time.Millisecond), 90},
		{"equal bounds", start, 0},
		{"end before start clamps", start.Add(-time.Hour), 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DurationSeconds(start, tc.end); got != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, got)
			}
		})
	}
}

func TestStudySession_SetEndTimeComputesDuration(t *testing.T) {
	s := &StudySession{}
	s.SetStartTime(mustTime(t, "2024-01-01T10:00:00Z"))

	end := mustTime(t, "2024-01-01T10:45:30Z")
	s.SetEndTime(&end)

	if s.Duration != 2730 {
		t.Fatalf("expected duration 2730, got %d", s.Duration)
	}
	if s.Active() {
		t.Fatalf("session with end time should not be active")
	}
}

func TestStudySession_ClearEndTimeResetsDuration(t *testing.T) {
	s := &StudySession{}
	s.SetStartTime(mustTime(t, "2024-01-01T10:00:00Z"))
	end := mustTime(t, "2024-01-01T11:00:00Z")
	s.SetEndTime(&end)

	s.SetEndTime(nil)

	if s.Duration != 0 {
		t.Fatalf("expected duration reset to 0, got %d", s.Duration)
	}
	if !s.Active() {
		t.Fatalf("expected session to be active after clearing end time")
	}
}

func TestStudySession_StartChangeRecomputes(t *testing.T) {
	s := &StudySession{}
	s.SetStartTime(mustTime(t, "2024-01-01T10:00:00Z"))
	end := mustTime(t, "2024-01-01T11:00:00Z")
	s.SetEndTime(&end)

	s.SetStartTime(mustTime(t, "2024-01-01T10:30:00Z"))
	if s.Duration != 1800 {
		t.Fatalf("expected 1800 after moving start, got %d", s.Duration)
	}

	s.SetStartTime(mustTime(t, "2024-01-01T12:00:00Z"))
	if s.Duration != 0 {
		t.Fatalf("expected clamp to 0 when start passes end, got %d", s.Duration)
	}
}

func TestStudySession_TimesNormalizedToUTC(t *testing.T) {
	s := &StudySession{}
	plus2 := time.FixedZone("plus2", 2*60*60)
	s.SetStartTime(time.Date(2024, 1, 1, 12, 0, 0, 0, plus2))

	if s.StartTime.Location() != time.UTC || s.StartTime.Hour() != 10 {
		t.Fatalf("expected 10:00 UTC, got %s", s.StartTime)
	}
}

func TestStudySession_OverrideDurationClamps(t *testing.T) {
	s := &StudySession{}
	s.OverrideDuration(-5)
	if s.Duration != 0 {
		t.Fatalf("expected negative override to clamp to 0, got %d", s.Duration)
	}
	s.OverrideDuration(600)
	if s.Duration != 600 {
		t.Fatalf("expected 600, got %d", s.Duration)
	}
}

func TestOptionalString_Unmarshal(t *testing.T) {
	var req UpdateStudySessionRequest
	if err := json.Unmarshal([]byte(`{"end_time":null,"subject":"Math"}`), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !req.EndTime.Set || req.EndTime.Value != nil {
		t.Fatalf("expected end_time to be set to null, got %+v", req.EndTime)
	}
	if !req.EndTime.IsNull() {
		t.Fatalf("expected IsNull for explicit null")
	}
	if !req.Subject.Set || req.Subject.Value == nil || *req.Subject.Value != "Math" {
		t.Fatalf("expected subject Math, got %+v", req.Subject)
	}
	if req.StartTime.Set {
		t.Fatalf("absent key must not be marked as set")
	}
}

func TestDurationSeconds_LongSpanExceedsInt32(t *testing.T) {
	start := time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	got := DurationSeconds(start, end)
	if want := int(end.Unix() - start.Unix()); got != want {
		t.Fatalf("DurationSeconds = %d, want %d", got, want)
	}
	if got <= 1<<31-1 {
		t.Fatalf("expected a span beyond the 32-bit range, got %d", got)
	}
}
