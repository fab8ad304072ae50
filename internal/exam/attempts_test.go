package exam

import (
	"testing"
	"time"
)

func TestRecordAttempt(t *testing.T) {
	e := &Exam{ID: "bio101_exam_20260101_120000_aabbccdd"}
	now := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)

	// First attempt is never an improvement.
	out := RecordAttempt(e, 6, 10, 60, nil, now)
	if out.Number != 1 {
		t.Fatalf("expected attempt 1, got %d", out.Number)
	}
	if out.Improved {
		t.Error("first attempt must not report improved")
	}
	if out.BestScore != 60 {
		t.Errorf("expected best 60, got %d", out.BestScore)
	}
	if e.BestScore == nil || *e.BestScore != 60 {
		t.Errorf("exam best score not updated: %v", e.BestScore)
	}
	if e.LastAttempt == nil || !e.LastAttempt.Equal(now) {
		t.Errorf("last attempt not stamped: %v", e.LastAttempt)
	}

	// Lower score keeps the previous best and is not an improvement.
	out = RecordAttempt(e, 4, 10, 40, nil, now.Add(time.Hour))
	if out.BestScore != 60 {
		t.Errorf("best should stay 60, got %d", out.BestScore)
	}
	if out.Improved {
		t.Error("lower score must not report improved")
	}

	// Matching the previous best on a repeat attempt counts as improved.
	out = RecordAttempt(e, 6, 10, 60, nil, now.Add(2*time.Hour))
	if !out.Improved {
		t.Error("matching the best on attempt 3 should report improved")
	}

	// Beating it does too, and raises the best.
	timeTaken := 420
	out = RecordAttempt(e, 9, 10, 90, &timeTaken, now.Add(3*time.Hour))
	if !out.Improved {
		t.Error("beating the best should report improved")
	}
	if out.BestScore != 90 {
		t.Errorf("expected best 90, got %d", out.BestScore)
	}
	if out.Number != 4 {
		t.Errorf("expected attempt 4, got %d", out.Number)
	}
	if e.AttemptCount != 4 {
		t.Errorf("expected 4 attempts, got %d", e.AttemptCount)
	}
	if got := e.Attempts[3].TimeTaken; got == nil || *got != 420 {
		t.Errorf("time taken not recorded: %v", got)
	}
}

func TestReset(t *testing.T) {
	e := &Exam{}
	RecordAttempt(e, 5, 10, 50, nil, time.Now())
	RecordAttempt(e, 7, 10, 70, nil, time.Now())

	Reset(e)
	if len(e.Attempts) != 0 {
		t.Errorf("expected no attempts, got %d", len(e.Attempts))
	}
	if e.Attempts == nil {
		t.Error("attempts should reset to an empty slice, not nil")
	}
	if e.BestScore != nil || e.LastAttempt != nil || e.AttemptCount != 0 {
		t.Error("derived fields not cleared")
	}

	// History restarts cleanly after a reset.
	out := RecordAttempt(e, 8, 10, 80, nil, time.Now())
	if out.Number != 1 || out.Improved {
		t.Errorf("post-reset attempt should be a fresh first attempt, got number=%d improved=%v", out.Number, out.Improved)
	}
}

func TestAverageScore(t *testing.T) {
	if got := AverageScore(nil); got != nil {
		t.Errorf("expected nil for no attempts, got %d", *got)
	}

	attempts := []Attempt{
		{Percentage: 50},
		{Percentage: 70},
		{Percentage: 71},
	}
	got := AverageScore(attempts)
	if got == nil || *got != 64 {
		t.Errorf("expected rounded average 64, got %v", got)
	}
}
