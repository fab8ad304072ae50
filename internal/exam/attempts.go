package exam

import "time"

// AttemptOutcome reports the result of recording one attempt. Improved
// is returned to the caller but never persisted.
type AttemptOutcome struct {
	Attempt   Attempt
	BestScore int
	Number    int
	Improved  bool
}

// RecordAttempt appends a new attempt to the exam's history and
// recomputes the derived best-score, attempt-count and last-attempt
// fields. Persistence is the caller's job.
//
// Improved is set only when this is not the first attempt and the new
// percentage meets or beats the best score recorded before this call.
func RecordAttempt(e *Exam, score, total, percentage int, timeTaken *int, now time.Time) AttemptOutcome {
	prevBest := e.BestScore

	attempt := Attempt{
		Timestamp:  now,
		Score:      score,
		Total:      total,
		Percentage: percentage,
		TimeTaken:  timeTaken,
	}
	e.Attempts = append(e.Attempts, attempt)

	best := percentage
	for _, a := range e.Attempts {
		if a.Percentage > best {
			best = a.Percentage
		}
	}
	e.BestScore = &best
	e.AttemptCount = len(e.Attempts)
	ts := attempt.Timestamp
	e.LastAttempt = &ts

	improved := e.AttemptCount > 1 && prevBest != nil && percentage >= *prevBest

	return AttemptOutcome{
		Attempt:   attempt,
		BestScore: best,
		Number:    e.AttemptCount,
		Improved:  improved,
	}
}

// Reset irreversibly clears the attempt history and the derived fields.
func Reset(e *Exam) {
	e.Attempts = []Attempt{}
	e.BestScore = nil
	e.AttemptCount = 0
	e.LastAttempt = nil
}

// AverageScore returns the rounded mean percentage across attempts, or
// nil when there are none.
func AverageScore(attempts []Attempt) *int {
	if len(attempts) == 0 {
		return nil
	}
	sum := 0
	for _, a := range attempts {
		sum += a.Percentage
	}
	avg := (sum + len(attempts)/2) / len(attempts)
	return &avg
}
