package exam

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// Answers shorter than this are rejected outright to block trivial
// short-answer submissions.
const minShortAnswerLen = 10

// Short-answer acceptance thresholds. Both paths are fuzzy signals, not
// strict requirements; either one passing marks the answer correct.
const (
	keyPointRatio    = 0.3
	wordOverlapRatio = 0.2
)

// keyPointSeparators are tried in order; the first one present in the
// key-points text wins.
var keyPointSeparators = []string{",", ";", "•", "-"}

// QuestionResult is the per-question grading detail returned to the
// caller. It is not persisted.
type QuestionResult struct {
	Index         int     `json:"question_index"`
	Correct       bool    `json:"correct"`
	UserAnswer    any     `json:"user_answer"`
	CorrectAnswer any     `json:"correct_answer"`
	Explanation   string  `json:"explanation"`
	KeyPoints     *string `json:"key_points"`
}

// GradeResult aggregates a scored submission.
type GradeResult struct {
	Score      int              `json:"score"`
	Total      int              `json:"total"`
	Percentage int              `json:"percentage"`
	Results    []QuestionResult `json:"results"`
}

// Grade scores a submission against an exam's questions by position.
// It is a pure function and never fails: absent or wrong-shaped answers
// are graded incorrect.
func Grade(questions Questions, sub Submission) GradeResult {
	results := make([]QuestionResult, 0, len(questions))
	correct := 0

	for idx, q := range questions {
		answer := sub[fmt.Sprintf("%d", idx)]
		res := gradeOne(idx, q, answer)
		if res.Correct {
			correct++
		}
		results = append(results, res)
	}

	total := len(questions)
	percentage := 0
	if total > 0 {
		percentage = int(math.Round(float64(correct) / float64(total) * 100))
	}

	return GradeResult{
		Score:      correct,
		Total:      total,
		Percentage: percentage,
		Results:    results,
	}
}

func gradeOne(idx int, q Question, answer any) QuestionResult {
	res := QuestionResult{
		Index:      idx,
		UserAnswer: answer,
	}

	switch v := q.(type) {
	case TrueFalse:
		res.Correct = gradeTrueFalse(v, answer)
		res.CorrectAnswer = v.Correct
		res.Explanation = v.Explanation
	case MultipleChoice:
		res.Correct = gradeMultipleChoice(v, answer)
		res.CorrectAnswer = v.Correct
		res.Explanation = v.Explanation
	case ShortAnswer:
		res.Correct = gradeShortAnswer(v, answer)
		res.CorrectAnswer = v.SampleAnswer
		kp := v.KeyPoints
		res.KeyPoints = &kp
	}
	return res
}

func gradeTrueFalse(q TrueFalse, answer any) bool {
	if b, ok := answer.(bool); ok {
		return b == q.Correct
	}
	parsed, ok := parseBool(fmt.Sprintf("%v", answer))
	return ok && parsed == q.Correct
}

// parseBool recognizes only the literal tokens "true" and "false",
// case-insensitively. Anything else matches neither value.
func parseBool(s string) (value, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return true, true
	case "false":
		return false, true
	default:
		return false, false
	}
}

func gradeMultipleChoice(q MultipleChoice, answer any) bool {
	if answer == nil {
		return false
	}
	got := strings.ToUpper(strings.TrimSpace(fmt.Sprintf("%v", answer)))
	return got != "" && got == strings.ToUpper(q.Correct)
}

// gradeShortAnswer accepts an answer when either the key-point path or
// the word-overlap path succeeds.
func gradeShortAnswer(q ShortAnswer, answer any) bool {
	if answer == nil || q.SampleAnswer == "" {
		return false
	}
	user := strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", answer)))
	sample := strings.ToLower(strings.TrimSpace(q.SampleAnswer))

	if utf8.RuneCountInString(user) < minShortAnswerLen {
		return false
	}

	if points := splitKeyPoints(q.KeyPoints); len(points) > 0 {
		matches := 0
		for _, p := range points {
			if strings.Contains(user, strings.ToLower(p)) {
				matches++
			}
		}
		if float64(matches) >= float64(len(points))*keyPointRatio {
			return true
		}
	}

	sampleWords := wordSet(sample)
	userWords := wordSet(user)
	overlap := 0
	for w := range sampleWords {
		if userWords[w] {
			overlap++
		}
	}
	return float64(overlap) >= float64(len(sampleWords))*wordOverlapRatio
}

// splitKeyPoints splits on the first separator found in the text,
// dropping fragments of three characters or fewer. A key-points string
// with no separator yields no fragments at all, leaving only the
// word-overlap path in play.
func splitKeyPoints(keyPoints string) []string {
	if keyPoints == "" {
		return nil
	}
	var parts []string
	for _, sep := range keyPointSeparators {
		if strings.Contains(keyPoints, sep) {
			for _, p := range strings.Split(keyPoints, sep) {
				if p = strings.TrimSpace(p); p != "" {
					parts = append(parts, p)
				}
			}
			break
		}
	}
	kept := parts[:0]
	for _, p := range parts {
		if utf8.RuneCountInString(p) > 3 {
			kept = append(kept, p)
		}
	}
	return kept
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		set[w] = true
	}
	return set
}
