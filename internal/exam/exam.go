// Package exam defines the durable exam record format and the pure
// grading and attempt-tracking logic over it.
package exam

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// QuestionType tags the three supported question variants.
type QuestionType string

const (
	TypeMultipleChoice QuestionType = "multiple_choice"
	TypeTrueFalse      QuestionType = "true_false"
	TypeShortAnswer    QuestionType = "short_answer"
)

// Question is the sealed interface implemented by the three question
// variants. Each variant carries only the fields that are valid for it.
type Question interface {
	Kind() QuestionType
	// Text returns the question or statement text shown to the student.
	Text() string

	question()
}

// MultipleChoice is a four-option question keyed by letters A-D.
type MultipleChoice struct {
	Question    string            `json:"question"`
	Options     map[string]string `json:"options"`
	Correct     string            `json:"correct_answer"`
	Explanation string            `json:"explanation"`
}

func (q MultipleChoice) Kind() QuestionType { return TypeMultipleChoice }
func (q MultipleChoice) Text() string       { return q.Question }
func (MultipleChoice) question()            {}

// TrueFalse is a statement to be judged true or false.
type TrueFalse struct {
	Question    string `json:"question"`
	Correct     bool   `json:"correct_answer"`
	Explanation string `json:"explanation"`
}

func (q TrueFalse) Kind() QuestionType { return TypeTrueFalse }
func (q TrueFalse) Text() string       { return q.Question }
func (TrueFalse) question()            {}

// ShortAnswer is a free-text question graded fuzzily against a sample
// answer and optional key points.
type ShortAnswer struct {
	Question     string `json:"question"`
	SampleAnswer string `json:"sample_answer"`
	KeyPoints    string `json:"key_points"`
}

func (q ShortAnswer) Kind() QuestionType { return TypeShortAnswer }
func (q ShortAnswer) Text() string       { return q.Question }
func (ShortAnswer) question()            {}

// Questions is an ordered question list. Order is significant: answers
// reference questions by position, not by id.
type Questions []Question

func (qs Questions) MarshalJSON() ([]byte, error) {
	out := make([]json.RawMessage, 0, len(qs))
	for _, q := range qs {
		raw, err := marshalQuestion(q)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return json.Marshal(out)
}

func (qs *Questions) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	list := make(Questions, 0, len(raws))
	for _, raw := range raws {
		q, err := unmarshalQuestion(raw)
		if err != nil {
			return err
		}
		list = append(list, q)
	}
	*qs = list
	return nil
}

func marshalQuestion(q Question) (json.RawMessage, error) {
	var body []byte
	var err error
	switch v := q.(type) {
	case MultipleChoice:
		body, err = json.Marshal(struct {
			Type QuestionType `json:"type"`
			MultipleChoice
		}{v.Kind(), v})
	case TrueFalse:
		body, err = json.Marshal(struct {
			Type QuestionType `json:"type"`
			TrueFalse
		}{v.Kind(), v})
	case ShortAnswer:
		body, err = json.Marshal(struct {
			Type QuestionType `json:"type"`
			ShortAnswer
		}{v.Kind(), v})
	default:
		return nil, fmt.Errorf("unknown question variant %T", q)
	}
	return body, err
}

func unmarshalQuestion(raw json.RawMessage) (Question, error) {
	var tag struct {
		Type QuestionType `json:"type"`
	}
	if err := json.Unmarshal(raw, &tag); err != nil {
		return nil, err
	}
	switch tag.Type {
	case TypeMultipleChoice:
		var q MultipleChoice
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, err
		}
		return q, nil
	case TypeTrueFalse:
		var q TrueFalse
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, err
		}
		return q, nil
	case TypeShortAnswer:
		var q ShortAnswer
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, err
		}
		return q, nil
	default:
		return nil, fmt.Errorf("unknown question type %q", tag.Type)
	}
}

// Attempt is one scored submission event. Immutable once created.
type Attempt struct {
	Timestamp  time.Time `json:"timestamp"`
	Score      int       `json:"score"`
	Total      int       `json:"total"`
	Percentage int       `json:"percentage"`
	TimeTaken  *int      `json:"time_taken,omitempty"` // seconds, optional
}

// Exam is the persisted unit combining generated questions with mutable
// attempt history.
type Exam struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Course        string     `json:"course"`
	ExamType      string     `json:"exam_type"`
	QuestionCount int        `json:"question_count"`
	CreatedAt     time.Time  `json:"created_at"`
	Questions     Questions  `json:"questions"`
	AIModelUsed   string     `json:"ai_model_used"`
	DocumentIDs   []int64    `json:"document_ids"`
	DocumentNames []string   `json:"document_names"`
	Attempts      []Attempt  `json:"attempts"`
	BestScore     *int       `json:"best_score"`
	AttemptCount  int        `json:"attempt_count"`
	LastAttempt   *time.Time `json:"last_attempt"`
}

// Submission maps string-encoded question positions ("0", "1", ...) to
// the submitted answer: bool, option letter, or free text per type.
type Submission map[string]any

// NewID builds a globally unique exam identifier. The random suffix
// avoids collisions when several exams are generated within the same
// second for the same course.
func NewID(course string, now time.Time) string {
	return fmt.Sprintf("%s_exam_%s_%s", course, now.Format("20060102_150405"), uuid.NewString()[:8])
}
