package exam

import (
	"strconv"
	"testing"
)

func mcQuestion(correct string) MultipleChoice {
	return MultipleChoice{
		Question: "Which process produces ATP?",
		Options: map[string]string{
			"A": "Photosynthesis",
			"B": "Cellular respiration",
			"C": "Osmosis",
			"D": "Diffusion",
		},
		Correct:     correct,
		Explanation: "Cellular respiration produces ATP.",
	}
}

func TestGradeMultipleChoice(t *testing.T) {
	tests := []struct {
		name   string
		answer any
		want   bool
	}{
		{"exact letter", "B", true},
		{"lowercase letter", "b", true},
		{"padded letter", "  B  ", true},
		{"wrong letter", "A", false},
		{"missing answer", nil, false},
		{"empty string", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := gradeMultipleChoice(mcQuestion("B"), tt.answer)
			if got != tt.want {
				t.Errorf("answer %v: got %v, want %v", tt.answer, got, tt.want)
			}
		})
	}
}

func TestGradeTrueFalse(t *testing.T) {
	q := TrueFalse{Question: "Mitochondria have their own DNA.", Correct: true}

	tests := []struct {
		name   string
		answer any
		want   bool
	}{
		{"native bool match", true, true},
		{"native bool mismatch", false, false},
		{"string True", "True", true},
		{"string true padded", " true ", true},
		{"string false", "false", false},
		{"unrecognized token", "yes", false},
		{"substring is not a token", "untrue", false},
		{"missing answer", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := gradeTrueFalse(q, tt.answer)
			if got != tt.want {
				t.Errorf("answer %v: got %v, want %v", tt.answer, got, tt.want)
			}
		})
	}
}

func TestGradeShortAnswer(t *testing.T) {
	q := ShortAnswer{
		Question:     "Describe the role of chlorophyll.",
		SampleAnswer: "Chlorophyll absorbs light energy to drive photosynthesis in plants",
		KeyPoints:    "absorbs light, drives photosynthesis, found in chloroplasts",
	}

	tests := []struct {
		name   string
		answer any
		want   bool
	}{
		// One of three key points matched (1 >= 3*0.3).
		{"key point match", "the pigment absorbs light in the leaf", true},
		// 9 runes, below the minimum length.
		{"too short", "absorbs l", false},
		{"missing answer", nil, false},
		{"unrelated text", "the earth orbits around our own yellow sun", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := gradeShortAnswer(q, tt.answer)
			if got != tt.want {
				t.Errorf("answer %v: got %v, want %v", tt.answer, got, tt.want)
			}
		})
	}
}

func TestGradeShortAnswerWordOverlap(t *testing.T) {
	// No separator in the key points means no fragments, so grading
	// falls through to word overlap against the sample answer.
	q := ShortAnswer{
		Question:     "What is osmosis?",
		SampleAnswer: "water moves across a membrane toward higher solute concentration",
		KeyPoints:    "osmosis",
	}

	// Sample has 9 distinct words; threshold is 9*0.2 = 1.8 matches.
	if !gradeShortAnswer(q, "liquid water moves through a barrier") {
		t.Error("expected 3 overlapping words to pass the 20% threshold")
	}
	if gradeShortAnswer(q, "heat transfer between touching objects") {
		t.Error("expected 0 overlapping words to fail")
	}
}

func TestGradeShortAnswerOverlapBoundary(t *testing.T) {
	// 7 distinct sample words put the threshold at 1.4: two shared
	// words pass, one does not. The comparison is float, no rounding.
	q := ShortAnswer{
		Question:     "What do mitochondria do?",
		SampleAnswer: "the mitochondria produces energy via cellular respiration",
	}

	if !gradeShortAnswer(q, "mitochondria make our energy somehow") {
		t.Error("2 of 7 shared words should pass")
	}
	if gradeShortAnswer(q, "mitochondria are small organelles inside") {
		t.Error("1 of 7 shared words should fail")
	}
}

func TestSplitKeyPoints(t *testing.T) {
	tests := []struct {
		name      string
		keyPoints string
		want      []string
	}{
		{"comma separated", "absorbs light, drives photosynthesis", []string{"absorbs light", "drives photosynthesis"}},
		{"semicolon wins over dash", "cell wall; semi-permeable membrane", []string{"cell wall", "semi-permeable membrane"}},
		{"short fragments dropped", "ATP, ion, electron transport", []string{"electron transport"}},
		{"no separator", "photosynthesis", nil},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitKeyPoints(tt.keyPoints)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("fragment %d: got %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestGradeWholeSubmission(t *testing.T) {
	questions := Questions{
		mcQuestion("B"),
		TrueFalse{Question: "Water boils at 100C at sea level.", Correct: true},
		ShortAnswer{
			Question:     "Explain diffusion.",
			SampleAnswer: "particles move from high to low concentration",
			KeyPoints:    "high concentration, low concentration",
		},
	}

	sub := Submission{
		"0": "B",
		"1": "true",
		"2": "stuff moves from high concentration to low concentration regions",
	}

	got := Grade(questions, sub)
	if got.Score != 3 || got.Total != 3 {
		t.Fatalf("expected 3/3, got %d/%d", got.Score, got.Total)
	}
	if got.Percentage != 100 {
		t.Errorf("expected 100%%, got %d", got.Percentage)
	}
	if len(got.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got.Results))
	}
	if got.Results[2].KeyPoints == nil {
		t.Error("short answer result should carry key points")
	}

	// Unanswered questions grade incorrect, never error.
	partial := Grade(questions, Submission{"0": "B"})
	if partial.Score != 1 {
		t.Errorf("expected score 1, got %d", partial.Score)
	}
	if partial.Percentage != 33 {
		t.Errorf("expected rounded 33%%, got %d", partial.Percentage)
	}
}

func TestGradeRounding(t *testing.T) {
	// 7 of 9 correct is 77.78%, rounded to 78.
	questions := make(Questions, 9)
	sub := Submission{}
	for i := range questions {
		questions[i] = TrueFalse{Question: "q", Correct: true}
		if i < 7 {
			sub[strconv.Itoa(i)] = true
		} else {
			sub[strconv.Itoa(i)] = false
		}
	}

	got := Grade(questions, sub)
	if got.Score != 7 {
		t.Fatalf("expected score 7, got %d", got.Score)
	}
	if got.Percentage != 78 {
		t.Errorf("expected 78%%, got %d", got.Percentage)
	}
}

func TestGradeEmptyExam(t *testing.T) {
	got := Grade(Questions{}, Submission{})
	if got.Score != 0 || got.Total != 0 || got.Percentage != 0 {
		t.Errorf("empty exam should grade 0/0 at 0%%, got %d/%d at %d%%", got.Score, got.Total, got.Percentage)
	}
}
