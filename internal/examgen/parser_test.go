package examgen

import (
	"testing"

	"studyflow/internal/exam"
)

const mcResponse = `Here are the questions you asked for.

Q: Which organelle performs photosynthesis?
A) Nucleus
B) Chloroplast
C) Ribosome
D) Vacuole
CORRECT: B
EXPLANATION: Chloroplasts contain chlorophyll.

Q: Which molecule carries genetic information?
A) RNA only
B) Protein
C) DNA
D) Lipids
CORRECT: C
EXPLANATION: DNA stores the genome.
`

func TestParseMultipleChoice(t *testing.T) {
	questions := Parse(mcResponse, exam.TypeMultipleChoice)
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}

	mc, ok := questions[0].(exam.MultipleChoice)
	if !ok {
		t.Fatalf("expected MultipleChoice, got %T", questions[0])
	}
	if mc.Question != "Which organelle performs photosynthesis?" {
		t.Errorf("wrong question text: %q", mc.Question)
	}
	if mc.Correct != "B" {
		t.Errorf("wrong correct letter: %q", mc.Correct)
	}
	if mc.Options["D"] != "Vacuole" {
		t.Errorf("wrong option D: %q", mc.Options["D"])
	}
	if mc.Explanation != "Chloroplasts contain chlorophyll." {
		t.Errorf("wrong explanation: %q", mc.Explanation)
	}
}

func TestParseMultipleChoiceMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{
			"missing option",
			"Q: Incomplete?\nA) one\nB) two\nC) three\nCORRECT: A",
			0,
		},
		{
			"missing correct",
			"Q: No answer?\nA) one\nB) two\nC) three\nD) four",
			0,
		},
		{
			"correct letter not among options",
			"Q: Bad letter?\nA) one\nB) two\nC) three\nD) four\nCORRECT: E",
			0,
		},
		{
			"one good among bad",
			"Q: Broken?\nA) one\nCORRECT: A\n\nQ: Fine?\nA) one\nB) two\nC) three\nD) four\nCORRECT: D",
			1,
		},
		{
			"no marker at all",
			"The material covers photosynthesis in depth.",
			0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.raw, exam.TypeMultipleChoice)
			if len(got) != tt.want {
				t.Errorf("expected %d questions, got %d", tt.want, len(got))
			}
		})
	}
}

func TestParseMarkerAtStart(t *testing.T) {
	// A response that opens directly with a question, no preamble.
	raw := "Q: Water is a polar molecule.\nANSWER: TRUE\nEXPLANATION: Uneven charge distribution."
	questions := Parse(raw, exam.TypeTrueFalse)
	if len(questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(questions))
	}
}

func TestParseTrueFalse(t *testing.T) {
	raw := `Q: The mitochondrion has its own DNA.
ANSWER: TRUE
EXPLANATION: Mitochondrial DNA is inherited maternally.

Q: All cells have a nucleus.
ANSWER: False
EXPLANATION: Prokaryotes lack one.

Q: Statement with no answer line.
EXPLANATION: Broken.
`
	questions := Parse(raw, exam.TypeTrueFalse)
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}

	first := questions[0].(exam.TrueFalse)
	if !first.Correct {
		t.Error("first statement should be true")
	}
	second := questions[1].(exam.TrueFalse)
	if second.Correct {
		t.Error("second statement should be false")
	}
}

func TestParseShortAnswer(t *testing.T) {
	raw := `Q: Explain the role of enzymes.
SAMPLE_ANSWER: Enzymes are proteins that speed up chemical reactions by lowering activation energy.
KEY_POINTS: proteins, speed up reactions, lower activation energy

Q: Question without a sample answer.
KEY_POINTS: orphaned points
`
	questions := Parse(raw, exam.TypeShortAnswer)
	if len(questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(questions))
	}

	sa := questions[0].(exam.ShortAnswer)
	if sa.SampleAnswer == "" {
		t.Error("sample answer missing")
	}
	if sa.KeyPoints != "proteins, speed up reactions, lower activation energy" {
		t.Errorf("wrong key points: %q", sa.KeyPoints)
	}
}

func TestParseIdempotentShape(t *testing.T) {
	// Parsing the same response twice yields identical results.
	a := Parse(mcResponse, exam.TypeMultipleChoice)
	b := Parse(mcResponse, exam.TypeMultipleChoice)
	if len(a) != len(b) {
		t.Fatalf("parse not deterministic: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Text() != b[i].Text() {
			t.Errorf("question %d differs between parses", i)
		}
	}
}
