// Package examgen drives the text-generation collaborator to produce
// exam questions and parses its free-text responses into structured
// question records.
package examgen

import (
	"regexp"
	"strings"

	"studyflow/internal/exam"
)

// questionMarker introduces each question block in a generated
// response. Text before the first marker is preamble and is discarded.
var questionMarker = regexp.MustCompile(`(?m)^\s*Q:[ \t]*`)

var optionLine = regexp.MustCompile(`^[A-D]\)`)

// Parse turns a raw generated response into well-formed questions of
// the given type. The upstream generator has no enforced schema, so
// parsing is tolerant and best-effort: malformed fragments are dropped
// per question, never reported as errors.
func Parse(raw string, typ exam.QuestionType) exam.Questions {
	var questions exam.Questions
	for _, section := range splitSections(raw) {
		var q exam.Question
		var ok bool
		switch typ {
		case exam.TypeMultipleChoice:
			q, ok = parseMultipleChoice(section)
		case exam.TypeTrueFalse:
			q, ok = parseTrueFalse(section)
		case exam.TypeShortAnswer:
			q, ok = parseShortAnswer(section)
		}
		if ok {
			questions = append(questions, q)
		}
	}
	return questions
}

func splitSections(raw string) []string {
	sections := questionMarker.Split(raw, -1)
	if len(sections) == 0 {
		return nil
	}
	return sections[1:]
}

// sectionLines returns the question text (first line) and the
// remaining trimmed lines of a section.
func sectionLines(section string) (string, []string) {
	lines := strings.Split(strings.TrimSpace(section), "\n")
	text := strings.TrimSpace(lines[0])
	rest := make([]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		rest = append(rest, strings.TrimSpace(line))
	}
	return text, rest
}

func parseMultipleChoice(section string) (exam.Question, bool) {
	text, lines := sectionLines(section)

	options := make(map[string]string)
	correct := ""
	explanation := ""

	for _, line := range lines {
		switch {
		case optionLine.MatchString(line):
			options[line[:1]] = strings.TrimSpace(line[2:])
		case strings.HasPrefix(line, "CORRECT:"):
			value := strings.ToUpper(strings.TrimSpace(markerValue(line)))
			if value != "" {
				correct = value[:1]
			}
		case strings.HasPrefix(line, "EXPLANATION:"):
			explanation = markerValue(line)
		}
	}

	if text == "" || len(options) != 4 || correct == "" {
		return nil, false
	}
	if _, ok := options[correct]; !ok {
		return nil, false
	}
	return exam.MultipleChoice{
		Question:    text,
		Options:     options,
		Correct:     correct,
		Explanation: explanation,
	}, true
}

func parseTrueFalse(section string) (exam.Question, bool) {
	text, lines := sectionLines(section)

	answered := false
	answer := false
	explanation := ""

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "ANSWER:"):
			answered = true
			// Any value other than one containing TRUE means false.
			answer = strings.Contains(strings.ToUpper(markerValue(line)), "TRUE")
		case strings.HasPrefix(line, "EXPLANATION:"):
			explanation = markerValue(line)
		}
	}

	if text == "" || !answered {
		return nil, false
	}
	return exam.TrueFalse{
		Question:    text,
		Correct:     answer,
		Explanation: explanation,
	}, true
}

func parseShortAnswer(section string) (exam.Question, bool) {
	text, lines := sectionLines(section)

	sampleAnswer := ""
	keyPoints := ""

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "SAMPLE_ANSWER:"):
			sampleAnswer = markerValue(line)
		case strings.HasPrefix(line, "KEY_POINTS:"):
			keyPoints = markerValue(line)
		}
	}

	if text == "" || sampleAnswer == "" {
		return nil, false
	}
	return exam.ShortAnswer{
		Question:     text,
		SampleAnswer: sampleAnswer,
		KeyPoints:    keyPoints,
	}, true
}

// markerValue returns the trimmed text after the first colon.
func markerValue(line string) string {
	_, value, _ := strings.Cut(line, ":")
	return strings.TrimSpace(value)
}
