package exam

import (
	"fmt"
	"sort"
	"strings"
)

const ruleWidth = 70

// FormatForPrint renders an exam as plain text suitable for printing,
// with blank answer spaces and no answers revealed.
func FormatForPrint(e Exam) string {
	var sb strings.Builder
	rule := strings.Repeat("=", ruleWidth)

	sb.WriteString(rule + "\n")
	sb.WriteString("EXAM: " + e.Title + "\n")
	sb.WriteString("Course: " + e.Course + "\n")
	fmt.Fprintf(&sb, "Questions: %d\n", len(e.Questions))
	sb.WriteString("Type: " + e.ExamType + "\n")
	sb.WriteString(rule + "\n\n")

	for i, q := range e.Questions {
		fmt.Fprintf(&sb, "Question %d:\n%s\n\n", i+1, q.Text())

		switch v := q.(type) {
		case MultipleChoice:
			for _, letter := range sortedLetters(v.Options) {
				fmt.Fprintf(&sb, "  %s) %s\n", letter, v.Options[letter])
			}
			sb.WriteString("\n")
		case TrueFalse:
			sb.WriteString("  [ ] TRUE\n  [ ] FALSE\n\n")
		case ShortAnswer:
			sb.WriteString("  Answer:\n")
			for i := 0; i < 3; i++ {
				sb.WriteString("  " + strings.Repeat("_", 60) + "\n")
			}
			sb.WriteString("\n")
		}

		sb.WriteString(strings.Repeat("-", ruleWidth) + "\n\n")
	}

	return sb.String()
}

// FormatAnswerKey renders the answer key for an exam.
func FormatAnswerKey(e Exam) string {
	var sb strings.Builder
	rule := strings.Repeat("=", ruleWidth)

	sb.WriteString(rule + "\n")
	sb.WriteString("ANSWER KEY: " + e.Title + "\n")
	sb.WriteString(rule + "\n\n")

	for i, q := range e.Questions {
		fmt.Fprintf(&sb, "Question %d: %s\n", i+1, truncate(q.Text(), 50))

		var explanation string
		switch v := q.(type) {
		case MultipleChoice:
			fmt.Fprintf(&sb, "  Answer: %s) %s\n", v.Correct, v.Options[v.Correct])
			explanation = v.Explanation
		case TrueFalse:
			answer := "FALSE"
			if v.Correct {
				answer = "TRUE"
			}
			sb.WriteString("  Answer: " + answer + "\n")
			explanation = v.Explanation
		case ShortAnswer:
			sb.WriteString("  Sample Answer: " + v.SampleAnswer + "\n")
			sb.WriteString("  Key Points: " + v.KeyPoints + "\n")
		}

		if explanation != "" {
			sb.WriteString("  Explanation: " + explanation + "\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func sortedLetters(options map[string]string) []string {
	letters := make([]string, 0, len(options))
	for l := range options {
		letters = append(letters, l)
	}
	sort.Strings(letters)
	return letters
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
