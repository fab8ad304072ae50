package examgen

import (
	"fmt"
	"strings"

	"studyflow/internal/exam"
)

// The source material may have had figures, tables and code stripped
// before reaching this layer, so every system prompt forbids questions
// that depend on such content.
const avoidVisualInstruction = `
Important: The input material may contain figures, tables, or code snippets that are not visible to the student.
Do NOT create any question that depends on such visual or code-based content.
If necessary, skip those parts and focus only on explainable text concepts.`

const choiceSystemPrompt = `You are an expert educational content creator generating multiple choice questions for students.

Guidelines:
- Use only textual content. Ignore diagrams, figures, tables, or code snippets.
- Each question should be conceptually rich and test understanding, not trivial facts.
- Make distractors plausible so the question requires comprehension.
- Do not refer to visuals (e.g., "according to the chart" or "in the code shown").
- Keep questions concise, factual, and unambiguous.`

const trueFalseSystemPrompt = `You are an expert educational content creator generating true/false questions for students.

Guidelines:
- Use only textual content. Ignore diagrams, figures, tables, or code snippets.
- Each statement should be conceptually rich and test understanding, not trivial facts.
- Avoid obvious cues like "always", "never", or "all of the above".
- Make false statements subtly incorrect so detecting them requires comprehension.
- Do not refer to visuals (e.g., "according to the chart" or "in the code shown").
- Keep statements concise, factual, and unambiguous.`

const shortAnswerSystemPrompt = `You are an expert educator creating short answer questions for students.

Guidelines:
- Use only textual content. Ignore or skip any sections describing images, code, or diagrams.
- Each question should require 2-4 sentence responses demonstrating reasoning or conceptual understanding.
- Avoid factual recall questions; focus on application, comparison, or explanation.
- Do not refer to visuals or code (e.g., "in the figure" or "what does this code do").
- Provide a well-written SAMPLE_ANSWER and KEY_POINTS that show what an ideal response includes.
- Use clear, academic, and accessible language suitable for exams.`

// systemPrompt returns the type-specific system instruction.
func systemPrompt(typ exam.QuestionType) string {
	var base string
	switch typ {
	case exam.TypeMultipleChoice:
		base = choiceSystemPrompt
	case exam.TypeTrueFalse:
		base = trueFalseSystemPrompt
	case exam.TypeShortAnswer:
		base = shortAnswerSystemPrompt
	}
	return base + "\n" + avoidVisualInstruction
}

// buildPrompt embeds the requested count, the strict output template
// the parser expects, and the source text.
func buildPrompt(typ exam.QuestionType, source string, count int) string {
	var sb strings.Builder

	switch typ {
	case exam.TypeMultipleChoice:
		fmt.Fprintf(&sb, "Create exactly %d multiple choice questions from this material.\n\n", count)
		sb.WriteString(`Format EXACTLY like this for each question:
Q: [Clear question text]
A) [Option A]
B) [Option B]
C) [Option C]
D) [Option D]
CORRECT: [Letter of correct answer]
EXPLANATION: [Brief explanation why this is correct]
`)
	case exam.TypeTrueFalse:
		fmt.Fprintf(&sb, "Create exactly %d true/false questions from this material.\n\n", count)
		sb.WriteString(`Format EXACTLY like this for each question:
Q: [Statement to evaluate]
ANSWER: [TRUE or FALSE]
EXPLANATION: [Brief explanation]
`)
	case exam.TypeShortAnswer:
		fmt.Fprintf(&sb, "Create exactly %d short answer questions from this material.\n\n", count)
		sb.WriteString(`Format EXACTLY like this for each question:
Q: [Question requiring 2-4 sentence answer]
SAMPLE_ANSWER: [Example of a good answer]
KEY_POINTS: [Main points that should be included]
`)
	}

	sb.WriteString("\nLeave one blank line between questions.\n\nStudy Material:\n")
	sb.WriteString(source)
	sb.WriteString("\n\nQuestions:")

	return sb.String()
}
