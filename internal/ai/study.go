package ai

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// SummaryLength selects how detailed a generated summary should be.
type SummaryLength string

const (
	SummaryShort    SummaryLength = "short"
	SummaryMedium   SummaryLength = "medium"
	SummaryDetailed SummaryLength = "detailed"
)

const summarySystemPrompt = `You are an expert educational assistant who creates clear, accurate, and structured summaries of study material.

Guidelines:
- Summarize only from the text. Ignore or skip any content describing images, figures, charts, or code snippets.
- Never reference visuals or code (e.g., "as shown in the figure" or "in the code example").
- Focus on the core ideas, relationships between concepts, definitions, and explanations.
- Preserve important details, terminology, and examples that can be understood from text alone.
- Organize the summary logically with headings, bullet points, or paragraphs for readability.
- Use a professional and accessible tone suitable for academic study.`

var summaryInstructions = map[SummaryLength]string{
	SummaryShort: `Create a concise summary in 3-5 bullet points that capture only the main textual ideas and themes.
Focus on the overarching concepts and key takeaways that can be understood from text alone.`,
	SummaryMedium: `Write a well-structured summary of 2-3 paragraphs.
Cover the main concepts, definitions, and relationships between ideas, using clear academic language.
The goal is to help a student recall and understand the key points efficiently.`,
	SummaryDetailed: `Create a comprehensive, detailed summary suitable for in-depth studying.
Include all major concepts, key definitions and terminology, relationships between topics,
and the important steps, processes, or reasoning described in the material.
Organize the summary into clearly labeled sections.
Ensure a student could learn the material fully from your summary without the original notes.`,
}

// Summarize generates a summary of lecture notes at the given length.
func (c *Client) Summarize(ctx context.Context, text string, length SummaryLength) (string, error) {
	instruction, ok := summaryInstructions[length]
	if !ok {
		instruction = summaryInstructions[SummaryDetailed]
	}

	prompt := fmt.Sprintf("%s\n\nLecture Notes:\n%s\n\nSummary:", instruction, text)
	summary, err := c.Generate(ctx, prompt, summarySystemPrompt)
	if err != nil {
		return "", fmt.Errorf("generate summary: %w", err)
	}
	return summary, nil
}

// Flashcard is one generated question/answer card.
type Flashcard struct {
	Question   string
	Answer     string
	Difficulty string
}

const flashcardSystemPrompt = `You are an expert educational assistant creating flashcards to help students study effectively.

Guidelines:
- Base all flashcards only on the textual content provided.
- Ignore or skip any content describing code, images, figures, or tables.
- Make each question clear, specific, and self-contained.
- Keep answers concise but complete.
- Avoid trick questions, ambiguity, or redundancy.
- Each flashcard should be unique and test a distinct concept.`

var flashcardDifficulties = []struct {
	name        string
	instruction string
}{
	{"easy", `Focus on fundamental definitions, terms, and straightforward recall questions.
Test essential factual knowledge that can be directly stated from the text.`},
	{"medium", `Focus on conceptual understanding and reasoning.
Include "why" or "how" questions that connect multiple ideas or describe relationships.
Answers should show comprehension, not just memorization.`},
	{"hard", `Focus on application, synthesis, and higher-order thinking.
Create questions that require combining multiple concepts or reasoning about implications.
Answers should be brief but demonstrate analytical understanding.`},
}

// GenerateFlashcards creates cards at easy, medium and hard difficulty.
// A failed difficulty batch contributes zero cards; the other batches
// still run. The per-batch errors are returned alongside the cards.
func (c *Client) GenerateFlashcards(ctx context.Context, text string, perDifficulty int) ([]Flashcard, []error) {
	var all []Flashcard
	var errs []error

	for _, d := range flashcardDifficulties {
		prompt := fmt.Sprintf(`Create exactly %d %s difficulty flashcards from these lecture notes.
%s

Format each flashcard EXACTLY like this:
Q: [Clear, specific question]
A: [Concise, accurate answer]

Leave one blank line between flashcards.

Lecture Notes:
%s

%s Flashcards:`, perDifficulty, strings.ToUpper(d.name), d.instruction, text, strings.ToUpper(d.name))

		response, err := c.Generate(ctx, prompt, flashcardSystemPrompt)
		if err != nil {
			errs = append(errs, fmt.Errorf("generate %s flashcards: %w", d.name, err))
			continue
		}

		cards := parseFlashcards(response)
		if len(cards) > perDifficulty {
			cards = cards[:perDifficulty]
		}
		for i := range cards {
			cards[i].Difficulty = d.name
		}
		all = append(all, cards...)
	}

	return all, errs
}

var (
	flashQuestionMarker = regexp.MustCompile(`(?m)^\s*Q:[ \t]*`)
	flashAnswerMarker   = regexp.MustCompile(`(?m)^\s*A:[ \t]*`)
)

// parseFlashcards extracts Q:/A: pairs from a generated response,
// silently dropping fragments missing either side.
func parseFlashcards(text string) []Flashcard {
	var cards []Flashcard
	sections := flashQuestionMarker.Split(text, -1)
	for _, section := range sections[1:] {
		parts := flashAnswerMarker.Split(section, 2)
		if len(parts) != 2 {
			continue
		}
		question := strings.TrimSpace(parts[0])
		answer := strings.TrimSpace(parts[1])
		if question == "" || answer == "" {
			continue
		}
		cards = append(cards, Flashcard{Question: question, Answer: answer})
	}
	return cards
}
