package examgen

import (
	"context"
	"fmt"
	"log/slog"

	"studyflow/internal/exam"
)

// MaxSourceChars bounds the source text embedded into a generation
// prompt. Longer material overflows the collaborator's context window.
const MaxSourceChars = 15000

// TextGenerator is the text-generation capability this package drives.
type TextGenerator interface {
	Generate(ctx context.Context, prompt, system string) (string, error)
}

// Generator produces typed exam questions from source text.
type Generator struct {
	ai TextGenerator
}

// New creates a Generator backed by the given text-generation capability.
func New(ai TextGenerator) *Generator {
	return &Generator{ai: ai}
}

// Batch records the outcome of one per-type generation call.
type Batch struct {
	Type      exam.QuestionType
	Requested int
	Generated int
	Err       error
}

// Report collects per-type batch outcomes so callers can report
// partial failure precisely.
type Report struct {
	Batches []Batch
}

// Failed returns the batches whose generation call errored.
func (r Report) Failed() []Batch {
	var failed []Batch
	for _, b := range r.Batches {
		if b.Err != nil {
			failed = append(failed, b)
		}
	}
	return failed
}

// Generate issues one generation call for the given question type and
// parses the response. The collaborator may return more or fewer
// questions than asked; the result is truncated to count and a short
// result is accepted silently.
func (g *Generator) Generate(ctx context.Context, typ exam.QuestionType, source string, count int) (exam.Questions, error) {
	response, err := g.ai.Generate(ctx, buildPrompt(typ, TruncateSource(source), count), systemPrompt(typ))
	if err != nil {
		return nil, fmt.Errorf("generate %s questions: %w", typ, err)
	}

	questions := Parse(response, typ)
	if len(questions) > count {
		questions = questions[:count]
	}
	return questions, nil
}

// MixedSplit computes the fixed 50/30/20 type split for a mixed exam.
// Multiple-choice and true/false round down; short-answer takes the
// remainder.
func MixedSplit(total int) (mc, tf, sa int) {
	mc = total * 50 / 100
	tf = total * 30 / 100
	sa = total - mc - tf
	return mc, tf, sa
}

// GenerateMixed produces a mixed exam under the fixed type split,
// concatenating results in the order multiple-choice, true/false,
// short-answer. A failed batch contributes zero questions and the
// remaining batches still run; the Report carries the per-batch
// outcomes so the caller can decide whether a thin result is an error.
func (g *Generator) GenerateMixed(ctx context.Context, source string, total int) (exam.Questions, Report) {
	mc, tf, sa := MixedSplit(total)

	counts := []struct {
		typ   exam.QuestionType
		count int
	}{
		{exam.TypeMultipleChoice, mc},
		{exam.TypeTrueFalse, tf},
		{exam.TypeShortAnswer, sa},
	}

	var all exam.Questions
	var report Report

	for _, c := range counts {
		if c.count <= 0 {
			continue
		}
		questions, err := g.Generate(ctx, c.typ, source, c.count)
		if err != nil {
			slog.Error("question generation failed", "type", c.typ, "requested", c.count, "error", err)
		}
		report.Batches = append(report.Batches, Batch{
			Type:      c.typ,
			Requested: c.count,
			Generated: len(questions),
			Err:       err,
		})
		all = append(all, questions...)
	}

	return all, report
}

// TruncateSource caps source text at MaxSourceChars characters.
func TruncateSource(s string) string {
	runes := []rune(s)
	if len(runes) <= MaxSourceChars {
		return s
	}
	return string(runes[:MaxSourceChars])
}
