package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"studyflow/internal/ai"
	"studyflow/internal/apperr"
)

const defaultCardsPerDifficulty = 5

// progressEvent is one frame of the upload processing stream.
type progressEvent struct {
	Stage    string `json:"stage"`
	Progress int    `json:"progress"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
	Result   any    `json:"result,omitempty"`
}

// sseWriter pushes progress events as server-sent events. Send failures
// after a client disconnect are ignored so processing can finish.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) *sseWriter {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, _ := w.(http.Flusher)
	return &sseWriter{w: w, flusher: flusher}
}

func (s *sseWriter) send(ev progressEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("marshal progress event", "error", err)
		return
	}
	fmt.Fprintf(s.w, "data: %s\n\n", data)
	if s.flusher != nil {
		s.flusher.Flush()
	}
}

// handleUpload ingests one document: it saves the file, extracts its
// text, records it under a course, then generates a summary and
// flashcards. Progress is streamed as SSE frames; AI stages keep
// reporting while a slow model call is in flight.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		h.writeError(w, apperr.Wrap(apperr.CodeInvalidRequest, err, "malformed multipart form"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, apperr.Wrap(apperr.CodeInvalidRequest, err, "file field is required"))
		return
	}
	defer file.Close()

	course := strings.ToUpper(strings.TrimSpace(r.FormValue("course")))
	if course == "" {
		course = "GENERAL"
	}
	cardsPer := defaultCardsPerDifficulty
	if v := r.FormValue("cards_per_difficulty"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.writeError(w, apperr.New(apperr.CodeInvalidRequest, "cards_per_difficulty must be a non-negative integer"))
			return
		}
		cardsPer = n
	}

	svc, err := h.aiFromRequest(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	stream := newSSEWriter(w)
	stream.send(progressEvent{Stage: "uploading", Progress: 5, Message: "receiving " + header.Filename})

	// Processing continues even if the client goes away mid-stream;
	// the uploaded document should not be half-ingested because a
	// browser tab closed.
	ctx := context.WithoutCancel(r.Context())

	if err := h.processUpload(ctx, stream, svc, file, header.Filename, course, cardsPer); err != nil {
		slog.Error("upload processing failed", "filename", header.Filename, "error", err)
		stream.send(progressEvent{Stage: "error", Progress: 100, Error: err.Error()})
	}
}

func (h *Handler) processUpload(ctx context.Context, stream *sseWriter, svc AIService, file io.Reader, filename, course string, cardsPer int) error {
	uploadDir := filepath.Join(h.cfg.DataDir, "uploads")
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return apperr.Wrap(apperr.CodePersistenceFailure, err, "create upload directory")
	}

	destPath := filepath.Join(uploadDir, fmt.Sprintf("%d_%s", h.now().Unix(), filepath.Base(filename)))
	if err := saveFile(destPath, file); err != nil {
		return apperr.Wrap(apperr.CodePersistenceFailure, err, "save uploaded file")
	}

	stream.send(progressEvent{Stage: "extracting", Progress: 20, Message: "extracting text"})
	extracted, err := h.extractor.Extract(destPath)
	if err != nil {
		removeFile(destPath)
		return apperr.Wrap(apperr.CodeExtractionFailure, err, "text extraction failed for %s", filename)
	}

	stream.send(progressEvent{Stage: "storing", Progress: 30, Message: "recording document"})
	if _, err := h.db.CreateCourse(course, ""); err != nil {
		return err
	}
	doc, err := h.db.CreateDocument(filename, destPath, course, extracted.PageCount)
	if err != nil {
		return err
	}

	stream.send(progressEvent{Stage: "summarizing", Progress: 40, Message: "generating summary"})
	type summaryOutcome struct {
		text string
		err  error
	}
	sum := withHeartbeat(stream, "summarizing", 40, func() summaryOutcome {
		text, err := svc.Summarize(ctx, extracted.FullText, ai.SummaryMedium)
		return summaryOutcome{text, err}
	})
	summary, err := sum.text, sum.err
	summaryPath := ""
	if err != nil {
		slog.Warn("summary generation failed, continuing", "document", doc.ID, "error", err)
	} else {
		summaryPath, err = h.writeSummaryFile(doc.ID, filename, course, summary)
		if err != nil {
			slog.Warn("summary file write failed, continuing", "document", doc.ID, "error", err)
		} else if _, err := h.db.CreateSummary(doc.ID, summaryPath); err != nil {
			slog.Warn("summary record failed, continuing", "document", doc.ID, "error", err)
		}
	}

	stream.send(progressEvent{Stage: "generating_flashcards", Progress: 60, Message: "generating flashcards"})
	type cardsOutcome struct {
		cards []ai.Flashcard
		errs  []error
	}
	gen := withHeartbeat(stream, "generating_flashcards", 60, func() cardsOutcome {
		cards, errs := svc.GenerateFlashcards(ctx, extracted.FullText, cardsPer)
		return cardsOutcome{cards, errs}
	})
	cards, errs := gen.cards, gen.errs
	for _, err := range errs {
		slog.Warn("flashcard batch failed, continuing", "document", doc.ID, "error", err)
	}

	stored := 0
	for _, card := range cards {
		if _, err := h.db.CreateFlashcard(doc.ID, card.Question, card.Answer, card.Difficulty); err != nil {
			slog.Warn("store flashcard", "document", doc.ID, "error", err)
			continue
		}
		stored++
	}

	if err := h.db.MarkDocumentProcessed(doc.ID, h.now()); err != nil {
		slog.Warn("mark document processed", "document", doc.ID, "error", err)
	}

	slog.Info("document ingested", "id", doc.ID, "filename", filename,
		"course", course, "pages", extracted.PageCount, "flashcards", stored)

	stream.send(progressEvent{
		Stage:    "complete",
		Progress: 100,
		Message:  "processing complete",
		Result: map[string]any{
			"document_id":     doc.ID,
			"filename":        filename,
			"course":          course,
			"page_count":      extracted.PageCount,
			"summary_created": summaryPath != "",
			"flashcard_count": stored,
		},
	})
	return nil
}

// withHeartbeat runs fn while emitting periodic progress frames so SSE
// clients see movement during a long model call. Reported progress
// creeps from base by up to 15 points.
func withHeartbeat[T any](stream *sseWriter, stage string, base int, fn func() T) T {
	done := make(chan T, 1)
	go func() { done <- fn() }()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	start := time.Now()
	for {
		select {
		case out := <-done:
			return out
		case <-ticker.C:
			elapsed := int(time.Since(start).Seconds())
			stream.send(progressEvent{Stage: stage, Progress: base + min(15, elapsed*2)})
		}
	}
}

func saveFile(path string, src io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

// writeSummaryFile stores the generated summary under
// <data-dir>/summaries with a short metadata header above the text.
func (h *Handler) writeSummaryFile(documentID int64, filename, course, summary string) (string, error) {
	dir := filepath.Join(h.cfg.DataDir, "summaries")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, fmt.Sprintf("summary_%d.txt", documentID))
	var sb strings.Builder
	fmt.Fprintf(&sb, "Summary of %s\n", filename)
	fmt.Fprintf(&sb, "Course: %s\n", course)
	fmt.Fprintf(&sb, "Generated: %s\n", h.now().Format(time.RFC3339))
	sb.WriteString(strings.Repeat("=", 60) + "\n\n")
	sb.WriteString(summary)
	sb.WriteString("\n")

	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
