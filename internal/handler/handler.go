// Package handler exposes the JSON API over chi.
package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"studyflow/internal/ai"
	"studyflow/internal/apperr"
	"studyflow/internal/examstore"
	"studyflow/internal/extract"
	"studyflow/internal/store"
)

// AIService is the per-request slice of the AI client the handlers
// need. *ai.Client satisfies it; tests substitute fakes.
type AIService interface {
	Generate(ctx context.Context, prompt, system string) (string, error)
	Summarize(ctx context.Context, text string, length ai.SummaryLength) (string, error)
	GenerateFlashcards(ctx context.Context, text string, perDifficulty int) ([]ai.Flashcard, []error)
	Ping(ctx context.Context) error
	Provider() string
	Model() string
}

// Config holds handler-level settings.
type Config struct {
	DataDir string
	AI      ai.Config
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	db        *store.Store
	exams     *examstore.Store
	extractor extract.Extractor
	cfg       Config

	// aiFor builds the AI capability for one request. Overridable in
	// tests.
	aiFor func(provider, model, apiKey string) (AIService, error)
	now   func() time.Time
}

// New creates a new Handler.
func New(db *store.Store, exams *examstore.Store, extractor extract.Extractor, cfg Config) *Handler {
	return &Handler{
		db:        db,
		exams:     exams,
		extractor: extractor,
		cfg:       cfg,
		aiFor: func(provider, model, apiKey string) (AIService, error) {
			return ai.ForRequest(cfg.AI, provider, model, apiKey)
		},
		now: time.Now,
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.handleHealth)
		r.Post("/upload", h.handleUpload)

		r.Get("/courses", h.handleListCourses)
		r.Post("/courses", h.handleCreateCourse)
		r.Delete("/courses/{code}", h.handleDeleteCourse)
		r.Get("/courses/{code}/documents", h.handleCourseDocuments)

		r.Get("/documents", h.handleListDocuments)
		r.Get("/documents/{documentID}/summary", h.handleDocumentSummary)
		r.Delete("/documents/{documentID}", h.handleDeleteDocument)

		r.Get("/flashcards", h.handleListFlashcards)
		r.Patch("/flashcards/{flashcardID}", h.handleUpdateFlashcard)

		r.Post("/exams/generate", h.handleGenerateExam)
		r.Get("/exams", h.handleListExams)
		r.Get("/exams/{examID}", h.handleGetExam)
		r.Post("/exams/{examID}/submit", h.handleSubmitExam)
		r.Get("/exams/{examID}/attempts", h.handleExamAttempts)
		r.Delete("/exams/{examID}/attempts", h.handleResetAttempts)
		r.Delete("/exams/{examID}", h.handleDeleteExam)

		r.Get("/statistics", h.handleStatistics)
		r.Get("/statistics/course/{code}", h.handleCourseStatistics)

		r.Delete("/clear-all-data", h.handleClearAllData)
	})
}

// aiFromRequest builds the AI capability from the request's model
// selection headers, falling back to configured defaults.
func (h *Handler) aiFromRequest(r *http.Request) (AIService, error) {
	return h.aiFor(
		r.Header.Get("X-AI-Model"),
		r.Header.Get("X-AI-Backend-Model"),
		r.Header.Get("X-OpenAI-API-Key"),
	)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

type errorBody struct {
	Code    apperr.Code `json:"code"`
	Message string      `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// writeError maps an error to its taxonomy code and HTTP status. The
// caller sees the stable code and message only; wrapped detail is
// logged here.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, sql.ErrNoRows) {
		err = apperr.NotFound("record not found")
	}

	code := apperr.CodeOf(err)
	message := "internal error"
	var ae *apperr.Error
	if errors.As(err, &ae) {
		message = ae.Message
	}

	status := http.StatusInternalServerError
	switch code {
	case apperr.CodeNotFound:
		status = http.StatusNotFound
	case apperr.CodeInvalidRequest:
		status = http.StatusBadRequest
	case apperr.CodeGenerationFailure, apperr.CodeExtractionFailure:
		status = http.StatusBadGateway
	}

	if status >= 500 {
		slog.Error("request failed", "code", code, "error", err)
	} else {
		slog.Debug("request rejected", "code", code, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Wrap(apperr.CodeInvalidRequest, err, "malformed JSON body")
	}
	return nil
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := h.db.Stats()
	if err != nil {
		h.writeError(w, err)
		return
	}

	services := map[string]string{}
	for _, provider := range []string{ai.ProviderOllama, ai.ProviderOpenAI} {
		status := "unavailable"
		if svc, err := h.aiFor(provider, "", ""); err == nil {
			pingCtx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			if svc.Ping(pingCtx) == nil {
				status = "available"
			}
			cancel()
		}
		services[provider] = status
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "healthy",
		"database":    "connected",
		"ai_services": services,
		"statistics":  stats,
	})
}
