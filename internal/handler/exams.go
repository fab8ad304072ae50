package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"studyflow/internal/apperr"
	"studyflow/internal/exam"
	"studyflow/internal/examgen"
	"studyflow/internal/model"
)

type questionTypeCount struct {
	Type  exam.QuestionType `json:"type"`
	Count int               `json:"count"`
}

type generateExamRequest struct {
	Course        string              `json:"course"`
	DocumentIDs   []int64             `json:"document_ids"`
	QuestionTypes []questionTypeCount `json:"question_types"`
	QuestionCount int                 `json:"question_count"`
}

func (h *Handler) handleGenerateExam(w http.ResponseWriter, r *http.Request) {
	var req generateExamRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.QuestionCount <= 0 {
		req.QuestionCount = 20
	}

	svc, err := h.aiFromRequest(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	documents, err := h.resolveDocuments(req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	source, err := h.combineDocumentText(documents)
	if err != nil {
		h.writeError(w, err)
		return
	}
	source = examgen.TruncateSource(source)

	gen := examgen.New(svc)
	questions, report := h.generateQuestions(r, gen, req, source)

	if len(questions) == 0 {
		err := apperr.New(apperr.CodeGenerationFailure, "failed to generate any questions")
		if failed := report.Failed(); len(failed) > 0 {
			err = apperr.Wrap(apperr.CodeGenerationFailure, failed[0].Err, "failed to generate any questions")
		}
		h.writeError(w, err)
		return
	}
	for _, b := range report.Failed() {
		slog.Warn("question batch failed, continuing with partial exam",
			"type", b.Type, "requested", b.Requested, "error", b.Err)
	}

	course := strings.ToUpper(strings.TrimSpace(req.Course))
	if course == "" && len(documents) > 0 {
		if c, err := h.courseCodeOf(documents[0]); err == nil {
			course = c
		}
	}
	if course == "" {
		course = "GENERAL"
	}

	now := h.now()
	record := &exam.Exam{
		ID:            exam.NewID(course, now),
		Title:         examTitle(course, documents),
		Course:        course,
		ExamType:      "practice",
		QuestionCount: len(questions),
		CreatedAt:     now,
		Questions:     questions,
		AIModelUsed:   svc.Model(),
		DocumentIDs:   documentIDs(documents),
		DocumentNames: documentNames(documents),
		Attempts:      []exam.Attempt{},
	}

	path, err := h.exams.Save(record)
	if err != nil {
		h.writeError(w, err)
		return
	}
	slog.Info("exam generated", "id", record.ID, "questions", len(questions), "path", path)

	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) resolveDocuments(req generateExamRequest) ([]model.Document, error) {
	switch {
	case len(req.DocumentIDs) > 0:
		docs, err := h.db.GetDocuments(req.DocumentIDs)
		if err != nil {
			return nil, err
		}
		if len(docs) == 0 {
			return nil, apperr.NotFound("no documents found")
		}
		return docs, nil
	case req.Course != "":
		infos, err := h.db.ListCourseDocuments(req.Course)
		if err != nil {
			return nil, err
		}
		if len(infos) == 0 {
			return nil, apperr.NotFound("no documents found for course %s", req.Course)
		}
		ids := make([]int64, 0, len(infos))
		for _, d := range infos {
			ids = append(ids, d.ID)
		}
		return h.db.GetDocuments(ids)
	default:
		return nil, apperr.New(apperr.CodeInvalidRequest, "must specify either document_ids or course")
	}
}

// combineDocumentText extracts and concatenates the text of all source
// documents. Extraction failures are not recoverable and abort the
// request.
func (h *Handler) combineDocumentText(documents []model.Document) (string, error) {
	var sb strings.Builder
	for _, doc := range documents {
		result, err := h.extractor.Extract(doc.FilePath)
		if err != nil {
			return "", apperr.Wrap(apperr.CodeExtractionFailure, err, "text extraction failed for %s", doc.Filename)
		}
		fmt.Fprintf(&sb, "\n\n--- %s ---\n\n%s", doc.Filename, result.FullText)
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", apperr.New(apperr.CodeExtractionFailure, "no text could be extracted from the selected documents")
	}
	return sb.String(), nil
}

// generateQuestions issues one generation call per requested type, or a
// mixed-split generation when no explicit types were given. Failed
// batches contribute zero questions; the report carries the outcomes.
func (h *Handler) generateQuestions(r *http.Request, gen *examgen.Generator, req generateExamRequest, source string) (exam.Questions, examgen.Report) {
	if len(req.QuestionTypes) == 0 {
		return gen.GenerateMixed(r.Context(), source, req.QuestionCount)
	}

	var all exam.Questions
	var report examgen.Report
	for _, qt := range req.QuestionTypes {
		if qt.Count <= 0 {
			continue
		}
		questions, err := gen.Generate(r.Context(), qt.Type, source, qt.Count)
		report.Batches = append(report.Batches, examgen.Batch{
			Type:      qt.Type,
			Requested: qt.Count,
			Generated: len(questions),
			Err:       err,
		})
		all = append(all, questions...)
	}
	return all, report
}

func (h *Handler) courseCodeOf(doc model.Document) (string, error) {
	infos, err := h.db.ListDocuments()
	if err != nil {
		return "", err
	}
	for _, info := range infos {
		if info.ID == doc.ID {
			return info.Course, nil
		}
	}
	return "", apperr.NotFound("document %d not found", doc.ID)
}

func examTitle(course string, documents []model.Document) string {
	if len(documents) == 1 {
		return fmt.Sprintf("%s - %s", course, documents[0].Filename)
	}
	return fmt.Sprintf("%s Exam (%d documents)", course, len(documents))
}

func documentIDs(documents []model.Document) []int64 {
	ids := make([]int64, 0, len(documents))
	for _, d := range documents {
		ids = append(ids, d.ID)
	}
	return ids
}

func documentNames(documents []model.Document) []string {
	names := make([]string, 0, len(documents))
	for _, d := range documents {
		names = append(names, d.Filename)
	}
	return names
}

// examSummary is the list-view shape for an exam record.
type examSummary struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Course        string         `json:"course"`
	ExamType      string         `json:"exam_type"`
	QuestionCount int            `json:"question_count"`
	CreatedAt     time.Time      `json:"created_at"`
	Questions     exam.Questions `json:"questions"`
	BestScore     *int           `json:"best_score"`
	AttemptCount  int            `json:"attempt_count"`
	AverageScore  *int           `json:"average_score"`
	LastAttempt   *time.Time     `json:"last_attempt"`
	Completed     bool           `json:"completed"`
}

func (h *Handler) handleListExams(w http.ResponseWriter, _ *http.Request) {
	records, err := h.exams.List()
	if err != nil {
		h.writeError(w, err)
		return
	}

	summaries := make([]examSummary, 0, len(records))
	for _, e := range records {
		summaries = append(summaries, examSummary{
			ID:            e.ID,
			Title:         e.Title,
			Course:        e.Course,
			ExamType:      e.ExamType,
			QuestionCount: len(e.Questions),
			CreatedAt:     e.CreatedAt,
			Questions:     e.Questions,
			BestScore:     e.BestScore,
			AttemptCount:  len(e.Attempts),
			AverageScore:  exam.AverageScore(e.Attempts),
			LastAttempt:   e.LastAttempt,
			Completed:     len(e.Attempts) > 0,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})

	writeJSON(w, http.StatusOK, summaries)
}

func (h *Handler) handleGetExam(w http.ResponseWriter, r *http.Request) {
	record, err := h.exams.Load(chi.URLParam(r, "examID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

type submitExamRequest struct {
	Answers   exam.Submission `json:"answers"`
	TimeTaken *int            `json:"time_taken"`
}

type submitExamResponse struct {
	Score         int                   `json:"score"`
	Total         int                   `json:"total"`
	Percentage    int                   `json:"percentage"`
	Results       []exam.QuestionResult `json:"results"`
	BestScore     int                   `json:"best_score"`
	AttemptNumber int                   `json:"attempt_number"`
	Improved      bool                  `json:"improved"`
}

func (h *Handler) handleSubmitExam(w http.ResponseWriter, r *http.Request) {
	examID := chi.URLParam(r, "examID")

	var req submitExamRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	// Serialize the read-modify-write so concurrent submissions against
	// the same exam cannot drop each other's attempts.
	unlock := h.exams.Lock(examID)
	defer unlock()

	record, err := h.exams.Load(examID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	graded := exam.Grade(record.Questions, req.Answers)
	outcome := exam.RecordAttempt(record, graded.Score, graded.Total, graded.Percentage, req.TimeTaken, h.now())

	if _, err := h.exams.Save(record); err != nil {
		h.writeError(w, err)
		return
	}

	slog.Info("exam submitted", "id", record.ID,
		"score", graded.Score, "total", graded.Total, "percentage", graded.Percentage,
		"attempt", outcome.Number, "best", outcome.BestScore)

	writeJSON(w, http.StatusOK, submitExamResponse{
		Score:         graded.Score,
		Total:         graded.Total,
		Percentage:    graded.Percentage,
		Results:       graded.Results,
		BestScore:     outcome.BestScore,
		AttemptNumber: outcome.Number,
		Improved:      outcome.Improved,
	})
}

func (h *Handler) handleExamAttempts(w http.ResponseWriter, r *http.Request) {
	record, err := h.exams.Load(chi.URLParam(r, "examID"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	attempts := make([]exam.Attempt, len(record.Attempts))
	copy(attempts, record.Attempts)
	sort.Slice(attempts, func(i, j int) bool {
		return attempts[i].Timestamp.After(attempts[j].Timestamp)
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"exam_id":       record.ID,
		"exam_title":    record.Title,
		"attempts":      attempts,
		"best_score":    record.BestScore,
		"attempt_count": len(record.Attempts),
	})
}

func (h *Handler) handleResetAttempts(w http.ResponseWriter, r *http.Request) {
	examID := chi.URLParam(r, "examID")

	unlock := h.exams.Lock(examID)
	defer unlock()

	record, err := h.exams.Load(examID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	exam.Reset(record)
	if _, err := h.exams.Save(record); err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "exam attempts reset",
	})
}

func (h *Handler) handleDeleteExam(w http.ResponseWriter, r *http.Request) {
	examID := chi.URLParam(r, "examID")
	if err := h.exams.Delete(examID); err != nil {
		h.writeError(w, err)
		return
	}
	slog.Info("exam deleted", "id", examID)
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "exam deleted",
	})
}
