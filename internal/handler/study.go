package handler

import (
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"studyflow/internal/apperr"
	"studyflow/internal/model"
)

func (h *Handler) handleListCourses(w http.ResponseWriter, _ *http.Request) {
	courses, err := h.db.ListCourses()
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, courses)
}

type createCourseRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func (h *Handler) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	var req createCourseRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		h.writeError(w, apperr.New(apperr.CodeInvalidRequest, "course code is required"))
		return
	}

	if _, err := h.db.GetCourse(req.Code); err == nil {
		h.writeError(w, apperr.New(apperr.CodeInvalidRequest, "course %s already exists", strings.ToUpper(strings.TrimSpace(req.Code))))
		return
	} else if err != sql.ErrNoRows {
		h.writeError(w, err)
		return
	}

	course, err := h.db.CreateCourse(req.Code, req.Name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

// handleDeleteCourse removes a course, its database rows and the files
// of every document it contains. File removal is best effort; a file
// already gone does not block the delete.
func (h *Handler) handleDeleteCourse(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	if _, err := h.db.GetCourse(code); err != nil {
		h.writeError(w, err)
		return
	}

	infos, err := h.db.ListCourseDocuments(code)
	if err != nil {
		h.writeError(w, err)
		return
	}
	for _, info := range infos {
		h.removeDocumentFiles(info.ID)
	}

	if err := h.db.DeleteCourse(code); err != nil {
		h.writeError(w, err)
		return
	}
	slog.Info("course deleted", "code", code, "documents", len(infos))
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "course deleted",
	})
}

func (h *Handler) handleCourseDocuments(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	if _, err := h.db.GetCourse(code); err != nil {
		h.writeError(w, err)
		return
	}

	documents, err := h.db.ListCourseDocuments(code)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documents)
}

func (h *Handler) handleListDocuments(w http.ResponseWriter, _ *http.Request) {
	documents, err := h.db.ListDocuments()
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documents)
}

func (h *Handler) handleDocumentSummary(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "documentID")
	if err != nil {
		h.writeError(w, err)
		return
	}

	doc, err := h.db.GetDocument(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	record, err := h.db.GetDocumentSummary(id)
	if err != nil {
		if err == sql.ErrNoRows {
			h.writeError(w, apperr.NotFound("no summary for document %d", id))
			return
		}
		h.writeError(w, err)
		return
	}

	raw, err := os.ReadFile(record.FilePath)
	if err != nil {
		h.writeError(w, apperr.Wrap(apperr.CodePersistenceFailure, err, "summary file unreadable"))
		return
	}
	content := summaryBody(string(raw))

	writeJSON(w, http.StatusOK, map[string]any{
		"document_id": doc.ID,
		"filename":    doc.Filename,
		"summary":     content,
		"key_points":  bulletLines(content),
		"created_at":  record.CreatedAt,
	})
}

// summaryBody strips the metadata header written above the generated
// text in summary files. The header ends at the first blank line after
// the rule of equals signs.
func summaryBody(s string) string {
	_, after, found := strings.Cut(s, "\n\n")
	if !found || !strings.Contains(s[:len(s)-len(after)], "=") {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(after)
}

// bulletLines collects the bullet items of a summary as its key points.
func bulletLines(s string) []string {
	points := []string{}
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		for _, marker := range []string{"- ", "* ", "• "} {
			if strings.HasPrefix(line, marker) {
				points = append(points, strings.TrimSpace(strings.TrimPrefix(line, marker)))
				break
			}
		}
	}
	return points
}

func (h *Handler) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "documentID")
	if err != nil {
		h.writeError(w, err)
		return
	}

	if _, err := h.db.GetDocument(id); err != nil {
		h.writeError(w, err)
		return
	}

	h.removeDocumentFiles(id)
	if err := h.db.DeleteDocument(id); err != nil {
		h.writeError(w, err)
		return
	}
	slog.Info("document deleted", "id", id)
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "document deleted",
	})
}

// removeDocumentFiles deletes the uploaded file and the summary file of
// a document from disk. Missing files are ignored.
func (h *Handler) removeDocumentFiles(id int64) {
	if doc, err := h.db.GetDocument(id); err == nil {
		removeFile(doc.FilePath)
	}
	if sum, err := h.db.GetDocumentSummary(id); err == nil {
		removeFile(sum.FilePath)
	}
}

func removeFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("remove file", "path", path, "error", err)
	}
}

func (h *Handler) handleListFlashcards(w http.ResponseWriter, r *http.Request) {
	filter := model.FlashcardFilter{
		Course:     r.URL.Query().Get("course"),
		Difficulty: r.URL.Query().Get("difficulty"),
	}
	if m := r.URL.Query().Get("mastered"); m != "" {
		v, err := strconv.ParseBool(m)
		if err != nil {
			h.writeError(w, apperr.New(apperr.CodeInvalidRequest, "mastered must be a boolean"))
			return
		}
		filter.Mastered = &v
	}

	cards, err := h.db.ListFlashcards(filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

func (h *Handler) handleUpdateFlashcard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "flashcardID")
	if err != nil {
		h.writeError(w, err)
		return
	}

	var update model.FlashcardUpdate
	if err := decodeJSON(r, &update); err != nil {
		h.writeError(w, err)
		return
	}

	card, err := h.db.UpdateFlashcard(id, update)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (h *Handler) handleStatistics(w http.ResponseWriter, _ *http.Request) {
	stats, err := h.db.Stats()
	if err != nil {
		h.writeError(w, err)
		return
	}

	records, err := h.exams.List()
	if err != nil {
		h.writeError(w, err)
		return
	}
	totalAttempts := 0
	completed := 0
	for _, e := range records {
		totalAttempts += len(e.Attempts)
		if len(e.Attempts) > 0 {
			completed++
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"database": stats,
		"exams": map[string]int{
			"total_exams":    len(records),
			"completed":      completed,
			"total_attempts": totalAttempts,
		},
	})
}

func (h *Handler) handleCourseStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.db.CourseStats(chi.URLParam(r, "code"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleClearAllData wipes every stored artifact: exam files, uploaded
// documents, summary files and all database rows. Each category
// reports what was removed; per item failures are collected rather
// than aborting the wipe.
func (h *Handler) handleClearAllData(w http.ResponseWriter, _ *http.Request) {
	var failures []string

	records, err := h.exams.List()
	if err != nil {
		h.writeError(w, err)
		return
	}
	examsDeleted := 0
	for _, e := range records {
		if err := h.exams.Delete(e.ID); err != nil {
			failures = append(failures, "exam "+e.ID+": "+err.Error())
			continue
		}
		examsDeleted++
	}

	paths, err := h.db.ListDocumentPaths()
	if err != nil {
		h.writeError(w, err)
		return
	}
	filesDeleted := 0
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			failures = append(failures, "file "+p+": "+err.Error())
			continue
		}
		filesDeleted++
	}

	summaries, err := h.db.ListSummaries()
	if err != nil {
		h.writeError(w, err)
		return
	}
	summariesDeleted := 0
	for _, s := range summaries {
		if err := os.Remove(s.FilePath); err != nil && !os.IsNotExist(err) {
			failures = append(failures, "summary "+s.FilePath+": "+err.Error())
			continue
		}
		summariesDeleted++
	}

	if err := h.db.ClearAll(); err != nil {
		h.writeError(w, err)
		return
	}

	slog.Info("all data cleared",
		"exams", examsDeleted, "files", filesDeleted, "summaries", summariesDeleted,
		"failures", len(failures))

	if failures == nil {
		failures = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"deleted": map[string]int{
			"exams":     examsDeleted,
			"files":     filesDeleted,
			"summaries": summariesDeleted,
		},
		"failures": failures,
	})
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, apperr.New(apperr.CodeInvalidRequest, "%s must be an integer", name)
	}
	return id, nil
}
