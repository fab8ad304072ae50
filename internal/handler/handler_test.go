package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"studyflow/internal/ai"
	"studyflow/internal/examstore"
	"studyflow/internal/extract"
	"studyflow/internal/store"
)

// fakeAI scripts the text-generation collaborator. The response map is
// keyed by a substring of the prompt's system message so each question
// type can be scripted separately.
type fakeAI struct {
	responses map[string]string
	err       error
}

func (f *fakeAI) Generate(_ context.Context, _, system string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	for marker, response := range f.responses {
		if strings.Contains(system, marker) {
			return response, nil
		}
	}
	return "", nil
}

func (f *fakeAI) Summarize(context.Context, string, ai.SummaryLength) (string, error) {
	return "A concise summary of the material.", nil
}

func (f *fakeAI) GenerateFlashcards(context.Context, string, int) ([]ai.Flashcard, []error) {
	return []ai.Flashcard{{Question: "What is ATP?", Answer: "Energy currency", Difficulty: "easy"}}, nil
}

func (f *fakeAI) Ping(context.Context) error { return nil }
func (f *fakeAI) Provider() string           { return "fake" }
func (f *fakeAI) Model() string              { return "fake-model" }

func newTestServer(t *testing.T, svc AIService) (*httptest.Server, *Handler) {
	t.Helper()

	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	dataDir := t.TempDir()
	exams, err := examstore.New(filepath.Join(dataDir, "exams"))
	if err != nil {
		t.Fatalf("open exam store: %v", err)
	}

	h := New(db, exams, extract.PlainText{}, Config{DataDir: dataDir})
	h.aiFor = func(provider, model, apiKey string) (AIService, error) {
		return svc, nil
	}

	r := chi.NewRouter()
	h.Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, h
}

func seedDocument(t *testing.T, h *Handler, filename, course, content string) int64 {
	t.Helper()
	path := filepath.Join(h.cfg.DataDir, filename)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("seedDocument: %v", err)
	}
	doc, err := h.db.CreateDocument(filename, path, course, 1)
	if err != nil {
		t.Fatalf("seedDocument: %v", err)
	}
	return doc.ID
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// newMultipartForm writes a file upload form into buf and returns its
// content type.
func newMultipartForm(t *testing.T, buf *bytes.Buffer, filename, content string, fields map[string]string) string {
	t.Helper()
	mw := multipart.NewWriter(buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}
	return mw.FormDataContentType()
}

func readAll(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(data)
}

const tfResponse = `Q: Water is a polar molecule.
ANSWER: TRUE
EXPLANATION: Uneven charge distribution.

Q: All cells contain a nucleus.
ANSWER: FALSE
EXPLANATION: Prokaryotes lack one.

Q: DNA is double stranded.
ANSWER: TRUE
EXPLANATION: Two complementary strands.
`

func tfServiceResponses() map[string]string {
	return map[string]string{"true/false": tfResponse}
}

func TestGenerateAndSubmitExam(t *testing.T) {
	srv, h := newTestServer(t, &fakeAI{responses: tfServiceResponses()})
	docID := seedDocument(t, h, "notes.txt", "BIO101", "Water chemistry and cell structure.")

	resp := postJSON(t, srv.URL+"/api/exams/generate", map[string]any{
		"document_ids":   []int64{docID},
		"question_types": []map[string]any{{"type": "true_false", "count": 3}},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("generate: expected 200, got %d", resp.StatusCode)
	}
	var generated struct {
		ID            string `json:"id"`
		Course        string `json:"course"`
		QuestionCount int    `json:"question_count"`
	}
	decodeBody(t, resp, &generated)
	if generated.Course != "BIO101" {
		t.Errorf("expected course BIO101, got %s", generated.Course)
	}
	if generated.QuestionCount != 3 {
		t.Errorf("expected 3 questions, got %d", generated.QuestionCount)
	}
	if !strings.HasPrefix(generated.ID, "BIO101_exam_") {
		t.Errorf("unexpected exam id: %s", generated.ID)
	}

	// Submit: two right, one wrong.
	resp = postJSON(t, srv.URL+"/api/exams/"+generated.ID+"/submit", map[string]any{
		"answers": map[string]any{"0": true, "1": true, "2": "true"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit: expected 200, got %d", resp.StatusCode)
	}
	var result submitExamResponse
	decodeBody(t, resp, &result)
	if result.Score != 2 || result.Total != 3 {
		t.Errorf("expected 2/3, got %d/%d", result.Score, result.Total)
	}
	if result.Percentage != 67 {
		t.Errorf("expected 67%%, got %d", result.Percentage)
	}
	if result.AttemptNumber != 1 || result.Improved {
		t.Errorf("first attempt should be number 1 and not improved: %+v", result)
	}

	// A better second attempt reports improvement.
	resp = postJSON(t, srv.URL+"/api/exams/"+generated.ID+"/submit", map[string]any{
		"answers": map[string]any{"0": true, "1": false, "2": true},
	})
	decodeBody(t, resp, &result)
	if result.Score != 3 || !result.Improved || result.BestScore != 100 {
		t.Errorf("expected improved 3/3 with best 100, got %+v", result)
	}

	// Attempt history is served newest first.
	resp, err := http.Get(srv.URL + "/api/exams/" + generated.ID + "/attempts")
	if err != nil {
		t.Fatalf("GET attempts: %v", err)
	}
	var history struct {
		Attempts []struct {
			Percentage int `json:"percentage"`
		} `json:"attempts"`
		AttemptCount int `json:"attempt_count"`
	}
	decodeBody(t, resp, &history)
	if history.AttemptCount != 2 {
		t.Errorf("expected 2 attempts, got %d", history.AttemptCount)
	}

	// Reset clears history.
	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/exams/"+generated.ID+"/attempts", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE attempts: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reset: expected 200, got %d", resp.StatusCode)
	}

	record, err := h.exams.Load(generated.ID)
	if err != nil {
		t.Fatalf("load exam: %v", err)
	}
	if len(record.Attempts) != 0 || record.BestScore != nil {
		t.Errorf("attempts not cleared: %+v", record)
	}
}

func TestGenerateExamValidation(t *testing.T) {
	srv, _ := newTestServer(t, &fakeAI{responses: tfServiceResponses()})

	// Neither document_ids nor course.
	resp := postJSON(t, srv.URL+"/api/exams/generate", map[string]any{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Unknown course has no documents.
	resp = postJSON(t, srv.URL+"/api/exams/generate", map[string]any{"course": "GHOST"})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestGenerateExamFailure(t *testing.T) {
	srv, h := newTestServer(t, &fakeAI{err: fmt.Errorf("model unavailable")})
	docID := seedDocument(t, h, "notes.txt", "BIO101", "Some study material.")

	resp := postJSON(t, srv.URL+"/api/exams/generate", map[string]any{
		"document_ids":   []int64{docID},
		"question_types": []map[string]any{{"type": "true_false", "count": 3}},
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("expected 502 when no questions generate, got %d", resp.StatusCode)
	}

	var body errorResponse
	decodeBody(t, resp, &body)
	if body.Error.Code != "generation_failure" {
		t.Errorf("expected generation_failure code, got %s", body.Error.Code)
	}
}

func TestExamNotFound(t *testing.T) {
	srv, _ := newTestServer(t, &fakeAI{})

	resp, err := http.Get(srv.URL + "/api/exams/no_such_exam")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}

	var body errorResponse
	decodeBody(t, resp, &body)
	if body.Error.Code != "not_found" {
		t.Errorf("expected not_found code, got %s", body.Error.Code)
	}
}

func TestCourseEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, &fakeAI{})

	resp := postJSON(t, srv.URL+"/api/courses", map[string]string{"code": "bio101", "name": "Biology"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create course: expected 200, got %d", resp.StatusCode)
	}
	var course struct {
		Code string `json:"code"`
	}
	decodeBody(t, resp, &course)
	if course.Code != "BIO101" {
		t.Errorf("expected normalized BIO101, got %s", course.Code)
	}

	// Duplicate creation is rejected.
	resp = postJSON(t, srv.URL+"/api/courses", map[string]string{"code": "BIO101"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("duplicate course: expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Missing code is rejected.
	resp = postJSON(t, srv.URL+"/api/courses", map[string]string{"name": "Anonymous"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing code: expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err := http.Get(srv.URL + "/api/courses")
	if err != nil {
		t.Fatalf("GET courses: %v", err)
	}
	var courses []struct {
		Code string `json:"code"`
	}
	decodeBody(t, resp, &courses)
	if len(courses) != 1 {
		t.Errorf("expected 1 course, got %d", len(courses))
	}
}

func TestFlashcardEndpoints(t *testing.T) {
	srv, h := newTestServer(t, &fakeAI{})
	docID := seedDocument(t, h, "notes.txt", "BIO101", "material")
	card, err := h.db.CreateFlashcard(docID, "What is ATP?", "Energy currency", "easy")
	if err != nil {
		t.Fatalf("CreateFlashcard: %v", err)
	}

	resp, err := http.Get(srv.URL + "/api/flashcards?course=bio101&difficulty=easy")
	if err != nil {
		t.Fatalf("GET flashcards: %v", err)
	}
	var cards []struct {
		ID int64 `json:"id"`
	}
	decodeBody(t, resp, &cards)
	if len(cards) != 1 || cards[0].ID != card.ID {
		t.Errorf("unexpected flashcard listing: %+v", cards)
	}

	// Patch mastered.
	body, _ := json.Marshal(map[string]any{"mastered": true})
	req, _ := http.NewRequest(http.MethodPatch, fmt.Sprintf("%s/api/flashcards/%d", srv.URL, card.ID), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PATCH flashcard: %v", err)
	}
	var updated struct {
		Mastered bool `json:"mastered"`
	}
	decodeBody(t, resp, &updated)
	if !updated.Mastered {
		t.Error("flashcard not marked mastered")
	}

	// Invalid filter value.
	resp, err = http.Get(srv.URL + "/api/flashcards?mastered=maybe")
	if err != nil {
		t.Fatalf("GET flashcards: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for bad mastered value, got %d", resp.StatusCode)
	}
}

func TestClearAllData(t *testing.T) {
	srv, h := newTestServer(t, &fakeAI{})
	docID := seedDocument(t, h, "notes.txt", "BIO101", "material")
	if _, err := h.db.CreateFlashcard(docID, "q", "a", "easy"); err != nil {
		t.Fatalf("CreateFlashcard: %v", err)
	}

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/clear-all-data", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE clear-all-data: %v", err)
	}
	var result struct {
		Status  string         `json:"status"`
		Deleted map[string]int `json:"deleted"`
	}
	decodeBody(t, resp, &result)
	if result.Status != "success" {
		t.Errorf("expected success, got %s", result.Status)
	}
	if result.Deleted["files"] != 1 {
		t.Errorf("expected 1 file deleted, got %d", result.Deleted["files"])
	}

	stats, err := h.db.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalCourses != 0 || stats.TotalFlashcards != 0 {
		t.Errorf("database not cleared: %+v", stats)
	}
}

func TestUploadStreamsProgress(t *testing.T) {
	srv, _ := newTestServer(t, &fakeAI{})

	var buf bytes.Buffer
	form := newMultipartForm(t, &buf, "lecture.txt", "Cell biology fundamentals.", map[string]string{
		"course":               "bio101",
		"cards_per_difficulty": "2",
	})

	resp, err := http.Post(srv.URL+"/api/upload", form, &buf)
	if err != nil {
		t.Fatalf("POST upload: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("expected SSE content type, got %q", got)
	}

	var events []progressEvent
	for _, line := range strings.Split(readAll(t, resp), "\n") {
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		var ev progressEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			t.Fatalf("bad event %q: %v", line, err)
		}
		events = append(events, ev)
	}
	if len(events) < 4 {
		t.Fatalf("expected at least 4 progress events, got %d", len(events))
	}

	last := events[len(events)-1]
	if last.Stage != "complete" || last.Progress != 100 {
		t.Errorf("expected terminal complete event, got %+v", last)
	}
	if last.Result == nil {
		t.Error("complete event missing result payload")
	}
}
