// Package model holds the shared types of the relational study data:
// courses, uploaded documents, their summaries and flashcards.
package model

import "time"

// Course groups documents under a course code (e.g. BIO101, MATH202).
type Course struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Document is one uploaded lecture-notes file.
type Document struct {
	ID          int64      `json:"id"`
	Filename    string     `json:"filename"`
	FilePath    string     `json:"file_path"`
	CourseID    int64      `json:"course_id"`
	PageCount   int        `json:"page_count"`
	UploadedAt  time.Time  `json:"uploaded_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// Summary records where a document's generated summary file lives.
type Summary struct {
	ID         int64     `json:"id"`
	DocumentID int64     `json:"document_id"`
	FilePath   string    `json:"file_path"`
	CreatedAt  time.Time `json:"created_at"`
}

// Flashcard is one generated study card with review state.
type Flashcard struct {
	ID            int64      `json:"id"`
	DocumentID    int64      `json:"document_id"`
	Question      string     `json:"question"`
	Answer        string     `json:"answer"`
	Difficulty    string     `json:"difficulty"`
	Mastered      bool       `json:"mastered"`
	TimesReviewed int        `json:"times_reviewed"`
	LastReviewed  *time.Time `json:"last_reviewed,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// CourseSummary is the list-view shape for a course.
type CourseSummary struct {
	Code           string `json:"code"`
	Name           string `json:"name"`
	DocumentCount  int    `json:"document_count"`
	FlashcardCount int    `json:"flashcard_count"`
}

// DocumentInfo is the list-view shape for a document.
type DocumentInfo struct {
	ID             int64     `json:"id"`
	Filename       string    `json:"filename"`
	Course         string    `json:"course"`
	PageCount      int       `json:"page_count"`
	UploadedAt     time.Time `json:"uploaded_at"`
	FlashcardCount int       `json:"flashcard_count"`
	HasSummary     bool      `json:"has_summary"`
}

// Statistics aggregates database-wide counts.
type Statistics struct {
	TotalCourses         int `json:"total_courses"`
	TotalDocuments       int `json:"total_documents"`
	TotalSummaries       int `json:"total_summaries"`
	TotalFlashcards      int `json:"total_flashcards"`
	MasteredFlashcards   int `json:"mastered_flashcards"`
	UnmasteredFlashcards int `json:"unmastered_flashcards"`
}

// FlashcardStats breaks down a course's flashcards by review state and
// difficulty.
type FlashcardStats struct {
	Total        int            `json:"total"`
	Mastered     int            `json:"mastered"`
	Unmastered   int            `json:"unmastered"`
	ByDifficulty map[string]int `json:"by_difficulty"`
}

// CourseStatistics is the per-course statistics view.
type CourseStatistics struct {
	Course         CourseSummary  `json:"course"`
	FlashcardStats FlashcardStats `json:"flashcard_stats"`
}

// FlashcardFilter narrows flashcard listings. Zero values mean no
// filtering on that field.
type FlashcardFilter struct {
	Course     string
	Difficulty string
	Mastered   *bool
}

// FlashcardUpdate carries the mutable flashcard fields; nil fields are
// left unchanged.
type FlashcardUpdate struct {
	Mastered      *bool `json:"mastered"`
	TimesReviewed *int  `json:"times_reviewed"`
}
