// Package store is the relational data-access layer for courses,
// documents, summaries and flashcards.
package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"studyflow/internal/model"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS courses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS documents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		filename TEXT NOT NULL,
		file_path TEXT NOT NULL,
		course_id INTEGER NOT NULL,
		page_count INTEGER NOT NULL DEFAULT 0,
		uploaded_at DATETIME NOT NULL,
		processed_at DATETIME,
		FOREIGN KEY (course_id) REFERENCES courses(id)
	);

	CREATE TABLE IF NOT EXISTS summaries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		document_id INTEGER NOT NULL UNIQUE,
		file_path TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (document_id) REFERENCES documents(id)
	);

	CREATE TABLE IF NOT EXISTS flashcards (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		document_id INTEGER NOT NULL,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		difficulty TEXT NOT NULL DEFAULT 'medium',
		mastered INTEGER NOT NULL DEFAULT 0,
		times_reviewed INTEGER NOT NULL DEFAULT 0,
		last_reviewed DATETIME,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (document_id) REFERENCES documents(id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateCourse returns the existing course with the given code or
// creates it. Codes are stored normalized to upper case.
func (s *Store) CreateCourse(code, name string) (model.Course, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if name == "" {
		name = code
	}

	course, err := s.GetCourse(code)
	if err == nil {
		return course, nil
	}
	if err != sql.ErrNoRows {
		return model.Course{}, err
	}

	now := time.Now().UTC()
	res, err := s.db.Exec(
		`INSERT INTO courses (code, name, created_at) VALUES (?, ?, ?)`,
		code, name, now,
	)
	if err != nil {
		return model.Course{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Course{}, err
	}
	return model.Course{ID: id, Code: code, Name: name, CreatedAt: now}, nil
}

// GetCourse returns the course with the given code.
func (s *Store) GetCourse(code string) (model.Course, error) {
	var c model.Course
	err := s.db.QueryRow(
		`SELECT id, code, name, created_at FROM courses WHERE code = ?`,
		strings.ToUpper(strings.TrimSpace(code)),
	).Scan(&c.ID, &c.Code, &c.Name, &c.CreatedAt)
	return c, err
}

// ListCourses returns all courses with document and flashcard counts.
func (s *Store) ListCourses() ([]model.CourseSummary, error) {
	rows, err := s.db.Query(`
		SELECT c.code, c.name,
			COUNT(DISTINCT d.id),
			COUNT(f.id)
		FROM courses c
		LEFT JOIN documents d ON d.course_id = c.id
		LEFT JOIN flashcards f ON f.document_id = d.id
		GROUP BY c.id
		ORDER BY c.code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []model.CourseSummary
	for rows.Next() {
		var c model.CourseSummary
		if err := rows.Scan(&c.Code, &c.Name, &c.DocumentCount, &c.FlashcardCount); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// DeleteCourse removes a course and everything under it. The caller is
// responsible for removing document files from disk first.
func (s *Store) DeleteCourse(code string) error {
	course, err := s.GetCourse(code)
	if err != nil {
		return err
	}
	return s.inTx(func(tx *sql.Tx) error {
		stmts := []string{
			`DELETE FROM flashcards WHERE document_id IN (SELECT id FROM documents WHERE course_id = ?)`,
			`DELETE FROM summaries WHERE document_id IN (SELECT id FROM documents WHERE course_id = ?)`,
			`DELETE FROM documents WHERE course_id = ?`,
			`DELETE FROM courses WHERE id = ?`,
		}
		for _, stmt := range stmts {
			if _, err := tx.Exec(stmt, course.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// CreateDocument stores a document record, creating its course if
// needed.
func (s *Store) CreateDocument(filename, filePath, courseCode string, pageCount int) (model.Document, error) {
	course, err := s.CreateCourse(courseCode, "")
	if err != nil {
		return model.Document{}, err
	}

	now := time.Now().UTC()
	res, err := s.db.Exec(
		`INSERT INTO documents (filename, file_path, course_id, page_count, uploaded_at)
		 VALUES (?, ?, ?, ?, ?)`,
		filename, filePath, course.ID, pageCount, now,
	)
	if err != nil {
		return model.Document{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Document{}, err
	}
	return model.Document{
		ID:         id,
		Filename:   filename,
		FilePath:   filePath,
		CourseID:   course.ID,
		PageCount:  pageCount,
		UploadedAt: now,
	}, nil
}

// GetDocument returns a document by id.
func (s *Store) GetDocument(id int64) (model.Document, error) {
	var d model.Document
	err := s.db.QueryRow(
		`SELECT id, filename, file_path, course_id, page_count, uploaded_at, processed_at
		 FROM documents WHERE id = ?`, id,
	).Scan(&d.ID, &d.Filename, &d.FilePath, &d.CourseID, &d.PageCount, &d.UploadedAt, &d.ProcessedAt)
	return d, err
}

// GetDocuments returns documents by id, skipping missing ids.
func (s *Store) GetDocuments(ids []int64) ([]model.Document, error) {
	var docs []model.Document
	for _, id := range ids {
		d, err := s.GetDocument(id)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// MarkDocumentProcessed records when processing of a document finished.
func (s *Store) MarkDocumentProcessed(id int64, at time.Time) error {
	_, err := s.db.Exec(`UPDATE documents SET processed_at = ? WHERE id = ?`, at.UTC(), id)
	return err
}

const documentInfoQuery = `
	SELECT d.id, d.filename, c.code, d.page_count, d.uploaded_at,
		(SELECT COUNT(*) FROM flashcards f WHERE f.document_id = d.id),
		EXISTS (SELECT 1 FROM summaries s WHERE s.document_id = d.id)
	FROM documents d
	JOIN courses c ON c.id = d.course_id`

// ListDocuments returns all documents, newest first.
func (s *Store) ListDocuments() ([]model.DocumentInfo, error) {
	return s.queryDocumentInfo(documentInfoQuery + ` ORDER BY d.uploaded_at DESC`)
}

// ListCourseDocuments returns the documents of one course, newest
// first.
func (s *Store) ListCourseDocuments(courseCode string) ([]model.DocumentInfo, error) {
	return s.queryDocumentInfo(
		documentInfoQuery+` WHERE c.code = ? ORDER BY d.uploaded_at DESC`,
		strings.ToUpper(strings.TrimSpace(courseCode)),
	)
}

func (s *Store) queryDocumentInfo(query string, args ...any) ([]model.DocumentInfo, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []model.DocumentInfo
	for rows.Next() {
		var d model.DocumentInfo
		if err := rows.Scan(&d.ID, &d.Filename, &d.Course, &d.PageCount, &d.UploadedAt,
			&d.FlashcardCount, &d.HasSummary); err != nil {
			return nil, err
		}
		infos = append(infos, d)
	}
	return infos, rows.Err()
}

// DeleteDocument removes a document and its summary and flashcards.
func (s *Store) DeleteDocument(id int64) error {
	if _, err := s.GetDocument(id); err != nil {
		return err
	}
	return s.inTx(func(tx *sql.Tx) error {
		stmts := []string{
			`DELETE FROM flashcards WHERE document_id = ?`,
			`DELETE FROM summaries WHERE document_id = ?`,
			`DELETE FROM documents WHERE id = ?`,
		}
		for _, stmt := range stmts {
			if _, err := tx.Exec(stmt, id); err != nil {
				return err
			}
		}
		return nil
	})
}
