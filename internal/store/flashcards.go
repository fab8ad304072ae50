package store

import (
	"database/sql"
	"strings"
	"time"

	"studyflow/internal/model"
)

// CreateSummary records the summary file for a document.
func (s *Store) CreateSummary(documentID int64, filePath string) (model.Summary, error) {
	now := time.Now().UTC()
	res, err := s.db.Exec(
		`INSERT INTO summaries (document_id, file_path, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(document_id) DO UPDATE SET file_path = excluded.file_path`,
		documentID, filePath, now,
	)
	if err != nil {
		return model.Summary{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Summary{}, err
	}
	return model.Summary{ID: id, DocumentID: documentID, FilePath: filePath, CreatedAt: now}, nil
}

// GetDocumentSummary returns the summary record for a document.
func (s *Store) GetDocumentSummary(documentID int64) (model.Summary, error) {
	var sum model.Summary
	err := s.db.QueryRow(
		`SELECT id, document_id, file_path, created_at FROM summaries WHERE document_id = ?`,
		documentID,
	).Scan(&sum.ID, &sum.DocumentID, &sum.FilePath, &sum.CreatedAt)
	return sum, err
}

// ListSummaries returns all summary records.
func (s *Store) ListSummaries() ([]model.Summary, error) {
	rows, err := s.db.Query(`SELECT id, document_id, file_path, created_at FROM summaries`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []model.Summary
	for rows.Next() {
		var sum model.Summary
		if err := rows.Scan(&sum.ID, &sum.DocumentID, &sum.FilePath, &sum.CreatedAt); err != nil {
			return nil, err
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// ListDocumentPaths returns the on-disk paths of all stored documents.
func (s *Store) ListDocumentPaths() ([]string, error) {
	rows, err := s.db.Query(`SELECT file_path FROM documents`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// CreateFlashcard stores a generated flashcard.
func (s *Store) CreateFlashcard(documentID int64, question, answer, difficulty string) (model.Flashcard, error) {
	if difficulty == "" {
		difficulty = "medium"
	}
	now := time.Now().UTC()
	res, err := s.db.Exec(
		`INSERT INTO flashcards (document_id, question, answer, difficulty, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		documentID, question, answer, difficulty, now,
	)
	if err != nil {
		return model.Flashcard{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Flashcard{}, err
	}
	return model.Flashcard{
		ID:         id,
		DocumentID: documentID,
		Question:   question,
		Answer:     answer,
		Difficulty: difficulty,
		CreatedAt:  now,
	}, nil
}

// GetFlashcard returns a flashcard by id.
func (s *Store) GetFlashcard(id int64) (model.Flashcard, error) {
	var f model.Flashcard
	err := s.db.QueryRow(
		`SELECT id, document_id, question, answer, difficulty, mastered, times_reviewed, last_reviewed, created_at
		 FROM flashcards WHERE id = ?`, id,
	).Scan(&f.ID, &f.DocumentID, &f.Question, &f.Answer, &f.Difficulty, &f.Mastered,
		&f.TimesReviewed, &f.LastReviewed, &f.CreatedAt)
	return f, err
}

// ListFlashcards returns flashcards matching the filter.
func (s *Store) ListFlashcards(filter model.FlashcardFilter) ([]model.Flashcard, error) {
	query := `
		SELECT f.id, f.document_id, f.question, f.answer, f.difficulty, f.mastered,
			f.times_reviewed, f.last_reviewed, f.created_at
		FROM flashcards f
		JOIN documents d ON d.id = f.document_id
		JOIN courses c ON c.id = d.course_id
		WHERE 1=1`
	var args []any
	if filter.Course != "" {
		query += ` AND c.code = ?`
		args = append(args, strings.ToUpper(strings.TrimSpace(filter.Course)))
	}
	if filter.Difficulty != "" {
		query += ` AND f.difficulty = ?`
		args = append(args, filter.Difficulty)
	}
	if filter.Mastered != nil {
		query += ` AND f.mastered = ?`
		args = append(args, *filter.Mastered)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []model.Flashcard
	for rows.Next() {
		var f model.Flashcard
		if err := rows.Scan(&f.ID, &f.DocumentID, &f.Question, &f.Answer, &f.Difficulty,
			&f.Mastered, &f.TimesReviewed, &f.LastReviewed, &f.CreatedAt); err != nil {
			return nil, err
		}
		cards = append(cards, f)
	}
	return cards, rows.Err()
}

// UpdateFlashcard applies the non-nil fields of the update and returns
// the updated card. Marking reviewed also stamps last_reviewed.
func (s *Store) UpdateFlashcard(id int64, update model.FlashcardUpdate) (model.Flashcard, error) {
	if _, err := s.GetFlashcard(id); err != nil {
		return model.Flashcard{}, err
	}
	if update.Mastered != nil {
		if _, err := s.db.Exec(`UPDATE flashcards SET mastered = ? WHERE id = ?`, *update.Mastered, id); err != nil {
			return model.Flashcard{}, err
		}
	}
	if update.TimesReviewed != nil {
		if _, err := s.db.Exec(
			`UPDATE flashcards SET times_reviewed = ?, last_reviewed = ? WHERE id = ?`,
			*update.TimesReviewed, time.Now().UTC(), id,
		); err != nil {
			return model.Flashcard{}, err
		}
	}
	return s.GetFlashcard(id)
}

// Stats returns database-wide counts.
func (s *Store) Stats() (model.Statistics, error) {
	var stats model.Statistics
	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM courses`, &stats.TotalCourses},
		{`SELECT COUNT(*) FROM documents`, &stats.TotalDocuments},
		{`SELECT COUNT(*) FROM summaries`, &stats.TotalSummaries},
		{`SELECT COUNT(*) FROM flashcards`, &stats.TotalFlashcards},
		{`SELECT COUNT(*) FROM flashcards WHERE mastered = 1`, &stats.MasteredFlashcards},
		{`SELECT COUNT(*) FROM flashcards WHERE mastered = 0`, &stats.UnmasteredFlashcards},
	}
	for _, c := range counts {
		if err := s.db.QueryRow(c.query).Scan(c.dest); err != nil {
			return model.Statistics{}, err
		}
	}
	return stats, nil
}

// CourseStats returns the per-course flashcard breakdown.
func (s *Store) CourseStats(courseCode string) (model.CourseStatistics, error) {
	course, err := s.GetCourse(courseCode)
	if err != nil {
		return model.CourseStatistics{}, err
	}

	cards, err := s.ListFlashcards(model.FlashcardFilter{Course: course.Code})
	if err != nil {
		return model.CourseStatistics{}, err
	}

	stats := model.FlashcardStats{
		Total:        len(cards),
		ByDifficulty: map[string]int{"easy": 0, "medium": 0, "hard": 0},
	}
	for _, f := range cards {
		if f.Mastered {
			stats.Mastered++
		}
		stats.ByDifficulty[f.Difficulty]++
	}
	stats.Unmastered = stats.Total - stats.Mastered

	var docCount int
	if err := s.db.QueryRow(
		`SELECT COUNT(*) FROM documents WHERE course_id = ?`, course.ID,
	).Scan(&docCount); err != nil {
		return model.CourseStatistics{}, err
	}

	return model.CourseStatistics{
		Course: model.CourseSummary{
			Code:           course.Code,
			Name:           course.Name,
			DocumentCount:  docCount,
			FlashcardCount: stats.Total,
		},
		FlashcardStats: stats,
	}, nil
}

// ClearAll deletes every row from every table. The caller removes the
// associated files from disk.
func (s *Store) ClearAll() error {
	return s.inTx(func(tx *sql.Tx) error {
		for _, table := range []string{"flashcards", "summaries", "documents", "courses"} {
			if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
				return err
			}
		}
		return nil
	})
}
