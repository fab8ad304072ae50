// Package examstore persists exam records as one self-contained JSON
// document per exam. Files are indented UTF-8 so a record can be
// inspected and debugged without tooling.
package examstore

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"studyflow/internal/apperr"
	"studyflow/internal/exam"
)

const fileExt = ".json"

// Store keeps exam records under a dedicated directory, one file per
// exam at an id-derived path. Mutation flows are read-modify-write of
// the whole record, so Store also hands out a per-identifier lock that
// serializes concurrent submissions against the same exam. Distinct
// exams never contend.
type Store struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates the exams directory if needed and returns a Store.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperr.Wrap(apperr.CodePersistenceFailure, err, "create exams directory")
	}
	return &Store{dir: dir, locks: make(map[string]*sync.Mutex)}, nil
}

// Dir returns the directory holding exam records.
func (s *Store) Dir() string { return s.dir }

// Lock acquires the mutation lock for an exam id and returns the
// release function.
func (s *Store) Lock(id string) func() {
	key := canonicalID(id)
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Save writes the full record, overwriting any existing file for the
// same id. It returns the file path written.
func (s *Store) Save(e *exam.Exam) (string, error) {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return "", apperr.Wrap(apperr.CodePersistenceFailure, err, "encode exam %s", e.ID)
	}
	path := s.path(e.ID)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", apperr.Wrap(apperr.CodePersistenceFailure, err, "write exam %s", e.ID)
	}
	return path, nil
}

// Load reads an exam record by id. The id is extension-tolerant:
// callers may pass it with or without the storage file extension.
func (s *Store) Load(id string) (*exam.Exam, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.NotFound("exam not found: %s", canonicalID(id))
		}
		return nil, apperr.Wrap(apperr.CodePersistenceFailure, err, "read exam %s", canonicalID(id))
	}

	var e exam.Exam
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, apperr.Wrap(apperr.CodePersistenceFailure, err, "decode exam %s", canonicalID(id))
	}
	return &e, nil
}

// Delete removes the persisted record for an exam id.
func (s *Store) Delete(id string) error {
	err := os.Remove(s.path(id))
	if os.IsNotExist(err) {
		return apperr.NotFound("exam not found: %s", canonicalID(id))
	}
	if err != nil {
		return apperr.Wrap(apperr.CodePersistenceFailure, err, "delete exam %s", canonicalID(id))
	}
	return nil
}

// List returns every persisted exam record. Listing is best-effort:
// corrupt or unreadable files are skipped with a warning rather than
// failing the whole listing.
func (s *Store) List() ([]*exam.Exam, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodePersistenceFailure, err, "read exams directory")
	}

	exams := make([]*exam.Exam, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExt) {
			continue
		}
		e, err := s.Load(entry.Name())
		if err != nil {
			slog.Warn("skipping unreadable exam file", "file", entry.Name(), "error", err)
			continue
		}
		exams = append(exams, e)
	}
	return exams, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, canonicalID(id)+fileExt)
}

func canonicalID(id string) string {
	return strings.TrimSuffix(id, fileExt)
}
