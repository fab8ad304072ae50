// Package extract defines the document text-extraction boundary.
// The production PDF extractor is an external collaborator; this
// package holds the interface it must satisfy and a plain-text
// implementation used for development and tests.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Page is one page of extracted text.
type Page struct {
	Number int    `json:"page_number"`
	Text   string `json:"text"`
}

// Result is the page-segmented output of an extraction run.
type Result struct {
	Filename  string `json:"filename"`
	FullText  string `json:"full_text"`
	Pages     []Page `json:"pages"`
	PageCount int    `json:"page_count"`
}

// Extractor produces page-segmented text from a document on disk.
type Extractor interface {
	Extract(path string) (*Result, error)
}

// PlainText extracts UTF-8 text files, treating form feeds as page
// breaks. It stands in for the PDF collaborator in development.
type PlainText struct{}

func (PlainText) Extract(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	var pages []Page
	var full strings.Builder
	for i, chunk := range strings.Split(string(data), "\f") {
		text := strings.TrimSpace(chunk)
		if text == "" {
			continue
		}
		page := Page{Number: i + 1, Text: text}
		pages = append(pages, page)
		fmt.Fprintf(&full, "\n--- Page %d ---\n%s", page.Number, page.Text)
	}

	return &Result{
		Filename:  filepath.Base(path),
		FullText:  strings.TrimSpace(full.String()),
		Pages:     pages,
		PageCount: len(pages),
	}, nil
}
