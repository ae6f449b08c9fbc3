package pdf

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultSearchLimit caps the number of documents returned by a search
const DefaultSearchLimit = 100

// FileInfo describes a document found in the work directory
type FileInfo struct {
	Path         string `json:"path"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	ModifiedTime string `json:"modified_time"`
	StoreCode    string `json:"store_code,omitempty"`
	Signed       bool   `json:"signed"`
}

// SearchRequest filters the documents in the work directory
type SearchRequest struct {
	Query string `json:"query,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// SearchResult lists the matching documents
type SearchResult struct {
	Files      []FileInfo `json:"files"`
	TotalCount int        `json:"total_count"`
	Directory  string     `json:"directory"`
	Query      string     `json:"query,omitempty"`
	Truncated  bool       `json:"truncated,omitempty"`
}

// SearchDocuments walks the work directory for PDFs whose name or store code
// matches the query. Files are not opened; the store code comes from the
// file name only. Paths are relative to the work directory.
func (s *Service) SearchDocuments(req SearchRequest) (*SearchResult, error) {
	root := s.input.Root()
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("work directory is not accessible: %w", err)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	query := strings.ToLower(strings.TrimSpace(req.Query))

	result := &SearchResult{Directory: root, Query: req.Query}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Continue walking even if we encounter an error with a specific file
			return nil
		}

		if err := s.input.ValidatePath(path); err != nil {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			// hidden directories hold temporary output
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}

		if !isPDFFile(d.Name()) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Size() == 0 || (s.validator.maxFileSize > 0 && info.Size() > s.validator.maxFileSize) {
			return nil
		}

		code := codeFromName(d.Name())
		if query != "" && !matchesQuery(d.Name(), code, query) {
			return nil
		}

		if len(result.Files) >= limit {
			result.Truncated = true
			return filepath.SkipAll
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		result.Files = append(result.Files, FileInfo{
			Path:         rel,
			Name:         d.Name(),
			Size:         info.Size(),
			ModifiedTime: info.ModTime().Format("2006-01-02 15:04:05"),
			StoreCode:    code,
			Signed:       signedNamePattern.MatchString(d.Name()),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking directory: %w", err)
	}

	result.TotalCount = len(result.Files)
	return result, nil
}

// isPDFFile checks if a file has a PDF extension
func isPDFFile(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".pdf")
}

// matchesQuery matches the store code exactly or every query word against
// the words of the file name
func matchesQuery(filename, storeCode, query string) bool {
	if storeCode != "" && strings.EqualFold(storeCode, query) {
		return true
	}

	name := strings.TrimSuffix(strings.ToLower(filename), ".pdf")
	if strings.Contains(name, query) {
		return true
	}

	words := splitIntoWords(name)
	for _, queryWord := range splitIntoWords(query) {
		found := false
		for _, word := range words {
			if strings.Contains(word, queryWord) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// splitIntoWords splits a string into lower-case words on common separators
func splitIntoWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		switch r {
		case ' ', '_', '-', '.', '(', ')', '[', ']':
			return true
		}
		return false
	})
}
