package ingest

import (
	"context"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/atalaya-security/riskguard/internal/domain"
)

// Loader reads methodology documents from a source directory.
type Loader struct {
	docsDir string
}

// NewLoader creates a loader rooted at docsDir.
func NewLoader(docsDir string) *Loader {
	return &Loader{docsDir: docsDir}
}

// DocsDir returns the source directory the loader reads from.
func (l *Loader) DocsDir() string {
	return l.docsDir
}

// LoadAll reads every text document under the source directory, classifies
// it, and returns the enriched documents. Fails if the directory does not
// exist. Source files are never mutated.
func (l *Loader) LoadAll(ctx context.Context) ([]domain.Document, error) {
	info, err := os.Stat(l.docsDir)
	if err != nil || !info.IsDir() {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeNotFound, "document source directory does not exist: "+l.docsDir, err)
	}

	var documents []domain.Document
	err = filepath.WalkDir(l.docsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !isTextFile(path) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		filename := filepath.Base(path)
		documents = append(documents, domain.Document{
			Content:       string(content),
			SourcePath:    path,
			Filename:      filename,
			Type:          ClassifyDocument(filename),
			ContentLength: len(content),
			Language:      "en",
			Domain:        "cybersecurity",
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("ingest: loaded %d documents from %s", len(documents), l.docsDir)
	return documents, nil
}

func isTextFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		return true
	default:
		return false
	}
}
