package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/frauddesk/fraudqa/common/logger"
)

// Document is one page (or whole text file) of source material before
// splitting. Page is 1-based; plain text and markdown files count as a
// single page 1.
type Document struct {
	Source  string
	Page    int
	Content string
}

// LoadFile reads one source file into per-page documents. PDF pages are
// extracted individually so citations can carry page numbers; .txt and
// .md files load as one document.
func LoadFile(path string) ([]Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return loadPDF(path)
	case ".txt", ".md", ".markdown":
		return loadText(path)
	default:
		return nil, fmt.Errorf("unsupported document type: %s", path)
	}
}

// LoadDir loads every supported file directly under dir, skipping
// unsupported extensions rather than failing the whole run.
func LoadDir(dir string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read documents dir: %w", err)
	}

	var docs []Document
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		loaded, err := LoadFile(path)
		if err != nil {
			logger.Warnf("ingest: skipping %s: %v", e.Name(), err)
			continue
		}
		docs = append(docs, loaded...)
	}
	return docs, nil
}

func loadPDF(path string) ([]Document, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	source := filepath.Base(path)
	var docs []Document
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			logger.Warnf("ingest: %s page %d unreadable: %v", source, i, err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		docs = append(docs, Document{Source: source, Page: i, Content: text})
	}
	logger.Infof("ingest: loaded %s, %d readable page(s)", source, len(docs))
	return docs, nil
}

func loadText(path string) ([]Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if strings.TrimSpace(string(raw)) == "" {
		return nil, nil
	}
	return []Document{{Source: filepath.Base(path), Page: 1, Content: string(raw)}}, nil
}
