// Package corpus reads the raw documents an index is built from.
package corpus

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/hieu7404/nlp-rag/internal/errs"
)

// Document is one loaded input file.
type Document struct {
	Path string
	Text string
}

// Load expands glob patterns in paths and reads every match in order. PDF
// files are reduced to their plain text; anything else is read as UTF-8 text.
// A pattern without matches is treated as a literal path.
func Load(paths []string) ([]Document, error) {
	var docs []Document
	for _, p := range paths {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, errs.Wrap(err, errs.CodeCorpusReadFailure, "bad corpus pattern", errs.FieldPath(p))
		}
		if matches == nil {
			matches = []string{p}
		}
		for _, m := range matches {
			doc, err := loadFile(m)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func loadFile(path string) (Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Document{}, errs.Wrap(err, errs.CodeCorpusNotFound, "corpus file not found", errs.FieldPath(path))
		}
		return Document{}, errs.Wrap(err, errs.CodeCorpusReadFailure, "reading corpus file", errs.FieldPath(path))
	}
	if info.IsDir() {
		return Document{}, errs.New(errs.CodeCorpusReadFailure, "corpus path is a directory", errs.FieldPath(path))
	}
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		text, err := readPDF(path)
		if err != nil {
			return Document{}, err
		}
		return Document{Path: path, Text: text}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, errs.Wrap(err, errs.CodeCorpusReadFailure, "reading corpus file", errs.FieldPath(path))
	}
	return Document{Path: path, Text: string(data)}, nil
}

func readPDF(path string) (string, error) {
	f, rdr, err := pdf.Open(path)
	if err != nil {
		return "", errs.Wrap(err, errs.CodeCorpusReadFailure, "opening pdf", errs.FieldPath(path))
	}
	defer func() { _ = f.Close() }()

	plain, err := rdr.GetPlainText()
	if err != nil {
		return "", errs.Wrap(err, errs.CodeCorpusReadFailure, "extracting pdf text", errs.FieldPath(path))
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", errs.Wrap(err, errs.CodeCorpusReadFailure, "reading pdf text", errs.FieldPath(path))
	}
	return buf.String(), nil
}

// Join concatenates document texts separated by a blank line.
func Join(docs []Document) string {
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		if t := strings.TrimSpace(d.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n")
}

// CollapseBlankLines keeps at most one blank line between content lines.
// Whitespace-only lines count as blank and are kept as written.
func CollapseBlankLines(text string) string {
	lines := strings.SplitAfter(text, "\n")
	var b strings.Builder
	b.Grow(len(text))
	prevBlank := false
	for _, line := range lines {
		blank := strings.TrimSpace(line) == ""
		if blank && prevBlank {
			continue
		}
		prevBlank = blank
		b.WriteString(line)
	}
	return b.String()
}
