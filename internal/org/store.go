package org

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FileStore loads and saves org documents on disk.
type FileStore struct {
	todos Todos
}

// NewFileStore creates a store that parses documents with the given vocabulary.
func NewFileStore(todos Todos) *FileStore {
	return &FileStore{todos: todos}
}

// Load reads and parses the document at path.
// A missing file yields an empty document.
func (s *FileStore) Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Info("document not found, starting empty", "path", path)
			return NewDocument(s.todos), nil
		}
		return nil, fmt.Errorf("opening document: %w", err)
	}
	defer f.Close()

	doc, err := Parse(f, s.todos)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	slog.Debug("document loaded", "path", path, "top_level_headings", len(doc.Root.Children()))
	return doc, nil
}

// Save writes the document to path, replacing any previous content.
// The file is written to a temporary sibling first and renamed into place,
// so readers see either the old or the new document.
func (s *FileStore) Save(path string, doc *Document) error {
	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return fmt.Errorf("rendering document: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting file mode: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing document: %w", err)
	}

	slog.Debug("document saved", "path", path, "bytes", buf.Len())
	return nil
}
