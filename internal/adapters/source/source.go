// Package source fetches the raw stat sheet and parses it into a table.
package source

import (
	"context"
	"os"
	"strings"

	crerr "github.com/cockroachdb/errors"
)

// Kinds of source.
const (
	KindFile = "file"
	KindHTTP = "http"
)

// Source returns the raw bytes of the stat sheet export.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
	// Kind names the transport, used as a metrics label.
	Kind() string
}

// FileSource reads the sheet from a local CSV file.
type FileSource struct {
	path string
}

// NewFileSource creates a FileSource.
func NewFileSource(path string) (*FileSource, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, ErrNoLocation
	}
	return &FileSource{path: path}, nil
}

// Kind implements Source.
func (s *FileSource) Kind() string { return KindFile }

// Fetch implements Source.
func (s *FileSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, crerr.Wrapf(err, "read sheet %s", s.path)
	}
	return raw, nil
}
