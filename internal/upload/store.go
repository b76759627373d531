// Package upload persists submitted documents so the pipeline can re-read
// them independently of the request lifecycle.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"idvet/pkg/sentinel"
)

// Store saves and re-opens uploaded documents. Save returns the document
// reference recorded on the job.
type Store interface {
	Save(ctx context.Context, jobID, filename string, r io.Reader) (string, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
}

// FSStore keeps documents on disk as <dir>/<jobID>_<filename>.
type FSStore struct {
	dir string
}

func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &FSStore{dir: dir}, nil
}

func (s *FSStore) Save(_ context.Context, jobID, filename string, r io.Reader) (string, error) {
	// filepath.Base strips any path components a client smuggles into the
	// filename.
	ref := filepath.Join(s.dir, jobID+"_"+filepath.Base(filename))
	f, err := os.Create(ref)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(ref)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	return ref, nil
}

func (s *FSStore) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	f, err := os.Open(ref)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open upload file: %w", err)
	}
	return f, nil
}
