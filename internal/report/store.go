package report

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"idvet/pkg/sentinel"
)

// Report formats served by the retrieval endpoint.
const (
	FormatJSON = "json"
	FormatPDF  = "pdf"
)

// ArtifactStore persists rendered reports. Save returns a reference the job
// records so status queries can tell whether a report exists.
type ArtifactStore interface {
	Save(ctx context.Context, jobID string, artifacts Artifacts) (string, error)
	Load(ctx context.Context, jobID, format string) ([]byte, error)
}

// FSStore writes reports under a directory as kyc_<id>.json and kyc_<id>.pdf.
type FSStore struct {
	dir string
}

func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}
	return &FSStore{dir: dir}, nil
}

func (s *FSStore) path(jobID, format string) string {
	return filepath.Join(s.dir, fmt.Sprintf("kyc_%s.%s", jobID, format))
}

func (s *FSStore) Save(_ context.Context, jobID string, artifacts Artifacts) (string, error) {
	jsonPath := s.path(jobID, FormatJSON)
	if err := os.WriteFile(jsonPath, artifacts.JSON, 0o644); err != nil {
		return "", fmt.Errorf("write report json: %w", err)
	}
	if err := os.WriteFile(s.path(jobID, FormatPDF), artifacts.PDF, 0o644); err != nil {
		return "", fmt.Errorf("write report pdf: %w", err)
	}
	return jsonPath, nil
}

func (s *FSStore) Load(_ context.Context, jobID, format string) ([]byte, error) {
	data, err := os.ReadFile(s.path(jobID, format))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	return data, nil
}

// InMemoryStore keeps artifacts in a map. Test use only.
type InMemoryStore struct {
	mu        sync.RWMutex
	artifacts map[string]Artifacts
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{artifacts: make(map[string]Artifacts)}
}

func (s *InMemoryStore) Save(_ context.Context, jobID string, artifacts Artifacts) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[jobID] = artifacts
	return "memory://" + jobID, nil
}

func (s *InMemoryStore) Load(_ context.Context, jobID, format string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arts, ok := s.artifacts[jobID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	switch format {
	case FormatJSON:
		return arts.JSON, nil
	case FormatPDF:
		return arts.PDF, nil
	default:
		return nil, sentinel.ErrNotFound
	}
}
