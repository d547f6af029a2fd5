package docstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store holds submitted candidate documents and hands their content to the
// pipeline by opaque ref.
type Store interface {
	// Fetch returns the raw bytes for ref. A missing ref fails with a
	// permanent not-found error.
	Fetch(ctx context.Context, ref string) ([]byte, error)
	// Put stores data under kind ("cv" or "project") and returns the ref.
	Put(ctx context.Context, kind, filename string, data []byte) (string, error)
}

// FSStore keeps documents on the local filesystem under a root directory.
// Refs are root-relative paths.
type FSStore struct {
	root string
	log  *slog.Logger
}

func NewFSStore(root string, log *slog.Logger) (*FSStore, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create docstore root: %w", err)
	}
	return &FSStore{root: root, log: log}, nil
}

func (s *FSStore) Fetch(ctx context.Context, ref string) ([]byte, error) {
	path, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Warn("docstore.fetch.missing", "ref", ref)
		return nil, fmt.Errorf("document %q not found", ref)
	}
	if err != nil {
		return nil, fmt.Errorf("read document %q: %w", ref, err)
	}
	s.log.Debug("docstore.fetch.ok", "ref", ref, "bytes", len(data))
	return data, nil
}

func (s *FSStore) Put(ctx context.Context, kind, filename string, data []byte) (string, error) {
	ext := filepath.Ext(filename)
	ref := filepath.Join(kind, time.Now().UTC().Format("20060102")+"-"+uuid.NewString()+ext)
	path, err := s.resolve(ref)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create document dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write document: %w", err)
	}
	s.log.Info("docstore.put.ok", "ref", ref, "bytes", len(data), "original", filename)
	return ref, nil
}

// resolve rejects refs that escape the store root.
func (s *FSStore) resolve(ref string) (string, error) {
	clean := filepath.Clean("/" + ref)
	if strings.Contains(ref, "..") {
		return "", fmt.Errorf("invalid request: bad document ref %q", ref)
	}
	return filepath.Join(s.root, clean), nil
}
