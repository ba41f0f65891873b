// Package storage keeps uploaded files on the local filesystem under a fixed layout:
//
//	<root>/temp        raw uploads waiting for the security scan
//	<root>/processed   accepted images, one directory per campaign
//	<root>/thumbnails  downscaled previews mirroring processed/
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/postertrack/backend/internal/apperr"
	"go.uber.org/zap"
)

const (
	TempDir       = "temp"
	ProcessedDir  = "processed"
	ThumbnailsDir = "thumbnails"
)

var ErrTooLarge = errors.New("upload exceeds size limit")

type LocalStore struct {
	root string
	log  *zap.Logger
}

// NewLocalStore creates the directory layout under root if missing.
func NewLocalStore(root string, log *zap.Logger) (*LocalStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	for _, dir := range []string{TempDir, ProcessedDir, ThumbnailsDir} {
		if err := os.MkdirAll(filepath.Join(abs, dir), 0o750); err != nil {
			return nil, fmt.Errorf("create %s dir: %w", dir, err)
		}
	}
	return &LocalStore{root: abs, log: log}, nil
}

func (s *LocalStore) Root() string { return s.root }

// SaveTemp streams r into a new file under temp/ and returns its absolute path and size.
// Reading more than maxBytes removes the partial file and returns ErrTooLarge.
func (s *LocalStore) SaveTemp(r io.Reader, maxBytes int64) (string, int64, error) {
	f, err := os.CreateTemp(filepath.Join(s.root, TempDir), "upload-*")
	if err != nil {
		return "", 0, err
	}
	path := f.Name()

	n, err := io.Copy(f, io.LimitReader(r, maxBytes+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > maxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(path)
		return "", 0, err
	}
	return path, n, nil
}

// RemoveTemp deletes a file previously returned by SaveTemp.
func (s *LocalStore) RemoveTemp(path string) error {
	if !s.within(filepath.Join(s.root, TempDir), path) {
		return fmt.Errorf("temp path %q outside temp dir", path)
	}
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Promote moves a scanned temp file to processed/<campaign>/<random>.<ext> and returns
// the path relative to the root.
func (s *LocalStore) Promote(tempPath string, campaignID uuid.UUID, ext string) (string, error) {
	if !s.within(filepath.Join(s.root, TempDir), tempPath) {
		return "", fmt.Errorf("temp path %q outside temp dir", tempPath)
	}
	rel := filepath.Join(ProcessedDir, campaignID.String(), uuid.NewString()+"."+ext)
	dst := filepath.Join(s.root, rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return "", err
	}
	if err := os.Rename(tempPath, dst); err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// Abs resolves a stored relative path, refusing anything that escapes the root.
func (s *LocalStore) Abs(rel string) (string, error) {
	p := filepath.Join(s.root, filepath.FromSlash(rel))
	if rel == "" || !s.within(s.root, p) {
		return "", apperr.Validation("invalid storage path")
	}
	return p, nil
}

func (s *LocalStore) Open(rel string) (*os.File, error) {
	p, err := s.Abs(rel)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperr.NotFound("file")
	}
	return f, err
}

// Remove deletes stored files. Missing files are ignored; other failures are logged
// and the first one is returned.
func (s *LocalStore) Remove(rels ...string) error {
	var first error
	for _, rel := range rels {
		p, err := s.Abs(rel)
		if err == nil {
			err = os.Remove(p)
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("failed to remove stored file", zap.String("path", rel), zap.Error(err))
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// CleanupTemp removes temp files older than maxAge and returns how many were removed.
func (s *LocalStore) CleanupTemp(maxAge time.Duration, now time.Time) (int, error) {
	dir := filepath.Join(s.root, TempDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) < maxAge {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("failed to remove temp file", zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}

func (s *LocalStore) within(base, p string) bool {
	rel, err := filepath.Rel(base, filepath.Clean(p))
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
