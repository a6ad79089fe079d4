// Package filestore keeps pipeline artifacts on disk so each stage can run
// as its own process:
//
//	<root>/screenshots/<target>.png
//	<root>/ocr/<target>.txt
//	<root>/record.json
package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/user/goldwatch/internal/entity"
	"github.com/user/goldwatch/internal/repository"
)

const (
	screenshotsDir = "screenshots"
	textDir        = "ocr"
	recordFile     = "record.json"
)

var _ repository.ArtifactStore = (*Store)(nil)

// Store implements repository.ArtifactStore on the local filesystem.
type Store struct {
	root string
}

// New creates the directory layout under root.
func New(root string) (*Store, error) {
	for _, dir := range []string{screenshotsDir, textDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("create %s directory: %w", dir, err)
		}
	}
	return &Store{root: root}, nil
}

func (s *Store) capturePath(targetID string, format entity.ImageFormat) string {
	return filepath.Join(s.root, screenshotsDir, targetID+format.Extension())
}

func (s *Store) textPath(targetID string) string {
	return filepath.Join(s.root, textDir, targetID+".txt")
}

// SaveCapture writes the image and stamps the file's modification time with
// CapturedAt.
func (s *Store) SaveCapture(_ context.Context, capture *entity.Capture) error {
	path := s.capturePath(capture.TargetID, capture.Format)
	if err := writeFile(path, capture.Image); err != nil {
		return err
	}
	if !capture.CapturedAt.IsZero() {
		if err := os.Chtimes(path, capture.CapturedAt, capture.CapturedAt); err != nil {
			return fmt.Errorf("set capture time for %s: %w", capture.TargetID, err)
		}
	}
	return nil
}

// LoadCapture prefers a PNG and falls back to a JPEG for the same target.
func (s *Store) LoadCapture(_ context.Context, targetID string) (*entity.Capture, error) {
	path, format, info, err := s.findCapture(targetID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read capture for %s: %w", targetID, err)
	}
	return &entity.Capture{TargetID: targetID, Image: data, Format: format, CapturedAt: info.ModTime()}, nil
}

func (s *Store) CapturedAt(_ context.Context, targetID string) (time.Time, error) {
	_, _, info, err := s.findCapture(targetID)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

func (s *Store) findCapture(targetID string) (string, entity.ImageFormat, os.FileInfo, error) {
	for _, format := range []entity.ImageFormat{entity.FormatPNG, entity.FormatJPEG} {
		path := s.capturePath(targetID, format)
		info, err := os.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", "", nil, fmt.Errorf("stat capture for %s: %w", targetID, err)
		}
		return path, format, info, nil
	}
	return "", "", nil, repository.ErrNotFound
}

func (s *Store) SaveText(_ context.Context, text *entity.RecoveredText) error {
	return writeFile(s.textPath(text.TargetID), []byte(text.Text))
}

func (s *Store) LoadText(_ context.Context, targetID string) (*entity.RecoveredText, error) {
	data, err := os.ReadFile(s.textPath(targetID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read text for %s: %w", targetID, err)
	}
	return &entity.RecoveredText{TargetID: targetID, Text: string(data)}, nil
}

func (s *Store) DeleteText(_ context.Context, targetID string) error {
	if err := os.Remove(s.textPath(targetID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete text for %s: %w", targetID, err)
	}
	return nil
}

func (s *Store) SaveRecord(_ context.Context, record *entity.Record) error {
	data, err := entity.MarshalRecord(record)
	if err != nil {
		return err
	}
	return writeFile(filepath.Join(s.root, recordFile), data)
}

func (s *Store) LoadRecord(_ context.Context, schema *entity.Schema) (*entity.Record, error) {
	data, err := os.ReadFile(filepath.Join(s.root, recordFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}
	return entity.UnmarshalRecord(data, schema)
}

func (s *Store) DeleteRecord(_ context.Context) error {
	if err := os.Remove(filepath.Join(s.root, recordFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return nil }

// writeFile replaces path atomically through a temp file in the same directory.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
