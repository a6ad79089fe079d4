package csvfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/user/goldwatch/internal/entity"
	"github.com/user/goldwatch/internal/repository"
)

const (
	delimiter  = ","
	dateColumn = "date"
)

var _ repository.Sink = (*SinkImpl)(nil)

// SinkImpl appends records to a delimited text file. Values are joined
// without quoting, so they must not contain the delimiter.
type SinkImpl struct {
	path   string
	schema *entity.Schema
	mu     sync.Mutex
}

// NewSink creates a file sink writing to path.
func NewSink(path string, schema *entity.Schema) *SinkImpl {
	return &SinkImpl{path: path, schema: schema}
}

func (s *SinkImpl) Name() string { return "file" }

// EnsureSchema writes the header line when the file is missing or empty.
func (s *SinkImpl) EnsureSchema(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", s.path, err)
	}

	info, err := os.Stat(s.path)
	if err == nil && info.Size() > 0 {
		return nil
	}
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat %s: %w", s.path, err)
	}
	return s.appendLine(Header(s.schema))
}

// Append writes one row and returns the file path as the reference.
func (s *SinkImpl) Append(_ context.Context, record *entity.Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.appendLine(Row(record)); err != nil {
		return "", err
	}
	return s.path, nil
}

func (s *SinkImpl) appendLine(line string) error {
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", s.path, err)
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	return f.Close()
}

// Header returns the header line for schema, without the trailing newline.
func Header(schema *entity.Schema) string {
	return strings.Join(append([]string{dateColumn}, schema.Names()...), delimiter)
}

// Row returns the data line for record, without the trailing newline.
func Row(record *entity.Record) string {
	return strings.Join(append([]string{entity.FormatTimestamp(record.ObservedAt)}, record.Values...), delimiter)
}

// ParseRow splits a data line back into its timestamp and field values.
func ParseRow(line string) (timestamp string, values []string) {
	parts := strings.Split(strings.TrimRight(line, "\n"), delimiter)
	return parts[0], parts[1:]
}
