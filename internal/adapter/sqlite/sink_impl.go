package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/user/goldwatch/internal/entity"
	"github.com/user/goldwatch/internal/repository"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var _ repository.Sink = (*SinkImpl)(nil)

// SinkImpl appends records to a table in a local SQLite database.
type SinkImpl struct {
	db     *sql.DB
	table  string
	schema *entity.Schema
}

// Open opens (creating if needed) the database at path.
func Open(path string, table string, schema *entity.Schema) (*SinkImpl, error) {
	if !identifierPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	for _, name := range schema.Names() {
		if !identifierPattern.MatchString(name) {
			return nil, fmt.Errorf("invalid column name %q", name)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return &SinkImpl{db: db, table: table, schema: schema}, nil
}

func (s *SinkImpl) Name() string { return "sqlite" }

// Close closes the database connection.
func (s *SinkImpl) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the table if it does not exist.
func (s *SinkImpl) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.createTableSQL()); err != nil {
		return fmt.Errorf("creating table %s: %w", s.table, err)
	}
	return nil
}

// Append inserts one row and returns the new row id.
func (s *SinkImpl) Append(ctx context.Context, record *entity.Record) (string, error) {
	args := make([]any, 0, len(record.Values)+1)
	args = append(args, entity.FormatTimestamp(record.ObservedAt))
	for _, v := range record.Values {
		args = append(args, sql.NullString{String: v, Valid: v != ""})
	}

	res, err := s.db.ExecContext(ctx, s.insertSQL(), args...)
	if err != nil {
		return "", fmt.Errorf("inserting into %s: %w", s.table, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("reading inserted id: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}

func (s *SinkImpl) createTableSQL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %q (\n", s.table)
	b.WriteString("\tid INTEGER PRIMARY KEY AUTOINCREMENT,\n")
	b.WriteString("\tdate TIMESTAMP NOT NULL,\n")
	for _, name := range s.schema.Names() {
		fmt.Fprintf(&b, "\t%q TEXT,\n", name)
	}
	b.WriteString("\tcreated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP\n)")
	return b.String()
}

func (s *SinkImpl) insertSQL() string {
	columns := []string{"date"}
	for _, name := range s.schema.Names() {
		columns = append(columns, strconv.Quote(name))
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s)", s.table, strings.Join(columns, ", "), placeholders)
}
