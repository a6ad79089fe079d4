package postgres

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/goldwatch/internal/entity"
	"github.com/user/goldwatch/internal/repository"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// querier is the subset of *pgxpool.Pool the sink uses.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ repository.Sink = (*SinkImpl)(nil)

// SinkImpl appends records to a PostgreSQL table with one TEXT column per
// schema field.
type SinkImpl struct {
	db     querier
	table  string
	schema *entity.Schema
}

// Connect opens a connection pool and verifies it with a ping.
func Connect(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to reach database: %w", err)
	}
	return pool, nil
}

// NewSink creates a postgres sink. Table and field names must be plain
// identifiers.
func NewSink(db *pgxpool.Pool, table string, schema *entity.Schema) (*SinkImpl, error) {
	return newSink(db, table, schema)
}

func newSink(db querier, table string, schema *entity.Schema) (*SinkImpl, error) {
	if err := validateIdentifiers(table, schema); err != nil {
		return nil, err
	}
	return &SinkImpl{db: db, table: table, schema: schema}, nil
}

func (s *SinkImpl) Name() string { return "postgres" }

// EnsureSchema creates the table if it does not exist.
func (s *SinkImpl) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createTableSQL(s.table, s.schema)); err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.table, err)
	}
	return nil
}

// Append inserts one row and returns its id. Empty values are stored as NULL.
func (s *SinkImpl) Append(ctx context.Context, record *entity.Record) (string, error) {
	args := make([]any, 0, len(record.Values)+1)
	args = append(args, record.ObservedAt.UTC())
	for _, v := range record.Values {
		if v == "" {
			args = append(args, nil)
			continue
		}
		args = append(args, v)
	}

	var id int64
	if err := s.db.QueryRow(ctx, insertSQL(s.table, s.schema), args...).Scan(&id); err != nil {
		return "", fmt.Errorf("failed to insert into %s: %w", s.table, err)
	}
	return strconv.FormatInt(id, 10), nil
}

func createTableSQL(table string, schema *entity.Schema) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", quote(table))
	b.WriteString("\tid SERIAL PRIMARY KEY,\n")
	b.WriteString("\tdate TIMESTAMP NOT NULL,\n")
	for _, name := range schema.Names() {
		fmt.Fprintf(&b, "\t%s TEXT,\n", quote(name))
	}
	b.WriteString("\tcreated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP\n)")
	return b.String()
}

func insertSQL(table string, schema *entity.Schema) string {
	columns := []string{"date"}
	placeholders := []string{"$1"}
	for i, name := range schema.Names() {
		columns = append(columns, quote(name))
		placeholders = append(placeholders, "$"+strconv.Itoa(i+2))
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		quote(table), strings.Join(columns, ", "), strings.Join(placeholders, ", "))
}

func quote(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func validateIdentifiers(table string, schema *entity.Schema) error {
	if !identifierPattern.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	for _, name := range schema.Names() {
		if !identifierPattern.MatchString(name) {
			return fmt.Errorf("invalid column name %q", name)
		}
	}
	return nil
}
