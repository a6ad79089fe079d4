package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/goldwatch/internal/entity"
)

var testSchema = &entity.Schema{Fields: []entity.Field{
	{Name: "buy", Title: "Buy"},
	{Name: "sell", Title: "Sell"},
}}

type fakeRow struct {
	id  int64
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*int64) = r.id
	return nil
}

type fakeQuerier struct {
	execSQL  []string
	querySQL string
	args     []any
	row      fakeRow
	execErr  error
}

func (q *fakeQuerier) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	q.execSQL = append(q.execSQL, sql)
	return pgconn.NewCommandTag("CREATE TABLE"), q.execErr
}

func (q *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	q.querySQL = sql
	q.args = args
	return q.row
}

func TestCreateTableSQL(t *testing.T) {
	want := "CREATE TABLE IF NOT EXISTS \"gold_prices\" (\n" +
		"\tid SERIAL PRIMARY KEY,\n" +
		"\tdate TIMESTAMP NOT NULL,\n" +
		"\t\"buy\" TEXT,\n" +
		"\t\"sell\" TEXT,\n" +
		"\tcreated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP\n)"
	assert.Equal(t, want, createTableSQL("gold_prices", testSchema))
}

func TestInsertSQL(t *testing.T) {
	assert.Equal(t,
		`INSERT INTO "gold_prices" (date, "buy", "sell") VALUES ($1, $2, $3) RETURNING id`,
		insertSQL("gold_prices", testSchema))
}

func TestNewSink_RejectsBadIdentifiers(t *testing.T) {
	_, err := newSink(&fakeQuerier{}, "gold; DROP TABLE x", testSchema)
	assert.Error(t, err)

	bad := &entity.Schema{Fields: []entity.Field{{Name: "buy price"}}}
	_, err = newSink(&fakeQuerier{}, "gold_prices", bad)
	assert.Error(t, err)
}

func TestSink_Append(t *testing.T) {
	q := &fakeQuerier{row: fakeRow{id: 42}}
	sink, err := newSink(q, "gold_prices", testSchema)
	require.NoError(t, err)

	observed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.FixedZone("HKT", 8*3600))
	record := entity.NewRecord(testSchema, observed)
	record.Values = []string{"100", ""}

	ref, err := sink.Append(context.Background(), record)
	require.NoError(t, err)
	assert.Equal(t, "42", ref)

	require.Len(t, q.args, 3)
	assert.Equal(t, observed.UTC(), q.args[0])
	assert.Equal(t, "100", q.args[1])
	assert.Nil(t, q.args[2])
}

func TestSink_EnsureSchema(t *testing.T) {
	q := &fakeQuerier{}
	sink, err := newSink(q, "gold_prices", testSchema)
	require.NoError(t, err)

	require.NoError(t, sink.EnsureSchema(context.Background()))
	require.Len(t, q.execSQL, 1)
	assert.Contains(t, q.execSQL[0], "CREATE TABLE IF NOT EXISTS")

	q.execErr = errors.New("permission denied")
	assert.Error(t, sink.EnsureSchema(context.Background()))
}

func TestSink_AppendError(t *testing.T) {
	q := &fakeQuerier{row: fakeRow{err: errors.New("connection reset")}}
	sink, err := newSink(q, "gold_prices", testSchema)
	require.NoError(t, err)

	_, err = sink.Append(context.Background(), entity.NewRecord(testSchema, time.Now()))
	assert.ErrorContains(t, err, "connection reset")
}
