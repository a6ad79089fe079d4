package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/goldwatch/internal/entity"
	"github.com/user/goldwatch/internal/repository"
)

func testRecord() *entity.Record {
	r := entity.NewRecord(testSchema, fixedNow)
	r.Values = []string{"100", "105"}
	return r
}

func TestPersistenceStage_WritesLoadedRecord(t *testing.T) {
	store := newMemStore()
	require.NoError(t, store.SaveRecord(context.Background(), testRecord()))
	sink := &fakeSink{name: "file"}

	err := NewPersistenceStage(testSchema, store, []repository.Sink{sink}).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, sink.appended, 1)
	assert.Equal(t, []string{"100", "105"}, sink.appended[0].Values)
	assert.Equal(t, 1, sink.bootstraps)
}

func TestPersistenceStage_MissingRecord(t *testing.T) {
	sink := &fakeSink{name: "file"}

	err := NewPersistenceStage(testSchema, newMemStore(), []repository.Sink{sink}).Run(context.Background())
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Empty(t, sink.appended)
}

func TestPersistenceStage_SinksAreIndependent(t *testing.T) {
	broken := &fakeSink{name: "postgres", appendErr: errBoom}
	unreachable := &fakeSink{name: "sheets", ensureErr: errBoom}
	healthy := &fakeSink{name: "file"}
	stage := NewPersistenceStage(testSchema, newMemStore(), []repository.Sink{broken, unreachable, healthy})

	results, err := stage.Persist(context.Background(), testRecord())
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "sink postgres: append")
	assert.Contains(t, err.Error(), "sink sheets: bootstrap")

	require.Len(t, results, 3)
	assert.Error(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)
	assert.Equal(t, "file-ref", results[2].Ref)
	assert.Len(t, healthy.appended, 1)
}

func TestPersistenceStage_NoSinks(t *testing.T) {
	_, err := NewPersistenceStage(testSchema, newMemStore(), nil).Persist(context.Background(), testRecord())
	assert.ErrorIs(t, err, ErrNoSinks)
}

func TestPersistenceStage_RejectsWrongArity(t *testing.T) {
	sink := &fakeSink{name: "file"}
	record := testRecord()
	record.Values = []string{"100"}

	_, err := NewPersistenceStage(testSchema, newMemStore(), []repository.Sink{sink}).Persist(context.Background(), record)
	assert.ErrorIs(t, err, entity.ErrSchemaMismatch)
	assert.Zero(t, sink.bootstraps)
}
