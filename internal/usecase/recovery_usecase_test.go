package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/goldwatch/internal/entity"
	"github.com/user/goldwatch/internal/repository"
)

func seedCaptures(t *testing.T, store *memStore, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, store.SaveCapture(context.Background(), &entity.Capture{
			TargetID: id,
			Image:    []byte("img-" + id),
			Format:   entity.FormatPNG,
		}))
	}
}

func TestRecoveryStage_IsolatesRecognizerFailures(t *testing.T) {
	store := newMemStore()
	seedCaptures(t, store, "a", "b", "c")
	recognizer := &fakeRecognizer{
		replies: map[string]string{"img-a": "text A", "img-c": "text C"},
		errs:    map[string]error{"img-b": errBoom},
	}

	report, err := NewRecoveryStage(testTargets, store, store, recognizer, RecoveryOptions{}).Recover(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "c"}, report.Recovered)
	assert.Equal(t, []string{"b"}, report.Failed)
	assert.Empty(t, report.Missing)

	text, err := store.LoadText(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "text A", text.Text)
	_, err = store.LoadText(context.Background(), "b")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRecoveryStage_SendsInstructionAndMIMEType(t *testing.T) {
	store := newMemStore()
	seedCaptures(t, store, "a")

	var gotMIME, gotInstruction string
	recognizer := recognizerFunc(func(_ context.Context, _ []byte, mimeType, instruction string) (string, error) {
		gotMIME, gotInstruction = mimeType, instruction
		return "  padded \n", nil
	})

	_, err := NewRecoveryStage(testTargets[:1], store, store, recognizer, RecoveryOptions{}).Recover(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "image/png", gotMIME)
	assert.Equal(t, RecoveryInstruction, gotInstruction)
	text, err := store.LoadText(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "padded", text.Text)
}

func TestRecoveryStage_SkipsMissingCaptures(t *testing.T) {
	store := newMemStore()
	seedCaptures(t, store, "a", "c")
	recognizer := &fakeRecognizer{replies: map[string]string{"img-a": "A", "img-c": "C"}}

	report, err := NewRecoveryStage(testTargets, store, store, recognizer, RecoveryOptions{}).Recover(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "c"}, report.Recovered)
	assert.Equal(t, []string{"b"}, report.Missing)
	assert.ElementsMatch(t, []string{"img-a", "img-c"}, recognizer.calls)
}

func TestRecoveryStage_ClearsStaleTexts(t *testing.T) {
	store := newMemStore()
	require.NoError(t, store.SaveText(context.Background(), &entity.RecoveredText{TargetID: "b", Text: "stale"}))
	seedCaptures(t, store, "a")
	recognizer := &fakeRecognizer{replies: map[string]string{"img-a": "fresh"}}

	_, err := NewRecoveryStage(testTargets, store, store, recognizer, RecoveryOptions{}).Recover(context.Background())
	require.NoError(t, err)

	_, err = store.LoadText(context.Background(), "b")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRecoveryStage_PreservesOrderUnderConcurrency(t *testing.T) {
	store := newMemStore()
	seedCaptures(t, store, "a", "b", "c")
	recognizer := &fakeRecognizer{
		replies: map[string]string{"img-a": "A", "img-b": "B", "img-c": "C"},
		// a finishes last, c first.
		delays: map[string]time.Duration{"img-a": 60 * time.Millisecond, "img-b": 30 * time.Millisecond},
	}

	stage := NewRecoveryStage(testTargets, store, store, recognizer, RecoveryOptions{Concurrency: 3})
	report, err := stage.Recover(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, report.Recovered)
	assert.Equal(t, []string{"a", "b", "c"}, store.textLog)
}

func TestRecoveryStage_StoreErrorFailsStage(t *testing.T) {
	store := newMemStore()
	store.loadErr = errBoom

	err := NewRecoveryStage(testTargets, store, store, &fakeRecognizer{}, RecoveryOptions{}).Run(context.Background())
	assert.ErrorIs(t, err, errBoom)
}

func TestRecoveryStage_RateLimited(t *testing.T) {
	store := newMemStore()
	seedCaptures(t, store, "a", "b", "c")
	recognizer := &fakeRecognizer{replies: map[string]string{"img-a": "A", "img-b": "B", "img-c": "C"}}

	start := time.Now()
	stage := NewRecoveryStage(testTargets, store, store, recognizer, RecoveryOptions{Concurrency: 3, RatePerSecond: 20})
	_, err := stage.Recover(context.Background())
	require.NoError(t, err)

	// Burst of one: the second and third calls wait ~50ms each.
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

type recognizerFunc func(ctx context.Context, image []byte, mimeType, instruction string) (string, error)

func (f recognizerFunc) RecognizeText(ctx context.Context, image []byte, mimeType, instruction string) (string, error) {
	return f(ctx, image, mimeType, instruction)
}
