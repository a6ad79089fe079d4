package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/goldwatch/internal/entity"
	"github.com/user/goldwatch/internal/repository"
)

var testTargets = []entity.Target{
	{ID: "a", URL: "https://a.example"},
	{ID: "b", URL: "https://b.example"},
	{ID: "c", URL: "https://c.example"},
}

func TestCaptureStage_CapturesEveryTargetInOrder(t *testing.T) {
	store := newMemStore()
	launcher := &fakeLauncher{}

	err := NewCaptureStage(testTargets, launcher, store).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.example", "https://b.example", "https://c.example"}, launcher.browser.visited)
	assert.True(t, launcher.browser.closed)
	for _, target := range testTargets {
		c, err := store.LoadCapture(context.Background(), target.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.FormatPNG, c.Format)
		assert.Equal(t, "png:"+target.URL, string(c.Image))
		assert.False(t, c.CapturedAt.IsZero())
	}
}

func TestCaptureStage_FailsFast(t *testing.T) {
	store := newMemStore()
	launcher := &fakeLauncher{failURLs: map[string]error{"https://b.example": errBoom}}

	err := NewCaptureStage(testTargets, launcher, store).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "target b")

	// c is never visited and the browser is still released.
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, launcher.browser.visited)
	assert.True(t, launcher.browser.closed)

	_, err = store.LoadCapture(context.Background(), "a")
	assert.NoError(t, err)
	_, err = store.LoadCapture(context.Background(), "c")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCaptureStage_LaunchFailure(t *testing.T) {
	launcher := &fakeLauncher{launchErr: errBoom}

	err := NewCaptureStage(testTargets, launcher, newMemStore()).Run(context.Background())
	assert.ErrorIs(t, err, errBoom)
	assert.Nil(t, launcher.browser)
}
