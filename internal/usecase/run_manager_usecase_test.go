package usecase

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/goldwatch/internal/entity"
)

type fakeRunner struct {
	report *entity.RunReport
	err    error
	runs   atomic.Int32
	last   *entity.RunReport
}

func (f *fakeRunner) Run(context.Context) (*entity.RunReport, error) {
	f.runs.Add(1)
	f.last = f.report
	return f.report, f.err
}

func (f *fakeRunner) LastReport() *entity.RunReport { return f.last }

type fakeLock struct {
	held     bool
	acquires int
	releases int
}

func (l *fakeLock) Acquire(context.Context, time.Duration) (bool, error) {
	l.acquires++
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *fakeLock) Release(context.Context) error {
	l.releases++
	l.held = false
	return nil
}

type memHistory struct {
	reports []*entity.RunReport
}

func (h *memHistory) Push(_ context.Context, r *entity.RunReport) error {
	h.reports = append([]*entity.RunReport{r}, h.reports...)
	return nil
}

func (h *memHistory) Recent(_ context.Context, n int) ([]*entity.RunReport, error) {
	if n > len(h.reports) {
		n = len(h.reports)
	}
	return h.reports[:n], nil
}

func TestRunManager_TriggerRecordsHistory(t *testing.T) {
	runner := &fakeRunner{report: &entity.RunReport{RunID: "r1", State: entity.StageDone}}
	lock := &fakeLock{}
	history := &memHistory{}
	manager := NewRunManager(runner, lock, history, time.Hour)

	report, err := manager.Trigger(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "r1", report.RunID)
	assert.Equal(t, 1, lock.acquires)
	assert.Equal(t, 1, lock.releases)

	reports, err := manager.History(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "r1", reports[0].RunID)
}

func TestRunManager_FailedRunIsStillRecorded(t *testing.T) {
	failed := &entity.RunReport{RunID: "r2", State: entity.StageFailed, FailedStage: entity.StageCapture}
	runner := &fakeRunner{report: failed, err: &StageError{Stage: entity.StageCapture, Err: errBoom}}
	history := &memHistory{}

	_, err := NewRunManager(runner, nil, history, 0).Trigger(context.Background())
	assert.ErrorIs(t, err, errBoom)
	require.Len(t, history.reports, 1)
	assert.Equal(t, entity.StageCapture, history.reports[0].FailedStage)
}

func TestRunManager_LockHeldElsewhere(t *testing.T) {
	runner := &fakeRunner{}
	lock := &fakeLock{held: true}

	_, err := NewRunManager(runner, lock, nil, time.Hour).Trigger(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)
	assert.Zero(t, runner.runs.Load())
	assert.Zero(t, lock.releases)
}

func TestRunManager_LatestWithoutHistory(t *testing.T) {
	runner := &fakeRunner{}
	manager := NewRunManager(runner, nil, nil, 0)

	latest, err := manager.Latest(context.Background())
	require.NoError(t, err)
	assert.Nil(t, latest)

	runner.last = &entity.RunReport{RunID: "local"}
	latest, err = manager.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "local", latest.RunID)

	reports, err := manager.History(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, reports, 1)
}

func TestRunManager_LatestFallsBackToHistory(t *testing.T) {
	history := &memHistory{reports: []*entity.RunReport{{RunID: "other-replica"}}}
	manager := NewRunManager(&fakeRunner{}, nil, history, 0)

	latest, err := manager.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "other-replica", latest.RunID)
}

func TestSchedule_TriggersUntilCancelled(t *testing.T) {
	runner := &fakeRunner{report: &entity.RunReport{State: entity.StageDone}}
	manager := NewRunManager(runner, nil, nil, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Schedule(ctx, manager, 10*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return runner.runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestRunManager_LatestPrefersSharedHistory(t *testing.T) {
	runner := &fakeRunner{last: &entity.RunReport{RunID: "local-older"}}
	history := &memHistory{reports: []*entity.RunReport{{RunID: "other-replica-newer"}, {RunID: "local-older"}}}
	manager := NewRunManager(runner, nil, history, 0)

	latest, err := manager.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "other-replica-newer", latest.RunID)

	history.reports = nil
	latest, err = manager.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "local-older", latest.RunID)
}
