package service

import (
	"testing"
	"time"

	"tripgen/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReaperEnv(t *testing.T) (*testEnv, *Reaper) {
	env := newTestEnv(t)
	reaper := NewReaper(env.batchRepo, env.runner, env.cfg, testLogger())
	return env, reaper
}

func seedBatch(t *testing.T, env *testEnv, status string, startedAgo time.Duration) *models.RegenerationBatch {
	t.Helper()
	batch := &models.RegenerationBatch{
		ID:        uuid.NewString(),
		ProjectID: 1,
		Scope:     models.BatchScopeDay,
		TotalJobs: 3,
		Status:    status,
		StartedAt: time.Now().Add(-startedAgo),
	}
	require.NoError(t, env.batchRepo.Create(batch))
	return batch
}

func TestReapOnceMarksStaleBatches(t *testing.T) {
	env, reaper := newReaperEnv(t)

	stale := seedBatch(t, env, models.BatchStatusProcessing, 31*time.Minute)
	stalePending := seedBatch(t, env, models.BatchStatusPending, 45*time.Minute)
	fresh := seedBatch(t, env, models.BatchStatusProcessing, 5*time.Minute)

	reaper.ReapOnce(time.Now())

	got, err := env.batchRepo.GetByID(stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BatchStatusTimedOut, got.Status)
	require.NotNil(t, got.CompletedAt)

	got, err = env.batchRepo.GetByID(stalePending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BatchStatusTimedOut, got.Status)

	// 阈值内的批次不动
	got, err = env.batchRepo.GetByID(fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BatchStatusProcessing, got.Status)
}

func TestReapOnceSkipsTerminalBatches(t *testing.T) {
	env, reaper := newReaperEnv(t)

	done := seedBatch(t, env, models.BatchStatusCompleted, 2*time.Hour)
	failed := seedBatch(t, env, models.BatchStatusFailed, 2*time.Hour)

	reaper.ReapOnce(time.Now())

	got, err := env.batchRepo.GetByID(done.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BatchStatusCompleted, got.Status)

	got, err = env.batchRepo.GetByID(failed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BatchStatusFailed, got.Status)
}

func TestTimedOutBatchIgnoresLateCallbacks(t *testing.T) {
	env, reaper := newReaperEnv(t)

	batch := seedBatch(t, env, models.BatchStatusProcessing, 31*time.Minute)
	reaper.ReapOnce(time.Now())

	// 迟到的任务回调不改变已终止的批次
	require.NoError(t, env.batchRepo.IncrementCompleted(batch.ID))
	require.NoError(t, env.batchRepo.IncrementFailed(batch.ID))
	require.NoError(t, env.batchRepo.Finalize(batch.ID, models.BatchStatusCompleted))

	got, err := env.batchRepo.GetByID(batch.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BatchStatusTimedOut, got.Status)
	assert.Zero(t, got.CompletedJobs)
	assert.Zero(t, got.FailedJobs)
}
