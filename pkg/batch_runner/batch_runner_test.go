package batch_runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunner(opts Options) *Runner {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	if opts.WorkerCount == 0 {
		opts.WorkerCount = 4
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 3
	}
	if opts.JobTimeout == 0 {
		opts.JobTimeout = time.Second
	}
	if opts.BaseBackoff == 0 {
		opts.BaseBackoff = time.Millisecond
	}
	return NewRunner(opts, nil, logger)
}

func okJob(id string) Job {
	return Job{ID: id, Run: func(ctx context.Context) error { return nil }}
}

func TestRunnerExecutesAllJobs(t *testing.T) {
	r := newTestRunner(Options{})

	var jobDone int64
	var batchCompleted, batchFailed int

	done := make(chan struct{})
	jobs := []Job{okJob("a"), okJob("b"), okJob("c")}
	cb := Callbacks{
		OnJobDone: func(jobID string, jobErr error) {
			assert.NoError(t, jobErr)
			atomic.AddInt64(&jobDone, 1)
		},
		OnBatchDone: func(completed, failed int) {
			batchCompleted, batchFailed = completed, failed
			close(done)
		},
	}

	require.NoError(t, r.Submit("batch-1", jobs, cb))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("批次未在限期内结束")
	}

	assert.Equal(t, int64(3), atomic.LoadInt64(&jobDone))
	assert.Equal(t, 3, batchCompleted)
	assert.Zero(t, batchFailed)
}

func TestRunnerRejectsDuplicateRef(t *testing.T) {
	r := newTestRunner(Options{})

	block := make(chan struct{})
	jobs := []Job{{ID: "a", Run: func(ctx context.Context) error {
		<-block
		return nil
	}}}

	require.NoError(t, r.Submit("dup", jobs, Callbacks{}))
	assert.Error(t, r.Submit("dup", nil, Callbacks{}))

	close(block)
	assert.True(t, r.Wait("dup", 5*time.Second))

	// 批次结束后引用可以复用
	assert.NoError(t, r.Submit("dup", []Job{okJob("b")}, Callbacks{}))
	assert.True(t, r.Wait("dup", 5*time.Second))
}

func TestRunnerRetriesTransientErrors(t *testing.T) {
	r := newTestRunner(Options{MaxAttempts: 3})

	var attempts int64
	jobs := []Job{{ID: "flaky", Run: func(ctx context.Context) error {
		if atomic.AddInt64(&attempts, 1) < 3 {
			return errors.New("暂时不可用")
		}
		return nil
	}}}

	done := make(chan error, 1)
	cb := Callbacks{OnJobDone: func(jobID string, jobErr error) { done <- jobErr }}
	require.NoError(t, r.Submit("retry", jobs, cb))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("任务未在限期内结束")
	}
	assert.Equal(t, int64(3), atomic.LoadInt64(&attempts))
}

func TestRunnerExhaustsRetries(t *testing.T) {
	r := newTestRunner(Options{MaxAttempts: 2})

	var attempts int64
	boom := errors.New("一直失败")
	jobs := []Job{{ID: "doomed", Run: func(ctx context.Context) error {
		atomic.AddInt64(&attempts, 1)
		return boom
	}}}

	done := make(chan error, 1)
	require.NoError(t, r.Submit("exhaust", jobs, Callbacks{
		OnJobDone: func(jobID string, jobErr error) { done <- jobErr },
	}))

	select {
	case err := <-done:
		assert.ErrorIs(t, err, boom)
	case <-time.After(5 * time.Second):
		t.Fatal("任务未在限期内结束")
	}
	assert.Equal(t, int64(2), atomic.LoadInt64(&attempts))
}

func TestRunnerPermanentErrorSkipsRetry(t *testing.T) {
	r := newTestRunner(Options{MaxAttempts: 3})

	var attempts int64
	boom := errors.New("目标不存在")
	jobs := []Job{{ID: "gone", Run: func(ctx context.Context) error {
		atomic.AddInt64(&attempts, 1)
		return Permanent(boom)
	}}}

	done := make(chan error, 1)
	require.NoError(t, r.Submit("permanent", jobs, Callbacks{
		OnJobDone: func(jobID string, jobErr error) { done <- jobErr },
	}))

	select {
	case err := <-done:
		assert.ErrorIs(t, err, boom)
	case <-time.After(5 * time.Second):
		t.Fatal("任务未在限期内结束")
	}
	assert.Equal(t, int64(1), atomic.LoadInt64(&attempts))
}

func TestRunnerCancelStopsBatch(t *testing.T) {
	r := newTestRunner(Options{WorkerCount: 2})

	started := make(chan struct{})
	var once sync.Once
	jobs := make([]Job, 4)
	for i := range jobs {
		jobs[i] = Job{ID: fmt.Sprintf("j%d", i), Run: func(ctx context.Context) error {
			once.Do(func() { close(started) })
			<-ctx.Done()
			return ctx.Err()
		}}
	}

	var failed int
	done := make(chan struct{})
	require.NoError(t, r.Submit("cancel-me", jobs, Callbacks{
		OnBatchDone: func(completed, f int) {
			failed = f
			close(done)
		},
	}))

	<-started
	assert.True(t, r.Cancel("cancel-me"))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("取消后批次未结束")
	}
	assert.Equal(t, 4, failed)

	// 不存在的批次取消返回false
	assert.False(t, r.Cancel("no-such-batch"))
}

func TestRunnerProgress(t *testing.T) {
	r := newTestRunner(Options{})

	block := make(chan struct{})
	jobs := []Job{
		okJob("fast"),
		{ID: "slow", Run: func(ctx context.Context) error {
			<-block
			return nil
		}},
	}

	fastDone := make(chan struct{})
	require.NoError(t, r.Submit("progress", jobs, Callbacks{
		OnJobDone: func(jobID string, jobErr error) {
			if jobID == "fast" {
				close(fastDone)
			}
		},
	}))

	<-fastDone
	completed, failed, total, ok := r.Progress("progress")
	require.True(t, ok)
	assert.Equal(t, 1, completed)
	assert.Zero(t, failed)
	assert.Equal(t, 2, total)

	close(block)
	assert.True(t, r.Wait("progress", 5*time.Second))

	// 结束后批次从执行器中移除
	_, _, _, ok = r.Progress("progress")
	assert.False(t, ok)
}

func TestRunnerJobTimeout(t *testing.T) {
	r := newTestRunner(Options{MaxAttempts: 1, JobTimeout: 20 * time.Millisecond})

	jobs := []Job{{ID: "hang", Run: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}}

	done := make(chan error, 1)
	require.NoError(t, r.Submit("timeout", jobs, Callbacks{
		OnJobDone: func(jobID string, jobErr error) { done <- jobErr },
	}))

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(5 * time.Second):
		t.Fatal("超时任务未结束")
	}
}

func TestWorkersRunningWithoutRedis(t *testing.T) {
	r := newTestRunner(Options{})
	assert.False(t, r.WorkersRunning(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)
	assert.True(t, r.WorkersRunning(context.Background()))
}

func TestPermanentErrorWrapping(t *testing.T) {
	base := errors.New("底层错误")

	assert.Nil(t, Permanent(nil))
	assert.True(t, IsPermanent(Permanent(base)))
	assert.True(t, IsPermanent(fmt.Errorf("包一层: %w", Permanent(base))))
	assert.False(t, IsPermanent(base))
	assert.ErrorIs(t, Permanent(base), base)
}
