package batch_runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const (
	progressKeyPrefix = "batch_progress:"
	heartbeatKey      = "batch_runner:heartbeat"
	heartbeatTTL      = 15 * time.Second
	heartbeatInterval = 5 * time.Second
	progressTTL       = 24 * time.Hour
)

// Job 一个待执行的任务
type Job struct {
	ID  string
	Run func(ctx context.Context) error
}

// Callbacks 批次回调
// OnJobDone 在每个任务到达终态（成功或重试耗尽）时回调一次，
// OnBatchDone 在全部任务结束后回调一次
type Callbacks struct {
	OnJobDone   func(jobID string, jobErr error)
	OnBatchDone func(completed, failed int)
}

// Options 执行器配置
type Options struct {
	WorkerCount int
	MaxAttempts int
	JobTimeout  time.Duration
	BaseBackoff time.Duration
}

// Runner 并发批次执行器
// 负责并行执行一个批次内的全部任务，按任务回调终态，支持外部取消，
// 并把实时进度镜像到Redis（没有Redis时自动降级为仅进程内计数）
type Runner struct {
	opts        Options
	redisClient *redis.Client
	logger      *logrus.Logger

	sem chan struct{}

	batchesLock sync.RWMutex
	batches     map[string]*batchState

	started atomic.Bool
}

type batchState struct {
	ref       string
	total     int
	completed int64
	failed    int64
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewRunner 创建批次执行器
func NewRunner(opts Options, redisClient *redis.Client, logger *logrus.Logger) *Runner {
	if opts.WorkerCount <= 0 {
		opts.WorkerCount = 8
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 120 * time.Second
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = 500 * time.Millisecond
	}

	return &Runner{
		opts:        opts,
		redisClient: redisClient,
		logger:      logger,
		sem:         make(chan struct{}, opts.WorkerCount),
		batches:     make(map[string]*batchState),
	}
}

// Start 启动执行器的心跳上报
func (r *Runner) Start(ctx context.Context) {
	r.started.Store(true)

	if r.redisClient == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()

		r.beat(ctx)
		for {
			select {
			case <-ticker.C:
				r.beat(ctx)
			case <-ctx.Done():
				r.started.Store(false)
				return
			}
		}
	}()
}

func (r *Runner) beat(ctx context.Context) {
	if err := r.redisClient.Set(ctx, heartbeatKey, time.Now().Unix(), heartbeatTTL).Err(); err != nil {
		r.logger.WithError(err).Warn("[BatchRunner] 心跳上报失败")
	}
}

// Submit 提交一个批次并发执行
// 返回后任务在后台运行，通过回调上报进度
func (r *Runner) Submit(ref string, jobs []Job, cb Callbacks) error {
	r.batchesLock.Lock()
	if _, exists := r.batches[ref]; exists {
		r.batchesLock.Unlock()
		return fmt.Errorf("批次已存在: %s", ref)
	}

	ctx, cancel := context.WithCancel(context.Background())
	state := &batchState{
		ref:    ref,
		total:  len(jobs),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	r.batches[ref] = state
	r.batchesLock.Unlock()

	r.initProgress(ref, len(jobs))

	go r.runBatch(ctx, state, jobs, cb)
	return nil
}

// runBatch 执行一个批次的全部任务
func (r *Runner) runBatch(ctx context.Context, state *batchState, jobs []Job, cb Callbacks) {
	var wg sync.WaitGroup

	for _, job := range jobs {
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()

			// 占用全局工作槽
			select {
			case r.sem <- struct{}{}:
				defer func() { <-r.sem }()
			case <-ctx.Done():
				r.finishJob(state, job.ID, ctx.Err(), cb)
				return
			}

			err := r.runJobWithRetry(ctx, job)
			r.finishJob(state, job.ID, err, cb)
		}(job)
	}

	wg.Wait()

	completed := int(atomic.LoadInt64(&state.completed))
	failed := int(atomic.LoadInt64(&state.failed))

	r.logger.WithFields(logrus.Fields{
		"batch_ref": state.ref,
		"completed": completed,
		"failed":    failed,
	}).Info("[BatchRunner] 批次执行结束")

	if cb.OnBatchDone != nil {
		cb.OnBatchDone(completed, failed)
	}

	close(state.done)

	r.batchesLock.Lock()
	delete(r.batches, state.ref)
	r.batchesLock.Unlock()
}

// runJobWithRetry 按重试策略执行单个任务
// 永久性错误立即失败，瞬时错误按指数退避重试
func (r *Runner) runJobWithRetry(ctx context.Context, job Job) error {
	backoff := r.opts.BaseBackoff
	var lastErr error

	for attempt := 1; attempt <= r.opts.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		attemptCtx, cancel := context.WithTimeout(ctx, r.opts.JobTimeout)
		err := job.Run(attemptCtx)
		cancel()

		if err == nil {
			return nil
		}
		lastErr = err

		if IsPermanent(err) {
			r.logger.WithFields(logrus.Fields{
				"job_id":  job.ID,
				"attempt": attempt,
			}).WithError(err).Warn("[BatchRunner] 任务遇到永久性错误，不再重试")
			return err
		}

		r.logger.WithFields(logrus.Fields{
			"job_id":  job.ID,
			"attempt": attempt,
		}).WithError(err).Warn("[BatchRunner] 任务执行失败")

		if attempt == r.opts.MaxAttempts {
			break
		}

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("重试%d次后仍然失败: %w", r.opts.MaxAttempts, lastErr)
}

// finishJob 记录单个任务的终态并回调
func (r *Runner) finishJob(state *batchState, jobID string, jobErr error, cb Callbacks) {
	if jobErr == nil {
		atomic.AddInt64(&state.completed, 1)
	} else {
		atomic.AddInt64(&state.failed, 1)
	}

	r.updateProgress(state)

	if cb.OnJobDone != nil {
		cb.OnJobDone(jobID, jobErr)
	}
}

// Cancel 取消一个批次
// 取消是协作式的：正在执行的任务会在下一个检查点退出
func (r *Runner) Cancel(ref string) bool {
	r.batchesLock.RLock()
	state, exists := r.batches[ref]
	r.batchesLock.RUnlock()

	if !exists {
		return false
	}

	state.cancel()
	r.logger.WithField("batch_ref", ref).Info("[BatchRunner] 批次已取消")
	return true
}

// Progress 获取批次的实时进度
func (r *Runner) Progress(ref string) (completed, failed, total int, ok bool) {
	r.batchesLock.RLock()
	state, exists := r.batches[ref]
	r.batchesLock.RUnlock()

	if !exists {
		return 0, 0, 0, false
	}

	return int(atomic.LoadInt64(&state.completed)), int(atomic.LoadInt64(&state.failed)), state.total, true
}

// Wait 等待批次结束（用于测试和优雅停机）
func (r *Runner) Wait(ref string, timeout time.Duration) bool {
	r.batchesLock.RLock()
	state, exists := r.batches[ref]
	r.batchesLock.RUnlock()

	if !exists {
		return true
	}

	select {
	case <-state.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// WorkersRunning 探测执行器当前是否存活
// 有Redis时以心跳key为准，探测失败一律视为未运行
func (r *Runner) WorkersRunning(ctx context.Context) bool {
	if r.redisClient == nil {
		return r.started.Load()
	}

	_, err := r.redisClient.Get(ctx, heartbeatKey).Result()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		r.logger.WithError(err).Warn("[BatchRunner] 心跳探测失败")
		return false
	}
	return true
}

// initProgress 初始化Redis中的进度数据
func (r *Runner) initProgress(ref string, total int) {
	if r.redisClient == nil {
		return
	}

	ctx := context.Background()
	redisKey := progressKeyPrefix + ref
	pipe := r.redisClient.Pipeline()
	pipe.HSet(ctx, redisKey, "total", total)
	pipe.HSet(ctx, redisKey, "completed", 0)
	pipe.HSet(ctx, redisKey, "failed", 0)
	pipe.Expire(ctx, redisKey, progressTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.WithError(err).Warn("[BatchRunner] 初始化Redis进度失败")
	}
}

// updateProgress 把实时进度镜像到Redis
func (r *Runner) updateProgress(state *batchState) {
	if r.redisClient == nil {
		return
	}

	ctx := context.Background()
	redisKey := progressKeyPrefix + state.ref
	pipe := r.redisClient.Pipeline()
	pipe.HSet(ctx, redisKey, "completed", atomic.LoadInt64(&state.completed))
	pipe.HSet(ctx, redisKey, "failed", atomic.LoadInt64(&state.failed))
	pipe.Expire(ctx, redisKey, progressTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.WithError(err).Warn("[BatchRunner] 更新Redis进度失败")
	}
}

// permanentError 永久性错误标记，执行器遇到后不再重试
type permanentError struct {
	err error
}

func (e *permanentError) Error() string {
	return e.err.Error()
}

func (e *permanentError) Unwrap() error {
	return e.err
}

// Permanent 把错误标记为永久性错误
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent 判断错误是否为永久性错误
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}
