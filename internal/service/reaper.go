package service

import (
	"context"
	"time"

	"tripgen/internal/config"
	"tripgen/internal/models"
	"tripgen/internal/repository"
	"tripgen/pkg/batch_runner"

	"github.com/sirupsen/logrus"
)

// Reaper 批次清理器
// 周期扫描长时间未结束的批次，标记为timed_out并尽力取消执行器里的残留任务
type Reaper struct {
	batchRepo *repository.BatchRepository
	runner    *batch_runner.Runner
	cfg       *config.Config
	logger    *logrus.Logger
}

// NewReaper 创建批次清理器
func NewReaper(batchRepo *repository.BatchRepository, runner *batch_runner.Runner, cfg *config.Config, logger *logrus.Logger) *Reaper {
	return &Reaper{
		batchRepo: batchRepo,
		runner:    runner,
		cfg:       cfg,
		logger:    logger,
	}
}

// Start 启动周期扫描，ctx取消后退出
func (r *Reaper) Start(ctx context.Context) {
	interval := r.cfg.Regeneration.GetReapInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.ReapOnce(time.Now())
			}
		}
	}()
	r.logger.WithField("interval", interval.String()).Info("[Reaper] 批次清理器已启动")
}

// ReapOnce 执行一轮扫描
// 超过阈值仍未结束的批次视为卡死，通常意味着进程曾经重启丢了在途任务
func (r *Reaper) ReapOnce(now time.Time) {
	cutoff := now.Add(-r.cfg.Regeneration.GetBatchTimeout())
	stale, err := r.batchRepo.GetStale(cutoff)
	if err != nil {
		r.logger.WithError(err).Error("[Reaper] 查询卡死批次失败")
		return
	}

	for i := range stale {
		batch := &stale[i]

		if batch.RunnerBatchRef != "" {
			// 执行器里可能本来就没有这个批次了，取消不到也照常标记
			if !r.runner.Cancel(batch.RunnerBatchRef) {
				r.logger.WithField("batch_id", batch.ID).Warn("[Reaper] 执行器中未找到待取消的批次")
			}
		}

		if err := r.batchRepo.MarkTimedOut(batch.ID); err != nil {
			r.logger.WithError(err).WithField("batch_id", batch.ID).Error("[Reaper] 标记批次超时失败")
			continue
		}

		r.logger.WithFields(logrus.Fields{
			"batch_id":       batch.ID,
			"project_id":     batch.ProjectID,
			"scope":          batch.Scope,
			"started_at":     batch.StartedAt.Format(time.RFC3339),
			"total_jobs":     batch.TotalJobs,
			"completed_jobs": batch.CompletedJobs,
			"failed_jobs":    batch.FailedJobs,
			"status":         models.BatchStatusTimedOut,
		}).Error("[Reaper] 批次超时，已强制结束")
	}
}
