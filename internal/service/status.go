package service

import (
	"context"
	"time"

	"tripgen/internal/config"
	"tripgen/internal/dto"
	"tripgen/internal/models"
	"tripgen/internal/repository"
	"tripgen/pkg/batch_runner"
)

// StatusView 项目重新生成状态的只读视图
// 在途批次的计数优先取执行器内存里的实时值，兜底用数据库里的持久计数
type StatusView struct {
	batchRepo *repository.BatchRepository
	runner    *batch_runner.Runner
	cfg       *config.Config
}

// NewStatusView 创建状态视图
func NewStatusView(batchRepo *repository.BatchRepository, runner *batch_runner.Runner, cfg *config.Config) *StatusView {
	return &StatusView{
		batchRepo: batchRepo,
		runner:    runner,
		cfg:       cfg,
	}
}

// GetProjectStatus 汇总某个项目的在途批次和近期结束批次
func (v *StatusView) GetProjectStatus(ctx context.Context, projectID uint) (*dto.RegenerationStatusResponse, error) {
	active, err := v.batchRepo.GetActiveByProject(projectID)
	if err != nil {
		return nil, err
	}

	recent, err := v.batchRepo.GetRecentlyCompleted(projectID, v.cfg.Regeneration.GetRecentWindow())
	if err != nil {
		return nil, err
	}

	resp := &dto.RegenerationStatusResponse{
		IsRegenerating:    len(active) > 0,
		WorkersRunning:    v.runner.WorkersRunning(ctx),
		ActiveBatches:     make([]dto.BatchProgress, 0, len(active)),
		RecentlyCompleted: make([]dto.BatchProgress, 0, len(recent)),
	}

	for i := range active {
		resp.ActiveBatches = append(resp.ActiveBatches, v.toProgress(&active[i], true))
	}
	for i := range recent {
		resp.RecentlyCompleted = append(resp.RecentlyCompleted, v.toProgress(&recent[i], false))
	}
	return resp, nil
}

// toProgress 转换为进度DTO，live为真时尝试用执行器里的实时计数覆盖
func (v *StatusView) toProgress(batch *models.RegenerationBatch, live bool) dto.BatchProgress {
	progress := dto.BatchProgress{
		BatchID:       batch.ID,
		Scope:         batch.Scope,
		GeneratorType: batch.GeneratorType,
		Status:        batch.Status,
		TotalJobs:     batch.TotalJobs,
		CompletedJobs: batch.CompletedJobs,
		FailedJobs:    batch.FailedJobs,
		StartedAt:     batch.StartedAt.Format(time.RFC3339),
	}
	if batch.CompletedAt != nil {
		progress.CompletedAt = batch.CompletedAt.Format(time.RFC3339)
	}

	if live && batch.RunnerBatchRef != "" {
		if completed, failed, total, ok := v.runner.Progress(batch.RunnerBatchRef); ok {
			progress.CompletedJobs = completed
			progress.FailedJobs = failed
			progress.TotalJobs = total
		}
	}
	return progress
}
