package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tripgen/internal/config"
	"tripgen/internal/dto"
	"tripgen/internal/models"
	"tripgen/internal/repository"
	"tripgen/pkg/batch_runner"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// BatchManager 批次调度器
// 负责展开请求、落批次记录、把任务提交给执行器，并通过回调维护批次计数和终态
type BatchManager struct {
	batchRepo   *repository.BatchRepository
	projectRepo *repository.ProjectRepository
	promptRepo  *repository.PromptTemplateRepository
	modelRepo   *repository.ModelConfigRepository
	expander    *Expander
	genService  *GenerationService
	runner      *batch_runner.Runner
	cfg         *config.Config
	logger      *logrus.Logger
}

// NewBatchManager 创建批次调度器
func NewBatchManager(
	batchRepo *repository.BatchRepository,
	projectRepo *repository.ProjectRepository,
	promptRepo *repository.PromptTemplateRepository,
	modelRepo *repository.ModelConfigRepository,
	expander *Expander,
	genService *GenerationService,
	runner *batch_runner.Runner,
	cfg *config.Config,
	logger *logrus.Logger,
) *BatchManager {
	return &BatchManager{
		batchRepo:   batchRepo,
		projectRepo: projectRepo,
		promptRepo:  promptRepo,
		modelRepo:   modelRepo,
		expander:    expander,
		genService:  genService,
		runner:      runner,
		cfg:         cfg,
		logger:      logger,
	}
}

// GetProject 获取项目，不存在返回ErrTargetNotFound
func (m *BatchManager) GetProject(projectID uint) (*models.Project, error) {
	project, err := m.projectRepo.GetByID(projectID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: project %d", ErrTargetNotFound, projectID)
	}
	if err != nil {
		return nil, err
	}
	return project, nil
}

// RegenerateSingle 重新生成单个目标
func (m *BatchManager) RegenerateSingle(projectID uint, targetType string, targetID uint) (*dto.BatchResponse, error) {
	project, err := m.GetProject(projectID)
	if err != nil {
		return nil, err
	}

	items, err := m.expander.ExpandSingle(project, targetType, targetID)
	if err != nil {
		return nil, err
	}

	var label *string
	if len(items) > 0 {
		label = &items[0].GeneratorType
	}
	return m.submitBatch(project, models.BatchScopeSingle, label, items, nil)
}

// RegenerateDay 重新生成一整天
func (m *BatchManager) RegenerateDay(projectID uint, dayNumber int) (*dto.BatchResponse, error) {
	project, err := m.GetProject(projectID)
	if err != nil {
		return nil, err
	}

	items, err := m.expander.ExpandDay(project, dayNumber)
	if err != nil {
		return nil, err
	}
	return m.submitBatch(project, models.BatchScopeDay, nil, items, nil)
}

// RegenerateColumn 按列重新生成
func (m *BatchManager) RegenerateColumn(projectID uint, column string) (*dto.BatchResponse, error) {
	project, err := m.GetProject(projectID)
	if err != nil {
		return nil, err
	}

	items, err := m.expander.ExpandColumn(project, column)
	if err != nil {
		return nil, err
	}
	return m.submitBatch(project, models.BatchScopeColumn, &column, items, nil)
}

// RegenerateProject 重新生成整个项目
func (m *BatchManager) RegenerateProject(projectID uint) (*dto.BatchResponse, error) {
	project, err := m.GetProject(projectID)
	if err != nil {
		return nil, err
	}

	items, err := m.expander.ExpandProject(project)
	if err != nil {
		return nil, err
	}
	return m.submitBatch(project, models.BatchScopeProject, nil, items, nil)
}

// GenerateDay 对某天的指定槽位发起生成，可携带新的提示词内容和指定模型
func (m *BatchManager) GenerateDay(projectID uint, dayNumber int, req *dto.GenerateRequest) (*dto.BatchResponse, error) {
	project, err := m.GetProject(projectID)
	if err != nil {
		return nil, err
	}

	// 指定了模型时先验证模型可用
	if req.ModelID != nil {
		if _, err := m.modelRepo.GetByIDAndActive(*req.ModelID); err != nil {
			return nil, fmt.Errorf("%w: model %d", ErrTargetNotFound, *req.ModelID)
		}
	}

	day, err := m.projectRepo.GetDay(project.ID, project.CurrentVersion, dayNumber)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: day %d", ErrTargetNotFound, dayNumber)
	}
	if err != nil {
		return nil, err
	}

	// 带了提示词内容时先落一个新版本，再入队
	if req.TaskPromptContent != "" {
		if _, err := m.promptRepo.CreateVersion(req.TaskPromptSlug, req.TaskPromptContent); err != nil {
			return nil, fmt.Errorf("创建提示词版本失败: %w", err)
		}
	}

	items, err := m.daySlotItems(day, req.Type)
	if err != nil {
		return nil, err
	}

	opts := &ExecuteOptions{
		ModelID:              req.ModelID,
		PromptSlug:           req.TaskPromptSlug,
		SupplementaryContent: req.SupplementaryContent,
	}

	var label *string
	if len(items) > 0 {
		label = &items[0].GeneratorType
	}
	return m.submitBatch(project, models.BatchScopeSingle, label, items, opts)
}

// daySlotItems 取某天的指定槽位
func (m *BatchManager) daySlotItems(day *models.Day, slotType string) ([]dto.WorkItem, error) {
	if slotType == models.TargetTypeTravel {
		if day.TravelLeg == nil {
			return nil, nil
		}
		item, err := m.expander.travelItem(day.TravelLeg)
		if err != nil {
			return nil, err
		}
		return []dto.WorkItem{item}, nil
	}

	for i := range day.Activities {
		if day.Activities[i].Kind != slotType {
			continue
		}
		item, err := m.expander.activityItem(&day.Activities[i])
		if err != nil {
			return nil, err
		}
		return []dto.WorkItem{item}, nil
	}
	return nil, nil
}

// submitBatch 落批次记录并提交执行
// 总任务数在创建时固定；空展开直接创建为completed的空批次
func (m *BatchManager) submitBatch(project *models.Project, scope string, label *string, items []dto.WorkItem, opts *ExecuteOptions) (*dto.BatchResponse, error) {
	now := time.Now()
	batch := &models.RegenerationBatch{
		ID:            uuid.NewString(),
		ProjectID:     project.ID,
		Scope:         scope,
		GeneratorType: label,
		TotalJobs:     len(items),
		Status:        models.BatchStatusPending,
		StartedAt:     now,
	}

	if len(items) == 0 {
		batch.Status = models.BatchStatusCompleted
		batch.CompletedAt = &now
		if err := m.batchRepo.Create(batch); err != nil {
			return nil, fmt.Errorf("创建批次记录失败: %w", err)
		}
		return &dto.BatchResponse{BatchID: batch.ID, Status: batch.Status, TotalJobs: 0}, nil
	}

	if err := m.batchRepo.Create(batch); err != nil {
		return nil, fmt.Errorf("创建批次记录失败: %w", err)
	}

	jobs := make([]batch_runner.Job, 0, len(items))
	for i, item := range items {
		jobs = append(jobs, batch_runner.Job{
			ID:  fmt.Sprintf("%s/%d", batch.ID, i+1),
			Run: m.jobFunc(item, opts),
		})
	}

	callbacks := batch_runner.Callbacks{
		OnJobDone: func(jobID string, jobErr error) {
			m.onJobDone(batch.ID, jobID, jobErr)
		},
		OnBatchDone: func(completed, failed int) {
			m.onBatchDone(batch.ID, completed, failed)
		},
	}

	if err := m.runner.Submit(batch.ID, jobs, callbacks); err != nil {
		return nil, fmt.Errorf("提交批次失败: %w", err)
	}

	// 执行器的批次引用就是批次ID，记录下来供清理器取消时使用
	if err := m.batchRepo.SetRunnerRef(batch.ID, batch.ID); err != nil {
		m.logger.WithError(err).Warn("[BatchManager] 记录执行器批次引用失败")
	}

	// 提交即进入processing，状态只会向前推进
	if err := m.batchRepo.MarkProcessing(batch.ID); err != nil {
		m.logger.WithError(err).Warn("[BatchManager] 推进批次状态失败")
	}

	m.logger.WithFields(logrus.Fields{
		"batch_id":   batch.ID,
		"project_id": project.ID,
		"scope":      scope,
		"total_jobs": len(items),
	}).Info("[BatchManager] 批次已提交")

	return &dto.BatchResponse{BatchID: batch.ID, Status: models.BatchStatusProcessing, TotalJobs: len(items)}, nil
}

// jobFunc 构建单个任务的执行函数
// 目标在执行时重新解析，保证重试拿到的是最新数据；
// 重新生成总是绕过缓存，因为用户的意图就是要一次全新的调用
func (m *BatchManager) jobFunc(item dto.WorkItem, opts *ExecuteOptions) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		target, err := m.genService.ResolveTarget(item.TargetType, item.TargetID)
		if err != nil {
			if errors.Is(err, ErrTargetNotFound) {
				return batch_runner.Permanent(err)
			}
			return err
		}

		err = m.genService.Execute(ctx, target, item.GeneratorType, true, opts)
		if err != nil {
			if errors.Is(err, ErrUnsupportedGenerator) || errors.Is(err, ErrPromptNotFound) {
				return batch_runner.Permanent(err)
			}
			return err
		}
		return nil
	}
}

// onJobDone 单个任务终态回调，数据库内原子更新计数
func (m *BatchManager) onJobDone(batchID string, jobID string, jobErr error) {
	if jobErr == nil {
		if err := m.batchRepo.IncrementCompleted(batchID); err != nil {
			m.logger.WithError(err).Error("[BatchManager] 更新成功计数失败")
		}
		return
	}

	m.logger.WithFields(logrus.Fields{
		"batch_id": batchID,
		"job_id":   jobID,
	}).WithError(jobErr).Warn("[BatchManager] 任务最终失败")

	if err := m.batchRepo.IncrementFailed(batchID); err != nil {
		m.logger.WithError(err).Error("[BatchManager] 更新失败计数失败")
	}
}

// onBatchDone 批次结束回调，推进到终态
// 已经被清理器标记为超时的批次不会被改写
func (m *BatchManager) onBatchDone(batchID string, completed, failed int) {
	status := models.BatchStatusCompleted
	if failed > 0 {
		status = models.BatchStatusFailed
	}

	if err := m.batchRepo.Finalize(batchID, status); err != nil {
		m.logger.WithError(err).Error("[BatchManager] 推进批次终态失败")
		return
	}

	m.logger.WithFields(logrus.Fields{
		"batch_id":  batchID,
		"status":    status,
		"completed": completed,
		"failed":    failed,
	}).Info("[BatchManager] 批次已结束")
}
