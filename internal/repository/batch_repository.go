package repository

import (
	"time"

	"tripgen/internal/models"

	"gorm.io/gorm"
)

// 非终态批次状态集合，所有计数和状态更新都必须带上这个守卫，
// 避免迟到的任务回调把已终止的批次改活
var activeStatuses = []string{models.BatchStatusPending, models.BatchStatusProcessing}

// BatchRepository 重新生成批次数据访问层
type BatchRepository struct {
	db *gorm.DB
}

// NewBatchRepository 创建批次Repository
func NewBatchRepository(db *gorm.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// Create 创建批次
func (r *BatchRepository) Create(batch *models.RegenerationBatch) error {
	return r.db.Create(batch).Error
}

// GetByID 根据ID获取批次
func (r *BatchRepository) GetByID(id string) (*models.RegenerationBatch, error) {
	var batch models.RegenerationBatch
	err := r.db.Where("id = ?", id).First(&batch).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// SetRunnerRef 记录执行器的批次引用
func (r *BatchRepository) SetRunnerRef(id string, ref string) error {
	return r.db.Model(&models.RegenerationBatch{}).
		Where("id = ?", id).
		Update("runner_batch_ref", ref).Error
}

// MarkProcessing 把批次从pending推进到processing
func (r *BatchRepository) MarkProcessing(id string) error {
	return r.db.Model(&models.RegenerationBatch{}).
		Where("id = ? AND status = ?", id, models.BatchStatusPending).
		Update("status", models.BatchStatusProcessing).Error
}

// IncrementCompleted 成功任务数加一（数据库内原子自增）
func (r *BatchRepository) IncrementCompleted(id string) error {
	return r.db.Model(&models.RegenerationBatch{}).
		Where("id = ? AND status IN ?", id, activeStatuses).
		Update("completed_jobs", gorm.Expr("completed_jobs + 1")).Error
}

// IncrementFailed 失败任务数加一（数据库内原子自增）
func (r *BatchRepository) IncrementFailed(id string) error {
	return r.db.Model(&models.RegenerationBatch{}).
		Where("id = ? AND status IN ?", id, activeStatuses).
		Update("failed_jobs", gorm.Expr("failed_jobs + 1")).Error
}

// Finalize 把批次推进到终态并记录完成时间
// 只允许从非终态推进，迟到的回调对已终止批次是空操作
func (r *BatchRepository) Finalize(id string, status string) error {
	now := time.Now()
	return r.db.Model(&models.RegenerationBatch{}).
		Where("id = ? AND status IN ?", id, activeStatuses).
		Updates(map[string]interface{}{
			"status":       status,
			"completed_at": now,
		}).Error
}

// MarkTimedOut 把批次强制标记为超时
func (r *BatchRepository) MarkTimedOut(id string) error {
	return r.Finalize(id, models.BatchStatusTimedOut)
}

// GetActiveByProject 获取项目下的全部进行中批次
func (r *BatchRepository) GetActiveByProject(projectID uint) ([]models.RegenerationBatch, error) {
	var batches []models.RegenerationBatch
	err := r.db.
		Where("project_id = ? AND status IN ?", projectID, activeStatuses).
		Order("started_at ASC").
		Find(&batches).Error
	return batches, err
}

// GetRecentlyCompleted 获取项目下最近进入终态的批次
func (r *BatchRepository) GetRecentlyCompleted(projectID uint, window time.Duration) ([]models.RegenerationBatch, error) {
	cutoff := time.Now().Add(-window)
	var batches []models.RegenerationBatch
	err := r.db.
		Where("project_id = ? AND status IN ? AND completed_at >= ?",
			projectID,
			[]string{models.BatchStatusCompleted, models.BatchStatusFailed, models.BatchStatusTimedOut},
			cutoff).
		Order("completed_at DESC").
		Find(&batches).Error
	return batches, err
}

// GetStale 获取开始时间早于截止时间且仍未终止的批次
func (r *BatchRepository) GetStale(cutoff time.Time) ([]models.RegenerationBatch, error) {
	var batches []models.RegenerationBatch
	err := r.db.
		Where("status IN ? AND started_at < ?", activeStatuses, cutoff).
		Find(&batches).Error
	return batches, err
}
