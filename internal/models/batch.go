package models

import (
	"time"
)

// 批次状态
const (
	BatchStatusPending    = "pending"    // 已创建，等待任务回调
	BatchStatusProcessing = "processing" // 任务执行中
	BatchStatusCompleted  = "completed"  // 全部任务成功
	BatchStatusFailed     = "failed"     // 存在失败任务
	BatchStatusTimedOut   = "timed_out"  // 超时被强制终止
)

// 批次范围
const (
	BatchScopeSingle  = "single"
	BatchScopeDay     = "day"
	BatchScopeColumn  = "column"
	BatchScopeProject = "project"
)

// RegenerationBatch 重新生成批次，记录一次展开请求产生的全部任务的聚合进度
type RegenerationBatch struct {
	ID             string     `gorm:"primarykey;size:36" json:"id"`
	ProjectID      uint       `gorm:"not null;index" json:"project_id"`
	Scope          string     `gorm:"size:20;not null" json:"scope"`
	GeneratorType  *string    `gorm:"size:50" json:"generator_type,omitempty"`
	RunnerBatchRef string     `gorm:"size:64" json:"runner_batch_ref,omitempty"`
	TotalJobs      int        `gorm:"not null" json:"total_jobs"`
	CompletedJobs  int        `gorm:"default:0" json:"completed_jobs"`
	FailedJobs     int        `gorm:"default:0" json:"failed_jobs"`
	Status         string     `gorm:"size:20;default:'pending';index" json:"status"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (RegenerationBatch) TableName() string {
	return "regeneration_batches"
}

// IsTerminal 判断批次是否处于终态
func (b *RegenerationBatch) IsTerminal() bool {
	switch b.Status {
	case BatchStatusCompleted, BatchStatusFailed, BatchStatusTimedOut:
		return true
	}
	return false
}
