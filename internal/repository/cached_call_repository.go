package repository

import (
	"errors"

	"tripgen/internal/models"

	"gorm.io/gorm"
)

// CachedCallRepository 模型调用缓存数据访问层
type CachedCallRepository struct {
	db *gorm.DB
}

// NewCachedCallRepository 创建调用缓存Repository
func NewCachedCallRepository(db *gorm.DB) *CachedCallRepository {
	return &CachedCallRepository{db: db}
}

// GetByFingerprint 根据内容指纹查询缓存记录，未命中返回nil
func (r *CachedCallRepository) GetByFingerprint(fingerprint string) (*models.CachedCall, error) {
	var call models.CachedCall
	err := r.db.Where("fingerprint = ?", fingerprint).First(&call).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &call, nil
}

// Create 插入缓存记录
// fingerprint上有唯一索引，并发写入冲突时返回 gorm.ErrDuplicatedKey
func (r *CachedCallRepository) Create(call *models.CachedCall) error {
	return r.db.Create(call).Error
}

// CreateRecord 插入目标与调用的关联记录
func (r *CachedCallRepository) CreateRecord(record *models.GenerationRecord) error {
	return r.db.Create(record).Error
}

// GetRecordsByTarget 获取某个目标的全部关联记录
func (r *CachedCallRepository) GetRecordsByTarget(targetType string, targetID uint) ([]models.GenerationRecord, error) {
	var records []models.GenerationRecord
	err := r.db.
		Preload("CachedCall").
		Where("target_type = ? AND target_id = ?", targetType, targetID).
		Order("created_at DESC").
		Find(&records).Error
	return records, err
}

// CountByFingerprint 统计某个指纹的缓存行数
func (r *CachedCallRepository) CountByFingerprint(fingerprint string) (int64, error) {
	var count int64
	err := r.db.Model(&models.CachedCall{}).Where("fingerprint = ?", fingerprint).Count(&count).Error
	return count, err
}
