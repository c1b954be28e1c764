package service

import (
	"errors"
	"fmt"

	"tripgen/internal/dto"
	"tripgen/internal/models"
	"tripgen/internal/repository"

	"gorm.io/gorm"
)

// GenerationCache 模型调用缓存
// 以内容指纹为唯一键记录历史调用。查询只是优化，真正的正确性保证
// 是fingerprint列上的唯一索引：并发写入时数据库只会留下一行
type GenerationCache struct {
	callRepo *repository.CachedCallRepository
}

// NewGenerationCache 创建调用缓存
func NewGenerationCache(callRepo *repository.CachedCallRepository) *GenerationCache {
	return &GenerationCache{callRepo: callRepo}
}

// Lookup 根据指纹查询缓存记录，未命中返回nil
func (gc *GenerationCache) Lookup(fingerprint string) (*models.CachedCall, error) {
	return gc.callRepo.GetByFingerprint(fingerprint)
}

// Store 写入一条调用记录
// 并发写入同一指纹时返回 ErrDuplicateFingerprint，
// 调用方应视为缓存命中并回读已落库的那一行
func (gc *GenerationCache) Store(req *dto.GenerationRequest, responseText string, usage dto.Usage) (*models.CachedCall, error) {
	args := make(models.JSONMap, len(req.Args))
	for k, v := range req.Args {
		args[k] = v
	}

	call := &models.CachedCall{
		Fingerprint:      Fingerprint(req),
		ProviderID:       req.ProviderID,
		SystemPrompt:     req.SystemPrompt,
		TaskPrompt:       req.TaskPrompt,
		Args:             args,
		ResponseText:     responseText,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
	}

	if err := gc.callRepo.Create(call); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateFingerprint
		}
		return nil, fmt.Errorf("写入调用缓存失败: %w", err)
	}

	return call, nil
}

// Associate 记录目标与调用的关联
func (gc *GenerationCache) Associate(call *models.CachedCall, targetType string, targetID uint, generatorType string) error {
	return gc.callRepo.CreateRecord(&models.GenerationRecord{
		CachedCallID:  call.ID,
		TargetType:    targetType,
		TargetID:      targetID,
		GeneratorType: generatorType,
	})
}
