package repository

import (
	"errors"

	"tripgen/internal/models"

	"gorm.io/gorm"
)

// PromptTemplateRepository 提示词模板数据访问层
type PromptTemplateRepository struct {
	db *gorm.DB
}

// NewPromptTemplateRepository 创建提示词模板Repository
func NewPromptTemplateRepository(db *gorm.DB) *PromptTemplateRepository {
	return &PromptTemplateRepository{db: db}
}

// GetLatestBySlug 获取某个slug的最新版本，不存在返回nil
func (r *PromptTemplateRepository) GetLatestBySlug(slug string) (*models.PromptTemplate, error) {
	var tmpl models.PromptTemplate
	err := r.db.
		Where("slug = ?", slug).
		Order("version DESC").
		First(&tmpl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// CreateVersion 以最新版本号加一创建新版本
func (r *PromptTemplateRepository) CreateVersion(slug string, content string) (*models.PromptTemplate, error) {
	var created *models.PromptTemplate

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var latest models.PromptTemplate
		version := 1
		err := tx.Where("slug = ?", slug).Order("version DESC").First(&latest).Error
		if err == nil {
			version = latest.Version + 1
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		tmpl := &models.PromptTemplate{
			Slug:    slug,
			Version: version,
			Content: content,
		}
		if err := tx.Create(tmpl).Error; err != nil {
			return err
		}
		created = tmpl
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
