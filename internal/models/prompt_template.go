package models

import (
	"time"
)

// PromptTemplate 任务提示词模板，按slug多版本保存，只增不改
type PromptTemplate struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Slug      string    `gorm:"size:100;not null;uniqueIndex:idx_prompt_templates_slug_version" json:"slug"`
	Version   int       `gorm:"not null;uniqueIndex:idx_prompt_templates_slug_version" json:"version"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定表名
func (PromptTemplate) TableName() string {
	return "prompt_templates"
}
