package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// CachedCall 已完成的模型调用记录，按内容指纹唯一，只增不改
type CachedCall struct {
	ID               uint      `gorm:"primarykey" json:"id"`
	Fingerprint      string    `gorm:"uniqueIndex;size:64;not null" json:"fingerprint"`
	ProviderID       string    `gorm:"size:100;not null" json:"provider_id"`
	SystemPrompt     string    `gorm:"type:text" json:"system_prompt"`
	TaskPrompt       string    `gorm:"type:text" json:"task_prompt"`
	Args             JSONMap   `gorm:"type:text" json:"args"`
	ResponseText     string    `gorm:"type:text" json:"response_text"`
	PromptTokens     int       `gorm:"default:0" json:"prompt_tokens"`
	CompletionTokens int       `gorm:"default:0" json:"completion_tokens"`
	CreatedAt        time.Time `json:"created_at"`
}

// TableName 指定表名
func (CachedCall) TableName() string {
	return "cached_calls"
}

// GenerationRecord 生成目标与模型调用的关联记录
// 同一条调用可以被多个目标共享（例如摔角赛事和跨天复用的城市），
// 所以建模为带生成器类型标签的多对多关联表
type GenerationRecord struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	CachedCallID  uint      `gorm:"not null;index" json:"cached_call_id"`
	TargetType    string    `gorm:"size:20;not null;index:idx_generation_records_target" json:"target_type"`
	TargetID      uint      `gorm:"not null;index:idx_generation_records_target" json:"target_id"`
	GeneratorType string    `gorm:"size:50;not null" json:"generator_type"`
	CreatedAt     time.Time `json:"created_at"`

	// 关联
	CachedCall CachedCall `gorm:"foreignKey:CachedCallID" json:"cached_call,omitempty"`
}

// TableName 指定表名
func (GenerationRecord) TableName() string {
	return "generation_records"
}

// JSONMap 自定义JSON类型
type JSONMap map[string]interface{}

// Scan 实现sql.Scanner接口
func (j *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSONMap)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Value 实现driver.Valuer接口
func (j JSONMap) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return json.Marshal(j)
}
