package dto

// GenerationRequest 一次模型调用的完整输入，内容指纹只由这四个字段决定
type GenerationRequest struct {
	ProviderID   string            `json:"provider_id"`
	SystemPrompt string            `json:"system_prompt"`
	TaskPrompt   string            `json:"task_prompt"`
	Args         map[string]string `json:"args"`
}

// WorkItem 批次展开后的一个待执行任务
type WorkItem struct {
	TargetType    string `json:"target_type"`
	TargetID      uint   `json:"target_id"`
	GeneratorType string `json:"generator_type"`
}

// RegenerateSingleRequest 单目标重新生成请求
type RegenerateSingleRequest struct {
	Type string `json:"type" binding:"required,oneof=travel activity"`
	ID   uint   `json:"id" binding:"required"`
}

// RegenerateColumnRequest 按列重新生成请求
type RegenerateColumnRequest struct {
	Type string `json:"type" binding:"required,oneof=travel sightseeing wrestling eating"`
}

// GenerateRequest 生成请求（可携带新的提示词内容）
type GenerateRequest struct {
	Type                 string `json:"type" binding:"required,oneof=travel sightseeing wrestling eating"`
	ModelID              *uint  `json:"model_id"`
	TaskPromptSlug       string `json:"task_prompt_slug" binding:"required"`
	TaskPromptContent    string `json:"task_prompt_content"`
	SupplementaryContent string `json:"supplementary_content"`
}

// BatchResponse 批次创建响应
type BatchResponse struct {
	BatchID   string `json:"batch_id"`
	Status    string `json:"status"`
	TotalJobs int    `json:"total_jobs"`
}

// BatchProgress 批次进度
type BatchProgress struct {
	BatchID       string  `json:"batch_id"`
	Scope         string  `json:"scope"`
	GeneratorType *string `json:"generator_type,omitempty"`
	Status        string  `json:"status"`
	TotalJobs     int     `json:"total_jobs"`
	CompletedJobs int     `json:"completed_jobs"`
	FailedJobs    int     `json:"failed_jobs"`
	StartedAt     string  `json:"started_at"`
	CompletedAt   string  `json:"completed_at,omitempty"`
}

// RegenerationStatusResponse 项目重新生成状态响应
type RegenerationStatusResponse struct {
	IsRegenerating    bool            `json:"is_regenerating"`
	WorkersRunning    bool            `json:"workers_running"`
	ActiveBatches     []BatchProgress `json:"active_batches"`
	RecentlyCompleted []BatchProgress `json:"recently_completed"`
}
