package config

import (
	"fmt"
	"time"
)

// Config 应用配置结构
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis_service"`
	CORS         CORSConfig         `mapstructure:"cors"`
	LLM          LLMConfig          `mapstructure:"llm_service"`
	Regeneration RegenerationConfig `mapstructure:"regeneration"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	ProductionMode bool   `mapstructure:"production_mode"`
}

// GetAddress 获取服务器地址
func (s *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host                  string `mapstructure:"host"`
	Port                  int    `mapstructure:"port"`
	DB                    int    `mapstructure:"db"`
	Password              string `mapstructure:"password"`
	DefaultMaxConcurrency int    `mapstructure:"default_max_concurrency"`
}

// GetAddress 获取Redis地址
func (r *RedisConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// CORSConfig CORS配置
type CORSConfig struct {
	Origins          []string `mapstructure:"origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	AllowMethods     []string `mapstructure:"allow_methods"`
	AllowHeaders     []string `mapstructure:"allow_headers"`
}

// LLMConfig 大模型服务配置（数据库中没有可用模型配置时的兜底）
type LLMConfig struct {
	DefaultAPIURL      string `mapstructure:"default_api_url"`
	DefaultAPIKey      string `mapstructure:"default_api_key"`
	DefaultModel       string `mapstructure:"default_model"`
	SystemPrompt       string `mapstructure:"system_prompt"`
	CallTimeoutSeconds int    `mapstructure:"call_timeout_seconds"`
}

// GetCallTimeout 获取单次模型调用的超时时间
func (l *LLMConfig) GetCallTimeout() time.Duration {
	return time.Duration(l.CallTimeoutSeconds) * time.Second
}

// RegenerationConfig 重新生成任务配置
type RegenerationConfig struct {
	WorkerCount         int `mapstructure:"worker_count"`
	MaxAttempts         int `mapstructure:"max_attempts"`
	JobTimeoutSeconds   int `mapstructure:"job_timeout_seconds"`
	BatchTimeoutMinutes int `mapstructure:"batch_timeout_minutes"`
	ReapIntervalSeconds int `mapstructure:"reap_interval_seconds"`
	RecentWindowSeconds int `mapstructure:"recent_window_seconds"`
}

// GetJobTimeout 获取单次任务尝试的超时时间
func (r *RegenerationConfig) GetJobTimeout() time.Duration {
	return time.Duration(r.JobTimeoutSeconds) * time.Second
}

// GetBatchTimeout 获取批次的最长存活时间
func (r *RegenerationConfig) GetBatchTimeout() time.Duration {
	return time.Duration(r.BatchTimeoutMinutes) * time.Minute
}

// GetReapInterval 获取超时批次清理的执行间隔
func (r *RegenerationConfig) GetReapInterval() time.Duration {
	return time.Duration(r.ReapIntervalSeconds) * time.Second
}

// GetRecentWindow 获取"最近完成"批次的展示窗口
func (r *RegenerationConfig) GetRecentWindow() time.Duration {
	return time.Duration(r.RecentWindowSeconds) * time.Second
}
