package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

var (
	globalConfig *Config
	once         sync.Once
	configPath   string
)

// LoadConfig 加载配置文件
func LoadConfig(configFile string) (*Config, error) {
	var err error
	var cfg *Config

	once.Do(func() {
		cfg, err = loadConfigFromFile(configFile)
		if err == nil {
			globalConfig = cfg
		}
		configPath = configFile
	})

	return globalConfig, err
}

// loadConfigFromFile 从文件加载配置
func loadConfigFromFile(configFile string) (*Config, error) {
	v := viper.New()

	// 设置配置文件路径
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		// 默认查找 config.yaml
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// 读取环境变量
	v.AutomaticEnv()

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 解析配置
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 设置默认值
	setDefaults(&cfg)

	// 验证配置
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	return &cfg, nil
}

// setDefaults 设置默认值
func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 18080
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./database/app.db"
	}
	// Redis Host 必须从配置文件读取；为空时所有Redis相关能力自动降级
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379 // 标准 Redis 端口
	}
	if cfg.Redis.DefaultMaxConcurrency == 0 {
		cfg.Redis.DefaultMaxConcurrency = 16
	}
	if cfg.CORS.AllowMethods == nil {
		cfg.CORS.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if cfg.CORS.AllowHeaders == nil {
		cfg.CORS.AllowHeaders = []string{"*"}
	}
	if cfg.LLM.DefaultModel == "" {
		cfg.LLM.DefaultModel = "/data/models/Qwen3-32B"
	}
	if cfg.LLM.SystemPrompt == "" {
		cfg.LLM.SystemPrompt = "你是一个专业的旅行行程策划助手，为行程表中的交通和活动撰写简洁生动的介绍。"
	}
	if cfg.LLM.CallTimeoutSeconds == 0 {
		cfg.LLM.CallTimeoutSeconds = 30
	}
	if cfg.Regeneration.WorkerCount == 0 {
		cfg.Regeneration.WorkerCount = 8
	}
	if cfg.Regeneration.MaxAttempts == 0 {
		cfg.Regeneration.MaxAttempts = 3
	}
	if cfg.Regeneration.JobTimeoutSeconds == 0 {
		cfg.Regeneration.JobTimeoutSeconds = 120
	}
	if cfg.Regeneration.BatchTimeoutMinutes == 0 {
		cfg.Regeneration.BatchTimeoutMinutes = 30
	}
	if cfg.Regeneration.ReapIntervalSeconds == 0 {
		cfg.Regeneration.ReapIntervalSeconds = 60
	}
	if cfg.Regeneration.RecentWindowSeconds == 0 {
		cfg.Regeneration.RecentWindowSeconds = 20
	}
}

// validateConfig 验证配置
func validateConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("无效的服务器端口: %d", cfg.Server.Port)
	}

	if cfg.Regeneration.MaxAttempts < 1 {
		return fmt.Errorf("无效的最大重试次数: %d", cfg.Regeneration.MaxAttempts)
	}

	// 检查数据库目录是否存在
	dbDir := filepath.Dir(cfg.Database.Path)
	if _, err := os.Stat(dbDir); os.IsNotExist(err) {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return fmt.Errorf("创建数据库目录失败: %w", err)
		}
	}

	return nil
}

// GetConfig 获取全局配置
func GetConfig() *Config {
	return globalConfig
}

// ReloadConfig 重新加载配置
func ReloadConfig() (*Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("未设置配置文件路径")
	}

	return LoadConfig(configPath)
}
