package models

import (
	"tripgen/internal/config"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB 全局数据库实例
var DB *gorm.DB

// InitDB 初始化数据库
func InitDB(cfg *config.Config) error {
	var err error

	// 配置GORM
	// TranslateError 开启后，唯一索引冲突会被翻译为 gorm.ErrDuplicatedKey，
	// 生成缓存的去重依赖这个错误来识别并发写入
	DB, err = gorm.Open(sqlite.Open(cfg.Database.Path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent), // 使用静默模式
		TranslateError: true,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return err
	}

	return AutoMigrate()
}

// AutoMigrate 自动迁移数据库表
func AutoMigrate() error {
	return DB.AutoMigrate(
		&Project{},
		&Day{},
		&City{},
		&TravelLeg{},
		&Activity{},
		&CachedCall{},
		&GenerationRecord{},
		&RegenerationBatch{},
		&ModelConfig{},
		&PromptTemplate{},
	)
}

// GetDB 获取数据库实例
func GetDB() *gorm.DB {
	return DB
}
