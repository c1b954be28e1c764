package main

import (
	"context"
	"log"
	"os"

	"tripgen/internal/config"
	"tripgen/internal/models"
	"tripgen/internal/repository"
	"tripgen/internal/router"
	"tripgen/internal/service"
	"tripgen/pkg/batch_runner"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

func main() {
	// 加载配置（从项目根目录读取）
	cfg, err := config.LoadConfig("./config/config.yaml")
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 初始化日志
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)
	logger.SetLevel(logrus.InfoLevel)

	// 初始化数据库
	if err := models.InitDB(cfg); err != nil {
		log.Fatalf("初始化数据库失败: %v", err)
	}
	db := models.GetDB()

	// 初始化Redis，连不上时降级为纯内存模式
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddress(),
		DB:       cfg.Redis.DB,
		Password: cfg.Redis.Password,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warnf("Redis连接失败，进度镜像和分布式限流已禁用: %v", err)
		redisClient = nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 初始化批次执行器
	runner := batch_runner.NewRunner(batch_runner.Options{
		WorkerCount: cfg.Regeneration.WorkerCount,
		MaxAttempts: cfg.Regeneration.MaxAttempts,
		JobTimeout:  cfg.Regeneration.GetJobTimeout(),
	}, redisClient, logger)
	runner.Start(ctx)

	// 启动批次清理器
	batchRepo := repository.NewBatchRepository(db)
	reaper := service.NewReaper(batchRepo, runner, cfg, logger)
	reaper.Start(ctx)

	// 设置路由
	r := router.SetupRouter(cfg, logger, db, redisClient, runner)

	// 启动服务器
	addr := cfg.Server.GetAddress()
	logger.Infof("服务器启动在 %s", addr)

	if err := r.Run(addr); err != nil {
		log.Fatalf("启动服务器失败: %v", err)
	}
}
