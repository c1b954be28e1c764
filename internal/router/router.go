package router

import (
	"tripgen/internal/config"
	"tripgen/internal/handler"
	"tripgen/internal/middleware"
	"tripgen/internal/repository"
	"tripgen/internal/service"
	"tripgen/pkg/batch_runner"
	"tripgen/pkg/llm_caller"
	"tripgen/pkg/redis_limiter"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SetupRouter 设置路由
func SetupRouter(
	cfg *config.Config,
	logger *logrus.Logger,
	db *gorm.DB,
	redisClient *redis.Client,
	runner *batch_runner.Runner,
) *gin.Engine {
	// 设置Gin模式
	if cfg.Server.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// 全局中间件
	r.Use(middleware.LoggerMiddleware(logger))
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(cfg))

	// 健康检查
	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "行程内容生成服务 API",
			"version": "1.0.0",
		})
	})

	// 初始化Repository
	projectRepo := repository.NewProjectRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	cachedCallRepo := repository.NewCachedCallRepository(db)
	modelConfigRepo := repository.NewModelConfigRepository(db)
	promptRepo := repository.NewPromptTemplateRepository(db)

	// 初始化Service
	llmClient := llm_caller.NewLLMCaller(cfg.LLM.DefaultAPIURL, cfg.LLM.DefaultAPIKey, cfg.LLM.DefaultModel, cfg.LLM.GetCallTimeout())
	var limiter llm_caller.Limiter
	if redisClient != nil {
		limiter = redis_limiter.NewRedisLimiter(redisClient, cfg.Redis.DefaultMaxConcurrency, "llm_concurrency:", cfg.Regeneration.GetJobTimeout())
	} else {
		limiter = llm_caller.NewConcurrencyLimiter(cfg.Redis.DefaultMaxConcurrency)
	}

	cache := service.NewGenerationCache(cachedCallRepo)
	genService := service.NewGenerationService(cache, projectRepo, promptRepo, modelConfigRepo, llmClient, limiter, cfg, logger)
	expander := service.NewExpander(projectRepo)
	batchManager := service.NewBatchManager(batchRepo, projectRepo, promptRepo, modelConfigRepo, expander, genService, runner, cfg, logger)
	statusView := service.NewStatusView(batchRepo, runner, cfg)

	// 初始化Handler
	projectHandler := handler.NewProjectHandler(projectRepo)
	regenHandler := handler.NewRegenHandler(batchManager, statusView)

	// API路由组
	api := r.Group("/api")
	{
		projects := api.Group("/projects/:project_id")
		{
			projects.GET("", projectHandler.GetProject)
			projects.GET("/regeneration-status", regenHandler.GetRegenerationStatus)

			projects.POST("/regenerate", regenHandler.RegenerateProject)
			projects.POST("/regenerate/single", regenHandler.RegenerateSingle)
			projects.POST("/regenerate/column", regenHandler.RegenerateColumn)
			projects.POST("/days/:day_number/regenerate", regenHandler.RegenerateDay)
			projects.POST("/days/:day_number/generate", regenHandler.GenerateDay)
		}
	}

	return r
}
