package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tripgen/internal/config"
	"tripgen/internal/dto"
	"tripgen/internal/models"
	"tripgen/internal/repository"
	"tripgen/pkg/batch_runner"
	"tripgen/pkg/llm_caller"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testDBCounter int64

// setupTestDB 每个测试一个独立的内存数据库
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)

	// 内存sqlite用单连接串行化写入
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Project{},
		&models.Day{},
		&models.City{},
		&models.TravelLeg{},
		&models.Activity{},
		&models.CachedCall{},
		&models.GenerationRecord{},
		&models.RegenerationBatch{},
		&models.ModelConfig{},
		&models.PromptTemplate{},
	))
	return db
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testConfig() *config.Config {
	return &config.Config{
		LLM: config.LLMConfig{
			DefaultModel:       "test-model",
			SystemPrompt:       "测试系统提示词",
			CallTimeoutSeconds: 5,
		},
		Regeneration: config.RegenerationConfig{
			WorkerCount:         4,
			MaxAttempts:         2,
			JobTimeoutSeconds:   5,
			BatchTimeoutMinutes: 30,
			ReapIntervalSeconds: 60,
			RecentWindowSeconds: 20,
		},
	}
}

// fakeLLM 可编程的模型客户端替身
// block不为nil时每次调用都会阻塞到通道关闭，用于观察执行中的批次
type fakeLLM struct {
	mu       sync.Mutex
	calls    int
	prompts  []string
	response string
	err      error
	block    chan struct{}
}

func (f *fakeLLM) Call(ctx context.Context, messages []dto.Message, options *llm_caller.CallOptions) (*dto.ModelCallResponse, error) {
	f.mu.Lock()
	f.calls++
	if len(messages) > 0 {
		f.prompts = append(f.prompts, messages[len(messages)-1].Content)
	}
	block := f.block
	text := f.response
	callErr := f.err
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if callErr != nil {
		return nil, callErr
	}
	if text == "" {
		text = "生成的介绍文本"
	}
	return &dto.ModelCallResponse{
		Choices: []dto.Choice{{Message: dto.Message{Role: "assistant", Content: text}}},
		Usage:   dto.Usage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
	}, nil
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeLLM) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

// testEnv 服务层测试的完整装配
type testEnv struct {
	db           *gorm.DB
	cfg          *config.Config
	llm          *fakeLLM
	projectRepo  *repository.ProjectRepository
	batchRepo    *repository.BatchRepository
	callRepo     *repository.CachedCallRepository
	modelRepo    *repository.ModelConfigRepository
	promptRepo   *repository.PromptTemplateRepository
	cache        *GenerationCache
	genService   *GenerationService
	expander     *Expander
	runner       *batch_runner.Runner
	batchManager *BatchManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := setupTestDB(t)
	cfg := testConfig()
	logger := testLogger()
	llm := &fakeLLM{}

	projectRepo := repository.NewProjectRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	callRepo := repository.NewCachedCallRepository(db)
	modelRepo := repository.NewModelConfigRepository(db)
	promptRepo := repository.NewPromptTemplateRepository(db)

	cache := NewGenerationCache(callRepo)
	genService := NewGenerationService(cache, projectRepo, promptRepo, modelRepo, llm, nil, cfg, logger)
	expander := NewExpander(projectRepo)

	runner := batch_runner.NewRunner(batch_runner.Options{
		WorkerCount: cfg.Regeneration.WorkerCount,
		MaxAttempts: cfg.Regeneration.MaxAttempts,
		JobTimeout:  cfg.Regeneration.GetJobTimeout(),
		BaseBackoff: time.Millisecond,
	}, nil, logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	runner.Start(ctx)

	batchManager := NewBatchManager(batchRepo, projectRepo, promptRepo, modelRepo, expander, genService, runner, cfg, logger)

	return &testEnv{
		db:           db,
		cfg:          cfg,
		llm:          llm,
		projectRepo:  projectRepo,
		batchRepo:    batchRepo,
		callRepo:     callRepo,
		modelRepo:    modelRepo,
		promptRepo:   promptRepo,
		cache:        cache,
		genService:   genService,
		expander:     expander,
		runner:       runner,
		batchManager: batchManager,
	}
}

// itinerary 测试行程的各实体ID
type itinerary struct {
	project *models.Project

	tokyo uint
	osaka uint
	seoul uint

	day1 uint
	day2 uint

	leg1 uint // 东京→大阪，国内
	leg2 uint // 大阪→首尔，跨国

	sightseeing uint // 第1天游玩
	wrestling   uint // 第1天摔角
	eating      uint // 第2天餐饮
}

// seedItinerary 造一个两天的行程：
// 第1天 东京→大阪 + 游玩 + 摔角；第2天 大阪→首尔 + 餐饮
func seedItinerary(t *testing.T, db *gorm.DB) *itinerary {
	t.Helper()

	project := &models.Project{Name: "关西摔角之旅", CurrentVersion: 1}
	require.NoError(t, db.Create(project).Error)

	tokyo := &models.City{Name: "东京", Country: "日本"}
	osaka := &models.City{Name: "大阪", Country: "日本"}
	seoul := &models.City{Name: "首尔", Country: "韩国"}
	require.NoError(t, db.Create(tokyo).Error)
	require.NoError(t, db.Create(osaka).Error)
	require.NoError(t, db.Create(seoul).Error)

	day1 := &models.Day{ProjectID: project.ID, Version: 1, DayNumber: 1}
	day2 := &models.Day{ProjectID: project.ID, Version: 1, DayNumber: 2}
	require.NoError(t, db.Create(day1).Error)
	require.NoError(t, db.Create(day2).Error)

	leg1 := &models.TravelLeg{DayID: day1.ID, FromCityID: tokyo.ID, ToCityID: osaka.ID}
	leg2 := &models.TravelLeg{DayID: day2.ID, FromCityID: osaka.ID, ToCityID: seoul.ID}
	require.NoError(t, db.Create(leg1).Error)
	require.NoError(t, db.Create(leg2).Error)

	sightseeing := &models.Activity{DayID: day1.ID, Kind: models.ActivityKindSightseeing, Position: 1, Title: "大阪城", CityID: &osaka.ID}
	wrestling := &models.Activity{DayID: day1.ID, Kind: models.ActivityKindWrestling, Position: 2, Title: "新日本摔角大阪场", CityID: &osaka.ID}
	eating := &models.Activity{DayID: day2.ID, Kind: models.ActivityKindEating, Position: 1, Title: "明洞小吃街", CityID: &seoul.ID}
	require.NoError(t, db.Create(sightseeing).Error)
	require.NoError(t, db.Create(wrestling).Error)
	require.NoError(t, db.Create(eating).Error)

	return &itinerary{
		project:     project,
		tokyo:       tokyo.ID,
		osaka:       osaka.ID,
		seoul:       seoul.ID,
		day1:        day1.ID,
		day2:        day2.ID,
		leg1:        leg1.ID,
		leg2:        leg2.ID,
		sightseeing: sightseeing.ID,
		wrestling:   wrestling.ID,
		eating:      eating.ID,
	}
}
