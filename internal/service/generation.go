package service

import (
	"context"
	"errors"
	"fmt"

	"tripgen/internal/config"
	"tripgen/internal/dto"
	"tripgen/internal/models"
	"tripgen/internal/repository"
	"tripgen/pkg/llm_caller"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// LLMClient 模型调用能力，便于测试时替换
type LLMClient interface {
	Call(ctx context.Context, messages []dto.Message, options *llm_caller.CallOptions) (*dto.ModelCallResponse, error)
}

// ExecuteOptions 单次执行的可选覆盖项
type ExecuteOptions struct {
	ModelID              *uint
	PromptSlug           string
	SupplementaryContent string
}

// GenerationService 生成执行服务
// 负责完整的执行链路：构建请求、算指纹、查缓存、调模型、落缓存、写回目标
type GenerationService struct {
	cache       *GenerationCache
	projectRepo *repository.ProjectRepository
	promptRepo  *repository.PromptTemplateRepository
	modelRepo   *repository.ModelConfigRepository
	llm         LLMClient
	limiter     llm_caller.Limiter
	cfg         *config.Config
	logger      *logrus.Logger
}

// NewGenerationService 创建生成执行服务
func NewGenerationService(
	cache *GenerationCache,
	projectRepo *repository.ProjectRepository,
	promptRepo *repository.PromptTemplateRepository,
	modelRepo *repository.ModelConfigRepository,
	llm LLMClient,
	limiter llm_caller.Limiter,
	cfg *config.Config,
	logger *logrus.Logger,
) *GenerationService {
	return &GenerationService{
		cache:       cache,
		projectRepo: projectRepo,
		promptRepo:  promptRepo,
		modelRepo:   modelRepo,
		llm:         llm,
		limiter:     limiter,
		cfg:         cfg,
		logger:      logger,
	}
}

// ResolveTarget 根据类型和ID解析生成目标
func (s *GenerationService) ResolveTarget(targetType string, targetID uint) (*Target, error) {
	switch targetType {
	case models.TargetTypeTravel:
		leg, err := s.projectRepo.GetTravelLegByID(targetID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: travel %d", ErrTargetNotFound, targetID)
		}
		if err != nil {
			return nil, err
		}
		return &Target{Type: models.TargetTypeTravel, TravelLeg: leg}, nil
	case models.TargetTypeActivity:
		activity, err := s.projectRepo.GetActivityByID(targetID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: activity %d", ErrTargetNotFound, targetID)
		}
		if err != nil {
			return nil, err
		}
		return &Target{Type: models.TargetTypeActivity, Activity: activity}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrTargetNotFound, targetType)
}

// GeneratorFor 按判别符构建生成器实例
func (s *GenerationService) GeneratorFor(generatorType string) (Generator, error) {
	switch generatorType {
	case GeneratorTravelDomestic:
		return &travelGenerator{projectRepo: s.projectRepo, cache: s.cache, international: false}, nil
	case GeneratorTravelInternational:
		return &travelGenerator{projectRepo: s.projectRepo, cache: s.cache, international: true}, nil
	case GeneratorSightseeing:
		return &activityGenerator{projectRepo: s.projectRepo, cache: s.cache, kind: models.ActivityKindSightseeing}, nil
	case GeneratorWrestling:
		return &activityGenerator{projectRepo: s.projectRepo, cache: s.cache, kind: models.ActivityKindWrestling}, nil
	case GeneratorEating:
		return &activityGenerator{projectRepo: s.projectRepo, cache: s.cache, kind: models.ActivityKindEating}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedGenerator, generatorType)
}

// Execute 执行一次生成
// bypassCache为true时跳过缓存查询强制调用模型（重新生成的语义），
// 但结果仍然尝试落缓存；指纹冲突时以已落库的记录建立关联，
// 强制模式下目标写回的是本次调用的新回复
func (s *GenerationService) Execute(ctx context.Context, target *Target, generatorType string, bypassCache bool, opts *ExecuteOptions) error {
	if opts == nil {
		opts = &ExecuteOptions{}
	}

	gen, err := s.GeneratorFor(generatorType)
	if err != nil {
		return err
	}

	req, callOpts, err := s.buildRequest(gen, target, opts)
	if err != nil {
		return err
	}

	fingerprint := Fingerprint(req)

	// 非强制模式下优先使用缓存
	if !bypassCache {
		cached, err := s.cache.Lookup(fingerprint)
		if err != nil {
			return fmt.Errorf("查询调用缓存失败: %w", err)
		}
		if cached != nil {
			s.logger.WithFields(logrus.Fields{
				"fingerprint": fingerprint,
				"generator":   generatorType,
			}).Info("[Generation] 缓存命中，跳过模型调用")
			return gen.ApplyResult(target, cached)
		}
	}

	call, err := s.invoke(ctx, req, callOpts, fingerprint, bypassCache)
	if err != nil {
		return err
	}

	return gen.ApplyResult(target, call)
}

// invoke 调用模型并落缓存
func (s *GenerationService) invoke(ctx context.Context, req *dto.GenerationRequest, callOpts *llm_caller.CallOptions, fingerprint string, bypassCache bool) (*models.CachedCall, error) {
	// 模型调用有独立的超时
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.LLM.GetCallTimeout())
	defer cancel()

	messages := []dto.Message{
		{Role: "system", Content: req.SystemPrompt},
		{Role: "user", Content: req.TaskPrompt},
	}

	resp, err := llm_caller.CallWithLimit(callCtx, s.limiter, req.ProviderID, s.llm, messages, callOpts)
	if err != nil {
		return nil, fmt.Errorf("模型调用失败: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("模型返回为空")
	}

	responseText := resp.Choices[0].Message.Content

	call, err := s.cache.Store(req, responseText, resp.Usage)
	if errors.Is(err, ErrDuplicateFingerprint) {
		s.logger.WithField("fingerprint", fingerprint).Info("[Generation] 指纹冲突，回读已有记录")
		winner, lookErr := s.cache.Lookup(fingerprint)
		if lookErr != nil {
			return nil, fmt.Errorf("回读调用缓存失败: %w", lookErr)
		}
		if winner == nil {
			return nil, fmt.Errorf("指纹冲突后回读缓存为空: %s", fingerprint)
		}
		if bypassCache {
			// 强制重新生成时目标写回本次的新回复，已有缓存行不修改
			fresh := *winner
			fresh.ResponseText = responseText
			return &fresh, nil
		}
		// 并发写入时以先落库的记录为准
		return winner, nil
	}
	if err != nil {
		return nil, err
	}
	return call, nil
}

// buildRequest 构建完整的生成请求
func (s *GenerationService) buildRequest(gen Generator, target *Target, opts *ExecuteOptions) (*dto.GenerationRequest, *llm_caller.CallOptions, error) {
	args, err := gen.BuildArgs(target)
	if err != nil {
		return nil, nil, err
	}
	if opts.SupplementaryContent != "" {
		args["supplementary_content"] = opts.SupplementaryContent
	}

	slug := gen.PromptSlug()
	if opts.PromptSlug != "" {
		slug = opts.PromptSlug
	}

	content, err := s.promptContent(slug)
	if err != nil {
		return nil, nil, err
	}

	providerID, callOpts := s.resolveProvider(opts)

	req := &dto.GenerationRequest{
		ProviderID:   providerID,
		SystemPrompt: s.cfg.LLM.SystemPrompt,
		TaskPrompt:   RenderPrompt(content, args),
		Args:         args,
	}
	return req, callOpts, nil
}

// promptContent 获取某个slug的提示词内容
// 数据库中的最新版本优先，其次是内置模板
func (s *GenerationService) promptContent(slug string) (string, error) {
	tmpl, err := s.promptRepo.GetLatestBySlug(slug)
	if err != nil {
		return "", fmt.Errorf("查询提示词模板失败: %w", err)
	}
	if tmpl != nil {
		return tmpl.Content, nil
	}
	if content, ok := defaultPrompts[slug]; ok {
		return content, nil
	}
	return "", fmt.Errorf("%w: %s", ErrPromptNotFound, slug)
}

// resolveProvider 解析本次调用使用的模型配置
// 顺序：显式指定的模型 > 数据库中第一个启用的模型 > 配置文件兜底
func (s *GenerationService) resolveProvider(opts *ExecuteOptions) (string, *llm_caller.CallOptions) {
	if opts.ModelID != nil {
		if mc, err := s.modelRepo.GetByIDAndActive(*opts.ModelID); err == nil {
			return mc.Name, &llm_caller.CallOptions{
				MaxTokens:   mc.MaxTokens,
				Temperature: mc.Temperature,
				TopP:        mc.TopP,
			}
		}
		s.logger.WithField("model_id", *opts.ModelID).Warn("[Generation] 指定的模型配置不可用，回退默认模型")
	}

	if actives, err := s.modelRepo.GetActiveModels(); err == nil && len(actives) > 0 {
		mc := actives[0]
		return mc.Name, &llm_caller.CallOptions{
			MaxTokens:   mc.MaxTokens,
			Temperature: mc.Temperature,
			TopP:        mc.TopP,
		}
	}

	return s.cfg.LLM.DefaultModel, nil
}
