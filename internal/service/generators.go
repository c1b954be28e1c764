package service

import (
	"fmt"
	"strings"

	"tripgen/internal/models"
	"tripgen/internal/repository"
)

// 生成器类型
const (
	GeneratorTravelDomestic      = "travel_domestic"
	GeneratorTravelInternational = "travel_international"
	GeneratorSightseeing         = "sightseeing"
	GeneratorWrestling           = "wrestling"
	GeneratorEating              = "eating"
)

// defaultPrompts 各生成器的内置提示词模板
// 数据库中存在同slug的PromptTemplate时以数据库的最新版本为准
var defaultPrompts = map[string]string{
	GeneratorTravelDomestic:      "为从{from_city}到{to_city}的国内交通行程写一段简洁的介绍，包含推荐的交通方式和大致耗时。",
	GeneratorTravelInternational: "为从{from_city}（{from_country}）到{to_city}（{to_country}）的跨国交通行程写一段简洁的介绍，提示签证和出入境注意事项。",
	GeneratorSightseeing:         "为在{city}的游玩活动「{title}」写一段生动的介绍。",
	GeneratorWrestling:           "为在{city}举办的摔角赛事「{title}」写一段介绍，并补充一段关于{city}这座城市的简介。",
	GeneratorEating:              "为在{city}的餐饮活动「{title}」写一段介绍，推荐当地特色美食。",
}

// Target 生成目标，交通行程或活动二选一
type Target struct {
	Type      string
	TravelLeg *models.TravelLeg
	Activity  *models.Activity
}

// ID 获取目标的主键
func (t *Target) ID() uint {
	if t.Type == models.TargetTypeTravel {
		return t.TravelLeg.ID
	}
	return t.Activity.ID
}

// SelectGeneratorType 根据目标属性选择生成器类型
// 选择是纯函数：交通看是否跨国，活动看类型。结果会作为判别符
// 存进任务里，重试时按判别符重建同一个生成器
func SelectGeneratorType(target *Target) (string, error) {
	switch target.Type {
	case models.TargetTypeTravel:
		if target.TravelLeg.IsCrossBorder() {
			return GeneratorTravelInternational, nil
		}
		return GeneratorTravelDomestic, nil
	case models.TargetTypeActivity:
		switch target.Activity.Kind {
		case models.ActivityKindSightseeing:
			return GeneratorSightseeing, nil
		case models.ActivityKindWrestling:
			return GeneratorWrestling, nil
		case models.ActivityKindEating:
			return GeneratorEating, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedGenerator, target.Type)
}

// Generator 生成器能力集合
// BuildArgs 产出任务提示词的参数，ApplyResult 把调用结果写回目标
type Generator interface {
	Type() string
	PromptSlug() string
	BuildArgs(target *Target) (map[string]string, error)
	ApplyResult(target *Target, call *models.CachedCall) error
}

// travelGenerator 交通行程生成器，国内和跨国共用实现
type travelGenerator struct {
	projectRepo   *repository.ProjectRepository
	cache         *GenerationCache
	international bool
}

func (g *travelGenerator) Type() string {
	if g.international {
		return GeneratorTravelInternational
	}
	return GeneratorTravelDomestic
}

func (g *travelGenerator) PromptSlug() string {
	return g.Type()
}

func (g *travelGenerator) BuildArgs(target *Target) (map[string]string, error) {
	leg := target.TravelLeg
	if leg == nil {
		return nil, fmt.Errorf("%w: 交通行程为空", ErrTargetNotFound)
	}

	args := map[string]string{
		"from_city": leg.FromCity.Name,
		"to_city":   leg.ToCity.Name,
	}
	if g.international {
		args["from_country"] = leg.FromCity.Country
		args["to_country"] = leg.ToCity.Country
	}
	return args, nil
}

func (g *travelGenerator) ApplyResult(target *Target, call *models.CachedCall) error {
	leg := target.TravelLeg
	if err := g.projectRepo.UpdateTravelLegDescription(leg.ID, call.ResponseText); err != nil {
		return fmt.Errorf("写回交通行程失败: %w", err)
	}
	return g.cache.Associate(call, models.TargetTypeTravel, leg.ID, g.Type())
}

// activityGenerator 活动生成器，按活动类型区分提示词
type activityGenerator struct {
	projectRepo *repository.ProjectRepository
	cache       *GenerationCache
	kind        string
}

func (g *activityGenerator) Type() string {
	return g.kind
}

func (g *activityGenerator) PromptSlug() string {
	return g.kind
}

func (g *activityGenerator) BuildArgs(target *Target) (map[string]string, error) {
	activity := target.Activity
	if activity == nil {
		return nil, fmt.Errorf("%w: 活动为空", ErrTargetNotFound)
	}

	cityName := ""
	if activity.City != nil {
		cityName = activity.City.Name
	}

	return map[string]string{
		"city":  cityName,
		"title": activity.Title,
		"kind":  activity.Kind,
	}, nil
}

func (g *activityGenerator) ApplyResult(target *Target, call *models.CachedCall) error {
	activity := target.Activity
	if err := g.projectRepo.UpdateActivityDescription(activity.ID, call.ResponseText); err != nil {
		return fmt.Errorf("写回活动失败: %w", err)
	}
	if err := g.cache.Associate(call, models.TargetTypeActivity, activity.ID, g.Type()); err != nil {
		return err
	}

	// 摔角赛事同步更新举办城市的简介
	// 同一座城市可能被多天共享，所以城市也和这次调用建立关联
	if g.kind == GeneratorWrestling && activity.City != nil {
		if err := g.projectRepo.UpdateCityDescription(activity.City.ID, call.ResponseText); err != nil {
			return fmt.Errorf("写回城市失败: %w", err)
		}
		if err := g.cache.Associate(call, models.TargetTypeCity, activity.City.ID, g.Type()); err != nil {
			return err
		}
	}

	return nil
}

// RenderPrompt 渲染提示词模板，把{key}占位符替换为参数值
func RenderPrompt(content string, args map[string]string) string {
	pairs := make([]string, 0, len(args)*2)
	for k, v := range args {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(content)
}
