package service

import (
	"errors"
	"fmt"
	"sort"

	"tripgen/internal/dto"
	"tripgen/internal/models"
	"tripgen/internal/repository"

	"gorm.io/gorm"
)

// Expander 批次范围展开器
// 把一次重新生成请求展开成有序的任务列表。顺序按天数升序、
// 天内先交通后活动（活动按游玩、摔角、餐饮的固定顺序），
// 同样的数据总是得到同样的展开结果
type Expander struct {
	projectRepo *repository.ProjectRepository
}

// NewExpander 创建展开器
func NewExpander(projectRepo *repository.ProjectRepository) *Expander {
	return &Expander{projectRepo: projectRepo}
}

// ExpandSingle 展开单目标范围，目标必须属于给定项目
func (e *Expander) ExpandSingle(project *models.Project, targetType string, targetID uint) ([]dto.WorkItem, error) {
	var (
		target *Target
		dayID  uint
	)

	switch targetType {
	case models.TargetTypeTravel:
		leg, err := e.projectRepo.GetTravelLegByID(targetID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: travel %d", ErrTargetNotFound, targetID)
		}
		if err != nil {
			return nil, err
		}
		target = &Target{Type: models.TargetTypeTravel, TravelLeg: leg}
		dayID = leg.DayID
	case models.TargetTypeActivity:
		activity, err := e.projectRepo.GetActivityByID(targetID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: activity %d", ErrTargetNotFound, targetID)
		}
		if err != nil {
			return nil, err
		}
		target = &Target{Type: models.TargetTypeActivity, Activity: activity}
		dayID = activity.DayID
	default:
		return nil, fmt.Errorf("%w: %s", ErrTargetNotFound, targetType)
	}

	day, err := e.projectRepo.GetDayByID(dayID)
	if err != nil {
		return nil, fmt.Errorf("查询目标所属天失败: %w", err)
	}
	if day.ProjectID != project.ID {
		return nil, fmt.Errorf("%w: %s %d 不属于项目 %d", ErrTargetNotFound, targetType, targetID, project.ID)
	}

	generatorType, err := SelectGeneratorType(target)
	if err != nil {
		return nil, err
	}

	return []dto.WorkItem{{
		TargetType:    targetType,
		TargetID:      targetID,
		GeneratorType: generatorType,
	}}, nil
}

// ExpandDay 展开单天范围：当天的交通加全部活动，缺的槽位跳过
func (e *Expander) ExpandDay(project *models.Project, dayNumber int) ([]dto.WorkItem, error) {
	day, err := e.projectRepo.GetDay(project.ID, project.CurrentVersion, dayNumber)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: day %d", ErrTargetNotFound, dayNumber)
	}
	if err != nil {
		return nil, err
	}

	return e.expandDayItems(day)
}

// ExpandColumn 展开列范围：当前版本里每个拥有该列的天出一个任务
func (e *Expander) ExpandColumn(project *models.Project, column string) ([]dto.WorkItem, error) {
	days, err := e.projectRepo.ListDays(project.ID, project.CurrentVersion)
	if err != nil {
		return nil, err
	}

	var items []dto.WorkItem
	for i := range days {
		day := &days[i]

		if column == models.TargetTypeTravel {
			if day.TravelLeg == nil {
				continue
			}
			item, err := e.travelItem(day.TravelLeg)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
			continue
		}

		for j := range day.Activities {
			activity := &day.Activities[j]
			if activity.Kind != column {
				continue
			}
			item, err := e.activityItem(activity)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
	}

	return items, nil
}

// ExpandProject 展开整个项目：当前版本每一天的单天展开的并集
func (e *Expander) ExpandProject(project *models.Project) ([]dto.WorkItem, error) {
	days, err := e.projectRepo.ListDays(project.ID, project.CurrentVersion)
	if err != nil {
		return nil, err
	}

	var items []dto.WorkItem
	for i := range days {
		dayItems, err := e.expandDayItems(&days[i])
		if err != nil {
			return nil, err
		}
		items = append(items, dayItems...)
	}
	return items, nil
}

// 天内活动的固定展开顺序
var kindOrder = map[string]int{
	models.ActivityKindSightseeing: 1,
	models.ActivityKindWrestling:   2,
	models.ActivityKindEating:      3,
}

// expandDayItems 展开一天内的全部槽位，先交通后活动，活动按固定的类型顺序
func (e *Expander) expandDayItems(day *models.Day) ([]dto.WorkItem, error) {
	var items []dto.WorkItem

	if day.TravelLeg != nil {
		item, err := e.travelItem(day.TravelLeg)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	activities := make([]*models.Activity, 0, len(day.Activities))
	for i := range day.Activities {
		activities = append(activities, &day.Activities[i])
	}
	sort.SliceStable(activities, func(i, j int) bool {
		return kindOrder[activities[i].Kind] < kindOrder[activities[j].Kind]
	})

	for _, activity := range activities {
		item, err := e.activityItem(activity)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, nil
}

func (e *Expander) travelItem(leg *models.TravelLeg) (dto.WorkItem, error) {
	generatorType, err := SelectGeneratorType(&Target{Type: models.TargetTypeTravel, TravelLeg: leg})
	if err != nil {
		return dto.WorkItem{}, err
	}
	return dto.WorkItem{
		TargetType:    models.TargetTypeTravel,
		TargetID:      leg.ID,
		GeneratorType: generatorType,
	}, nil
}

func (e *Expander) activityItem(activity *models.Activity) (dto.WorkItem, error) {
	generatorType, err := SelectGeneratorType(&Target{Type: models.TargetTypeActivity, Activity: activity})
	if err != nil {
		return dto.WorkItem{}, err
	}
	return dto.WorkItem{
		TargetType:    models.TargetTypeActivity,
		TargetID:      activity.ID,
		GeneratorType: generatorType,
	}, nil
}
