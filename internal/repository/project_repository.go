package repository

import (
	"tripgen/internal/models"

	"gorm.io/gorm"
)

// ProjectRepository 行程数据访问层
type ProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository 创建行程Repository
func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// GetByID 根据ID获取项目
func (r *ProjectRepository) GetByID(id uint) (*models.Project, error) {
	var project models.Project
	err := r.db.First(&project, id).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// GetDay 获取项目某版本中的一天（带交通和活动）
func (r *ProjectRepository) GetDay(projectID uint, version int, dayNumber int) (*models.Day, error) {
	var day models.Day
	err := r.db.
		Preload("TravelLeg").
		Preload("TravelLeg.FromCity").
		Preload("TravelLeg.ToCity").
		Preload("Activities", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Activities.City").
		Where("project_id = ? AND version = ? AND day_number = ?", projectID, version, dayNumber).
		First(&day).Error
	if err != nil {
		return nil, err
	}
	return &day, nil
}

// ListDays 获取项目某版本的全部天（按天数排序，带交通和活动）
func (r *ProjectRepository) ListDays(projectID uint, version int) ([]models.Day, error) {
	var days []models.Day
	err := r.db.
		Preload("TravelLeg").
		Preload("TravelLeg.FromCity").
		Preload("TravelLeg.ToCity").
		Preload("Activities", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Activities.City").
		Where("project_id = ? AND version = ?", projectID, version).
		Order("day_number ASC").
		Find(&days).Error
	return days, err
}

// GetTravelLegByID 根据ID获取交通行程（带起止城市）
func (r *ProjectRepository) GetTravelLegByID(id uint) (*models.TravelLeg, error) {
	var leg models.TravelLeg
	err := r.db.
		Preload("FromCity").
		Preload("ToCity").
		First(&leg, id).Error
	if err != nil {
		return nil, err
	}
	return &leg, nil
}

// GetActivityByID 根据ID获取活动（带城市）
func (r *ProjectRepository) GetActivityByID(id uint) (*models.Activity, error) {
	var activity models.Activity
	err := r.db.
		Preload("City").
		First(&activity, id).Error
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

// GetDayByID 根据ID获取天
func (r *ProjectRepository) GetDayByID(id uint) (*models.Day, error) {
	var day models.Day
	err := r.db.First(&day, id).Error
	if err != nil {
		return nil, err
	}
	return &day, nil
}

// UpdateTravelLegDescription 更新交通行程的介绍
func (r *ProjectRepository) UpdateTravelLegDescription(id uint, description string) error {
	return r.db.Model(&models.TravelLeg{}).Where("id = ?", id).Update("description", description).Error
}

// UpdateActivityDescription 更新活动的介绍
func (r *ProjectRepository) UpdateActivityDescription(id uint, description string) error {
	return r.db.Model(&models.Activity{}).Where("id = ?", id).Update("description", description).Error
}

// UpdateCityDescription 更新城市的介绍
func (r *ProjectRepository) UpdateCityDescription(id uint, description string) error {
	return r.db.Model(&models.City{}).Where("id = ?", id).Update("description", description).Error
}
