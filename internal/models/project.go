package models

import (
	"time"
)

// 活动类型
const (
	ActivityKindSightseeing = "sightseeing" // 游玩
	ActivityKindWrestling   = "wrestling"   // 摔角赛事
	ActivityKindEating      = "eating"      // 餐饮
)

// 生成目标类型
const (
	TargetTypeTravel   = "travel"
	TargetTypeActivity = "activity"
	TargetTypeCity     = "city" // 仅用于关联记录：城市作为共享的次级目标
)

// Project 行程项目
type Project struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	Name           string    `gorm:"size:200;not null" json:"name"`
	CurrentVersion int       `gorm:"default:1" json:"current_version"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Project) TableName() string {
	return "projects"
}

// Day 行程中的一天，属于项目的某个版本
type Day struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	ProjectID uint      `gorm:"not null;uniqueIndex:idx_days_project_version_number" json:"project_id"`
	Version   int       `gorm:"not null;uniqueIndex:idx_days_project_version_number" json:"version"`
	DayNumber int       `gorm:"not null;uniqueIndex:idx_days_project_version_number" json:"day_number"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联
	TravelLeg  *TravelLeg `gorm:"foreignKey:DayID" json:"travel_leg,omitempty"`
	Activities []Activity `gorm:"foreignKey:DayID" json:"activities,omitempty"`
}

// TableName 指定表名
func (Day) TableName() string {
	return "days"
}

// City 城市，多个行程目标可以共享同一个城市
type City struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Name        string    `gorm:"size:100;not null;uniqueIndex:idx_cities_name_country" json:"name"`
	Country     string    `gorm:"size:100;not null;uniqueIndex:idx_cities_name_country" json:"country"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 指定表名
func (City) TableName() string {
	return "cities"
}

// TravelLeg 一天中的交通行程，每天最多一条
type TravelLeg struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	DayID       uint      `gorm:"not null;uniqueIndex" json:"day_id"`
	FromCityID  uint      `gorm:"not null" json:"from_city_id"`
	ToCityID    uint      `gorm:"not null" json:"to_city_id"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// 关联
	FromCity City `gorm:"foreignKey:FromCityID" json:"from_city,omitempty"`
	ToCity   City `gorm:"foreignKey:ToCityID" json:"to_city,omitempty"`
}

// TableName 指定表名
func (TravelLeg) TableName() string {
	return "travel_legs"
}

// IsCrossBorder 判断是否跨国交通
func (t *TravelLeg) IsCrossBorder() bool {
	return t.FromCity.Country != t.ToCity.Country
}

// Activity 一天中的活动，每种类型每天最多一条
type Activity struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	DayID       uint      `gorm:"not null;uniqueIndex:idx_activities_day_kind" json:"day_id"`
	Kind        string    `gorm:"size:20;not null;uniqueIndex:idx_activities_day_kind" json:"kind"`
	Position    int       `gorm:"default:0" json:"position"`
	Title       string    `gorm:"size:200" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	CityID      *uint     `json:"city_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// 关联
	City *City `gorm:"foreignKey:CityID" json:"city,omitempty"`
}

// TableName 指定表名
func (Activity) TableName() string {
	return "activities"
}
