package service

import (
	"testing"

	"tripgen/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandSingle(t *testing.T) {
	env := newTestEnv(t)
	it := seedItinerary(t, env.db)

	items, err := env.expander.ExpandSingle(it.project, models.TargetTypeTravel, it.leg2)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, it.leg2, items[0].TargetID)
	assert.Equal(t, GeneratorTravelInternational, items[0].GeneratorType)

	items, err = env.expander.ExpandSingle(it.project, models.TargetTypeActivity, it.wrestling)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, GeneratorWrestling, items[0].GeneratorType)

	_, err = env.expander.ExpandSingle(it.project, models.TargetTypeTravel, 9999)
	assert.ErrorIs(t, err, ErrTargetNotFound)
}

func TestExpandSingleRejectsForeignTarget(t *testing.T) {
	env := newTestEnv(t)
	it := seedItinerary(t, env.db)

	other := &models.Project{Name: "别人的项目", CurrentVersion: 1}
	require.NoError(t, env.db.Create(other).Error)

	// 目标存在但属于另一个项目时视同不存在
	_, err := env.expander.ExpandSingle(other, models.TargetTypeActivity, it.wrestling)
	assert.ErrorIs(t, err, ErrTargetNotFound)

	_, err = env.expander.ExpandSingle(other, models.TargetTypeTravel, it.leg1)
	assert.ErrorIs(t, err, ErrTargetNotFound)
}

func TestExpandDayOrdersTravelFirst(t *testing.T) {
	env := newTestEnv(t)
	it := seedItinerary(t, env.db)

	items, err := env.expander.ExpandDay(it.project, 1)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, models.TargetTypeTravel, items[0].TargetType)
	assert.Equal(t, GeneratorTravelDomestic, items[0].GeneratorType)
	assert.Equal(t, GeneratorSightseeing, items[1].GeneratorType)
	assert.Equal(t, GeneratorWrestling, items[2].GeneratorType)

	_, err = env.expander.ExpandDay(it.project, 99)
	assert.ErrorIs(t, err, ErrTargetNotFound)
}

func TestExpandColumn(t *testing.T) {
	env := newTestEnv(t)
	it := seedItinerary(t, env.db)

	items, err := env.expander.ExpandColumn(it.project, models.TargetTypeTravel)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, it.leg1, items[0].TargetID)
	assert.Equal(t, it.leg2, items[1].TargetID)

	items, err = env.expander.ExpandColumn(it.project, models.ActivityKindEating)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, it.eating, items[0].TargetID)

	// 没有任何一天有这列的数据时展开为空
	bare := &models.Project{Name: "纯活动项目", CurrentVersion: 1}
	require.NoError(t, env.db.Create(bare).Error)
	bareDay := &models.Day{ProjectID: bare.ID, Version: 1, DayNumber: 1}
	require.NoError(t, env.db.Create(bareDay).Error)

	items, err = env.expander.ExpandColumn(bare, models.TargetTypeTravel)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestExpandProject(t *testing.T) {
	env := newTestEnv(t)
	it := seedItinerary(t, env.db)

	items, err := env.expander.ExpandProject(it.project)
	require.NoError(t, err)
	require.Len(t, items, 5)

	// 第1天：交通、游玩、摔角；第2天：交通、餐饮
	want := []string{
		GeneratorTravelDomestic,
		GeneratorSightseeing,
		GeneratorWrestling,
		GeneratorTravelInternational,
		GeneratorEating,
	}
	got := make([]string, 0, len(items))
	for _, item := range items {
		got = append(got, item.GeneratorType)
	}
	assert.Equal(t, want, got)
}

func TestExpandProjectEmpty(t *testing.T) {
	env := newTestEnv(t)

	project := &models.Project{Name: "空项目", CurrentVersion: 1}
	require.NoError(t, env.db.Create(project).Error)

	items, err := env.expander.ExpandProject(project)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestExpandIgnoresOtherVersions(t *testing.T) {
	env := newTestEnv(t)
	it := seedItinerary(t, env.db)

	// 旧版本的天不应该被展开
	oldDay := &models.Day{ProjectID: it.project.ID, Version: 0, DayNumber: 1}
	require.NoError(t, env.db.Create(oldDay).Error)
	oldLeg := &models.TravelLeg{DayID: oldDay.ID, FromCityID: it.tokyo, ToCityID: it.seoul}
	require.NoError(t, env.db.Create(oldLeg).Error)

	items, err := env.expander.ExpandProject(it.project)
	require.NoError(t, err)
	assert.Len(t, items, 5)
}
