package service

import (
	"sync"
	"testing"

	"tripgen/internal/dto"
	"tripgen/internal/models"
	"tripgen/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cacheFixture(t *testing.T) (*GenerationCache, *repository.CachedCallRepository) {
	db := setupTestDB(t)
	repo := repository.NewCachedCallRepository(db)
	return NewGenerationCache(repo), repo
}

func sampleRequest() *dto.GenerationRequest {
	return &dto.GenerationRequest{
		ProviderID:   "qwen",
		SystemPrompt: "系统",
		TaskPrompt:   "为大阪城写介绍",
		Args:         map[string]string{"city": "大阪", "title": "大阪城"},
	}
}

func TestGenerationCacheStoreAndLookup(t *testing.T) {
	cache, _ := cacheFixture(t)
	req := sampleRequest()

	miss, err := cache.Lookup(Fingerprint(req))
	require.NoError(t, err)
	assert.Nil(t, miss)

	call, err := cache.Store(req, "大阪城的介绍", dto.Usage{PromptTokens: 5, CompletionTokens: 10})
	require.NoError(t, err)
	require.NotZero(t, call.ID)

	hit, err := cache.Lookup(Fingerprint(req))
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, call.ID, hit.ID)
	assert.Equal(t, "大阪城的介绍", hit.ResponseText)
	assert.Equal(t, "大阪", hit.Args["city"])
}

func TestGenerationCacheDuplicateFingerprint(t *testing.T) {
	cache, _ := cacheFixture(t)
	req := sampleRequest()

	_, err := cache.Store(req, "第一次", dto.Usage{})
	require.NoError(t, err)

	_, err = cache.Store(req, "第二次", dto.Usage{})
	assert.ErrorIs(t, err, ErrDuplicateFingerprint)

	// 数据库里以先落库的为准
	hit, err := cache.Lookup(Fingerprint(req))
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, "第一次", hit.ResponseText)
}

func TestGenerationCacheConcurrentStoresConverge(t *testing.T) {
	cache, repo := cacheFixture(t)
	req := sampleRequest()

	const n = 8
	var wg sync.WaitGroup
	results := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = cache.Store(req, "并发写入", dto.Usage{})
		}(i)
	}
	wg.Wait()

	success := 0
	for _, err := range results {
		if err == nil {
			success++
		} else {
			assert.ErrorIs(t, err, ErrDuplicateFingerprint)
		}
	}
	assert.Equal(t, 1, success)

	count, err := repo.CountByFingerprint(Fingerprint(req))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestGenerationCacheAssociate(t *testing.T) {
	cache, repo := cacheFixture(t)
	req := sampleRequest()

	call, err := cache.Store(req, "介绍", dto.Usage{})
	require.NoError(t, err)

	// 同一条调用可以关联多个目标
	require.NoError(t, cache.Associate(call, models.TargetTypeActivity, 7, GeneratorWrestling))
	require.NoError(t, cache.Associate(call, models.TargetTypeCity, 3, GeneratorWrestling))

	records, err := repo.GetRecordsByTarget(models.TargetTypeActivity, 7)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, call.ID, records[0].CachedCallID)
	assert.Equal(t, GeneratorWrestling, records[0].GeneratorType)

	records, err = repo.GetRecordsByTarget(models.TargetTypeCity, 3)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
