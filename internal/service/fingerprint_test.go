package service

import (
	"testing"

	"tripgen/internal/dto"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintDeterministic(t *testing.T) {
	a := &dto.GenerationRequest{
		ProviderID:   "qwen",
		SystemPrompt: "系统",
		TaskPrompt:   "任务",
		Args:         map[string]string{"city": "大阪", "title": "大阪城"},
	}
	b := &dto.GenerationRequest{
		ProviderID:   "qwen",
		SystemPrompt: "系统",
		TaskPrompt:   "任务",
		Args:         map[string]string{"title": "大阪城", "city": "大阪"},
	}

	assert.Equal(t, Fingerprint(a), Fingerprint(b))
	assert.Len(t, Fingerprint(a), 64)
}

func TestFingerprintSensitiveToEveryField(t *testing.T) {
	base := &dto.GenerationRequest{
		ProviderID:   "qwen",
		SystemPrompt: "系统",
		TaskPrompt:   "任务",
		Args:         map[string]string{"city": "大阪"},
	}
	baseFP := Fingerprint(base)

	variants := []*dto.GenerationRequest{
		{ProviderID: "deepseek", SystemPrompt: "系统", TaskPrompt: "任务", Args: map[string]string{"city": "大阪"}},
		{ProviderID: "qwen", SystemPrompt: "别的系统", TaskPrompt: "任务", Args: map[string]string{"city": "大阪"}},
		{ProviderID: "qwen", SystemPrompt: "系统", TaskPrompt: "别的任务", Args: map[string]string{"city": "大阪"}},
		{ProviderID: "qwen", SystemPrompt: "系统", TaskPrompt: "任务", Args: map[string]string{"city": "东京"}},
		{ProviderID: "qwen", SystemPrompt: "系统", TaskPrompt: "任务", Args: map[string]string{"city": "大阪", "extra": "x"}},
	}
	for _, v := range variants {
		assert.NotEqual(t, baseFP, Fingerprint(v))
	}
}

func TestFingerprintNoConcatAmbiguity(t *testing.T) {
	a := &dto.GenerationRequest{Args: map[string]string{"ab": "c"}}
	b := &dto.GenerationRequest{Args: map[string]string{"a": "bc"}}
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}
