package llm_caller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"tripgen/internal/dto"
)

// LLMCaller 模型调用客户端
type LLMCaller struct {
	client  *http.Client
	apiBase string
	apiKey  string
	model   string
	timeout time.Duration
}

// CallOptions 调用选项
type CallOptions struct {
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// Limiter 并发限制器接口
type Limiter interface {
	Acquire(ctx context.Context, key string) error
	Release(ctx context.Context, key string)
}

// NewLLMCaller 创建模型调用客户端
func NewLLMCaller(apiBase, apiKey, model string, timeout time.Duration) *LLMCaller {
	return &LLMCaller{
		client: &http.Client{
			Timeout: timeout,
		},
		apiBase: apiBase,
		apiKey:  apiKey,
		model:   model,
		timeout: timeout,
	}
}

// Call 调用模型
func (lc *LLMCaller) Call(ctx context.Context, messages []dto.Message, options *CallOptions) (*dto.ModelCallResponse, error) {
	if options == nil {
		options = &CallOptions{
			MaxTokens:   2048,
			Temperature: 1.0,
			TopP:        1.0,
		}
	}

	// 构建请求体
	reqBody := map[string]interface{}{
		"model":       lc.model,
		"messages":    messages,
		"max_tokens":  options.MaxTokens,
		"temperature": options.Temperature,
		"top_p":       options.TopP,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	// 构建HTTP请求
	url := lc.apiBase + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}

	// 设置请求头
	req.Header.Set("Content-Type", "application/json")
	if lc.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+lc.apiKey)
	}

	// 发送请求
	resp, err := lc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	// 读取响应
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}

	// 检查HTTP状态码
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API返回错误: status=%d, body=%s", resp.StatusCode, string(body))
	}

	// 解析响应
	var result dto.ModelCallResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}

	return &result, nil
}

// Caller 模型调用能力
type Caller interface {
	Call(ctx context.Context, messages []dto.Message, options *CallOptions) (*dto.ModelCallResponse, error)
}

// CallWithLimit 带并发限制的调用，limiter为nil时直接调用
func CallWithLimit(ctx context.Context, limiter Limiter, key string, caller Caller, messages []dto.Message, options *CallOptions) (*dto.ModelCallResponse, error) {
	if limiter != nil {
		// 获取并发槽位
		if err := limiter.Acquire(ctx, key); err != nil {
			return nil, fmt.Errorf("获取并发槽位失败: %w", err)
		}
		// 调用超时后槽位仍然要释放
		defer limiter.Release(context.Background(), key)
	}

	return caller.Call(ctx, messages, options)
}

// ConcurrencyLimiter 进程内并发限制器（没有Redis时的兜底实现）
type ConcurrencyLimiter struct {
	maxConcurrent int
	semaphore     chan struct{}
}

// NewConcurrencyLimiter 创建并发限制器
func NewConcurrencyLimiter(maxConcurrent int) *ConcurrencyLimiter {
	return &ConcurrencyLimiter{
		maxConcurrent: maxConcurrent,
		semaphore:     make(chan struct{}, maxConcurrent),
	}
}

// Acquire 获取并发槽位
func (cl *ConcurrencyLimiter) Acquire(ctx context.Context, key string) error {
	select {
	case cl.semaphore <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release 释放并发槽位
func (cl *ConcurrencyLimiter) Release(ctx context.Context, key string) {
	select {
	case <-cl.semaphore:
	default:
	}
}
