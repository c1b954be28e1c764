package service

import (
	"errors"
)

var (
	// ErrTargetNotFound 生成目标不存在，属于配置错误，不重试
	ErrTargetNotFound = errors.New("生成目标不存在")

	// ErrUnsupportedGenerator 不支持的生成器类型，属于配置错误，不重试
	ErrUnsupportedGenerator = errors.New("不支持的生成器类型")

	// ErrDuplicateFingerprint 并发写入时指纹已存在，调用方应回读已有记录
	ErrDuplicateFingerprint = errors.New("内容指纹已存在")

	// ErrPromptNotFound 提示词模板不存在，属于配置错误，不重试
	ErrPromptNotFound = errors.New("提示词模板不存在")
)
