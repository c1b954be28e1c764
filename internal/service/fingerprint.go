package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"tripgen/internal/dto"
)

// Fingerprint 计算生成请求的内容指纹
// 指纹只由 provider、系统提示词、任务提示词和参数决定，
// 参数按key排序后序列化，保证语义相同的请求在任何时刻都得到同一个指纹
func Fingerprint(req *dto.GenerationRequest) string {
	var b strings.Builder

	b.WriteString("provider:")
	b.WriteString(req.ProviderID)
	b.WriteString("\nsystem:")
	b.WriteString(req.SystemPrompt)
	b.WriteString("\ntask:")
	b.WriteString(req.TaskPrompt)
	b.WriteString("\nargs:")

	keys := make([]string, 0, len(req.Args))
	for k := range req.Args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		// key和value都带长度前缀，避免拼接歧义
		v := req.Args[k]
		fmt.Fprintf(&b, "%d:%s=%d:%s;", len(k), k, len(v), v)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
