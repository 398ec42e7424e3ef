package api

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/BaSui01/travelrag/types"
)

// MaxQueryRunes 单个问题的最大长度
const MaxQueryRunes = 2000

// =============================================================================
// 问答类型
// =============================================================================

// ChatRequest 表示 /api/v1/chat 请求。
// @Description 旅行问答请求
type ChatRequest struct {
	// 用户问题
	Query string `json:"query" example:"Plan a 3-day trip to Hanoi" binding:"required"`
	// 为 true 时响应附带提示上下文与阶段耗时
	Verbose bool `json:"verbose,omitempty"`
	// 可选的生成模型覆盖
	Model string `json:"model,omitempty" example:"gpt-4o-mini"`
}

// Validate 校验请求字段
func (r *ChatRequest) Validate() *types.Error {
	q := strings.TrimSpace(r.Query)
	if q == "" {
		return types.NewError(types.ErrInvalidRequest, "query is required")
	}
	if n := utf8.RuneCountInString(q); n > MaxQueryRunes {
		return types.NewError(types.ErrInvalidRequest,
			fmt.Sprintf("query is too long: %d characters, limit %d", n, MaxQueryRunes))
	}
	return nil
}

// VersionInfo 表示 /version 响应。
// @Description 版本信息
type VersionInfo struct {
	Version   string `json:"version" example:"1.0.0"`
	BuildTime string `json:"build_time,omitempty"`
	GitCommit string `json:"git_commit,omitempty"`
}
