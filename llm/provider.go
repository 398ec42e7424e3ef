package llm

import (
	"context"
	"time"

	"github.com/BaSui01/travelrag/types"
)

// 上游错误统一使用 types.Error，便于管道按错误码决定降级或失败。
type (
	Error     = types.Error
	ErrorCode = types.ErrorCode
)

const (
	ErrInvalidRequest     = types.ErrInvalidRequest     // 参数/格式错误
	ErrUnauthorized       = types.ErrUnauthorized       // 未授权或密钥失效
	ErrForbidden          = types.ErrForbidden          // 权限拒绝
	ErrNotFound           = types.ErrNotFound           // 模型或索引不存在
	ErrRateLimited        = types.ErrRateLimited        // 上游或本地限流
	ErrQuotaExceeded      = types.ErrQuotaExceeded      // 额度用尽
	ErrUpstreamTimeout    = types.ErrTimeout            // 上游超时
	ErrUpstreamError      = types.ErrUpstreamError      // 上游 5xx/网络错误
	ErrServiceUnavailable = types.ErrServiceUnavailable // 服务不可用
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest 是发往生成服务的请求。
type ChatRequest struct {
	TraceID     string            `json:"trace_id,omitempty"`
	Model       string            `json:"model"`
	Messages    []Message         `json:"messages"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
	Temperature float32           `json:"temperature,omitempty"`
	Timeout     time.Duration     `json:"timeout,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

type ChatChoice struct {
	Index        int     `json:"index"`
	FinishReason string  `json:"finish_reason,omitempty"`
	Message      Message `json:"message"`
}

type ChatResponse struct {
	ID        string       `json:"id,omitempty"`
	Provider  string       `json:"provider,omitempty"`
	Model     string       `json:"model"`
	Choices   []ChatChoice `json:"choices"`
	Usage     ChatUsage    `json:"usage,omitempty"`
	CreatedAt time.Time    `json:"created_at,omitempty"`
}

// FirstContent returns the content of the first choice, or "" when there is none.
func (r *ChatResponse) FirstContent() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// Provider 定义生成服务的最小适配接口。
type Provider interface {
	// Completion 发起同步聊天请求，返回完整响应
	Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Name 返回 Provider 的唯一标识
	Name() string
}
