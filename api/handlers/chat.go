package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/travelrag/api"
	"github.com/BaSui01/travelrag/internal/ctxkeys"
	"github.com/BaSui01/travelrag/rag"
	"github.com/BaSui01/travelrag/types"
	"go.uber.org/zap"
)

// =============================================================================
// 💬 问答接口 Handler
// =============================================================================

// Answerer 问答管道，*rag.Pipeline 实现该接口
type Answerer interface {
	Answer(ctx context.Context, query string, opts ...rag.AnswerOption) (*rag.Result, error)
}

// ChatHandler 问答接口处理器
type ChatHandler struct {
	pipeline Answerer
	logger   *zap.Logger
}

// NewChatHandler 创建问答处理器
func NewChatHandler(pipeline Answerer, logger *zap.Logger) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{
		pipeline: pipeline,
		logger:   logger.With(zap.String("handler", "chat")),
	}
}

// HandleChat 处理问答请求
// @Summary 旅行问答
// @Description 混合检索并生成答案
// @Tags 问答
// @Accept json
// @Produce json
// @Param request body api.ChatRequest true "问答请求"
// @Success 200 {object} rag.Result "问答结果"
// @Failure 400 {object} Response "无效请求"
// @Failure 502 {object} Response "生成失败"
// @Failure 504 {object} Response "超时"
// @Router /api/v1/chat [post]
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.ChatRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if err := req.Validate(); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	ctx := r.Context()
	if m := strings.TrimSpace(req.Model); m != "" {
		ctx = ctxkeys.WithLLMModel(ctx, m)
	}

	start := time.Now()
	res, err := h.pipeline.Answer(ctx, strings.TrimSpace(req.Query), rag.WithVerbose(req.Verbose))
	duration := time.Since(start)

	if err != nil {
		h.handlePipelineError(w, r, err, duration)
		return
	}

	h.logger.Info("chat answered",
		zap.String("result_id", res.ID),
		zap.String("intent", string(res.Intent)),
		zap.Int("matches", len(res.Matches)),
		zap.Int("facts", len(res.Facts)),
		zap.Int("degraded", len(res.Degraded)),
		zap.Duration("duration", duration),
	)

	WriteSuccess(w, res)
}

func (h *ChatHandler) handlePipelineError(w http.ResponseWriter, r *http.Request, err error, duration time.Duration) {
	// 客户端已断开，不再写响应
	if errors.Is(r.Context().Err(), context.Canceled) {
		h.logger.Info("client closed request", zap.Duration("duration", duration))
		return
	}

	apiErr := toAPIError(err)
	if errors.Is(err, context.DeadlineExceeded) {
		apiErr = types.NewError(types.ErrTimeout, apiErr.Message).
			WithCause(err).
			WithStage(apiErr.Stage).
			WithRetryable(true)
	}
	WriteError(w, apiErr, h.logger.With(zap.Duration("duration", duration)))
}
