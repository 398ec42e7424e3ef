package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/BaSui01/travelrag/api/handlers"
	"github.com/BaSui01/travelrag/config"
	"github.com/BaSui01/travelrag/internal/metrics"
	"github.com/BaSui01/travelrag/internal/server"
	"github.com/BaSui01/travelrag/internal/telemetry"
	"github.com/BaSui01/travelrag/rag"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// metricsNamespace Prometheus 指标命名空间
const metricsNamespace = "travelrag"

// =============================================================================
// 🖥️ Server
// =============================================================================

// Server 持有 HTTP 与 Metrics 两个端口以及管道依赖
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	httpManager    *server.Manager
	metricsManager *server.Manager

	healthHandler *handlers.HealthHandler
	chatHandler   *handlers.ChatHandler

	collector *metrics.Collector
	resources *rag.Resources
	otel      *telemetry.Providers

	rateLimiterCancel context.CancelFunc
}

// NewServer 创建服务器实例，Start 之前不会建立任何连接
func NewServer(cfg *config.Config, logger *zap.Logger, otelProviders *telemetry.Providers) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger,
		otel:   otelProviders,
	}
}

// Start 组装管道并启动两个服务器（非阻塞）
func (s *Server) Start(ctx context.Context) error {
	s.collector = metrics.NewCollector(metricsNamespace, s.logger)

	pipeline, res, err := rag.NewPipelineFromConfig(ctx, s.cfg, s.collector, s.logger)
	s.resources = res
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}

	if res.DBPool != nil {
		driver := s.cfg.Database.Driver
		res.DBPool.OnStats(func(st sql.DBStats) {
			s.collector.RecordDBConnections(driver, st.OpenConnections, st.Idle)
		})
	}

	s.healthHandler = handlers.NewHealthHandler(s.logger)
	registerChecks(s.healthHandler, res)
	s.chatHandler = handlers.NewChatHandler(pipeline, s.logger)

	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("All servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.String("graph_backend", s.cfg.Graph.Backend),
		zap.String("cache_backend", s.cfg.Cache.Backend),
	)
	return nil
}

// handler 构建路由与中间件链
func (s *Server) handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.healthHandler.HandleHealth)
	mux.HandleFunc("/healthz", s.healthHandler.HandleHealthz)
	mux.HandleFunc("/ready", s.healthHandler.HandleReady)
	mux.HandleFunc("/readyz", s.healthHandler.HandleReady)
	mux.HandleFunc("/version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))
	mux.HandleFunc("/api/v1/chat", s.chatHandler.HandleChat)

	return Chain(mux,
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		OTelTracing(),
		MetricsMiddleware(s.collector),
		RateLimiter(ctx, s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, s.logger),
	)
}

func (s *Server) startHTTPServer() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = cancel

	s.httpManager = server.NewManager(s.handler(ctx), server.ConfigFrom(s.cfg.Server, s.cfg.Server.HTTPPort), s.logger)
	if err := s.httpManager.Start(); err != nil {
		return err
	}
	s.logger.Info("HTTP server started", zap.String("addr", s.httpManager.Addr()))
	return nil
}

func (s *Server) startMetricsServer() error {
	if s.cfg.Server.MetricsPort <= 0 {
		s.logger.Info("Metrics server disabled")
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	s.metricsManager = server.NewManager(mux, server.ConfigFrom(s.cfg.Server, s.cfg.Server.MetricsPort), s.logger)
	if err := s.metricsManager.Start(); err != nil {
		return err
	}
	s.logger.Info("Metrics server started", zap.String("addr", s.metricsManager.Addr()))
	return nil
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// WaitForShutdown 等待信号或服务异常退出，然后关闭全部组件
func (s *Server) WaitForShutdown(ctx context.Context) {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown(ctx)
	}
	s.Shutdown()
}

// Shutdown 依次停止限流清理、HTTP、Metrics，最后释放连接与遥测
func (s *Server) Shutdown() {
	s.logger.Info("Starting graceful shutdown...")

	timeout := s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}
	if s.httpManager != nil && s.httpManager.IsRunning() {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}
	if s.metricsManager != nil && s.metricsManager.IsRunning() {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("Metrics server shutdown error", zap.Error(err))
		}
	}
	if err := s.resources.Close(ctx); err != nil {
		s.logger.Error("Resource close error", zap.Error(err))
	}
	if s.otel != nil {
		if err := s.otel.Shutdown(ctx); err != nil {
			s.logger.Error("Telemetry shutdown error", zap.Error(err))
		}
	}

	s.logger.Info("Graceful shutdown completed")
}

// registerChecks 按已打开的连接注册就绪检查
func registerChecks(h *handlers.HealthHandler, res *rag.Resources) {
	if res == nil {
		return
	}
	if res.Redis != nil {
		h.RegisterCheck(handlers.NewPingCheck("redis", res.Redis.Ping))
	}
	switch {
	case res.DBPool != nil:
		h.RegisterCheck(handlers.NewPingCheck("database", res.DBPool.Ping))
	case res.DB != nil:
		db := res.DB
		h.RegisterCheck(handlers.NewPingCheck("database", func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}))
	}
	if p, ok := res.Graph.(interface{ Ping(context.Context) error }); ok {
		h.RegisterCheck(handlers.NewPingCheck("graph", p.Ping))
	}
	if res.Index != nil {
		index := res.Index
		h.RegisterCheck(handlers.NewPingCheck("pinecone", func(ctx context.Context) error {
			_, err := index.Count(ctx)
			return err
		}))
	}
}
