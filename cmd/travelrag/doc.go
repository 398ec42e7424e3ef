// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 TravelRAG 可执行程序入口。

# 概述

cmd/travelrag 组装 rag 管道并对外提供 HTTP API、交互式问答、
依赖健康检查和版本查询。配置来自 YAML 文件与 TRAVELRAG_ 前缀环境变量，
日志使用 zap，指标通过独立端口以 Prometheus 格式暴露。

# 核心类型

  - Server      — 管理 HTTP 与 Metrics 两个端口、管道连接及优雅关闭
  - Middleware  — HTTP 中间件函数签名 func(http.Handler) http.Handler

# 主要能力

  - 子命令：serve、ask（stdin 循环，exit/quit 退出）、health、version
  - 路由：POST /api/v1/chat，/health、/healthz、/ready、/readyz、/version
  - 中间件链：Recovery、RequestID、SecurityHeaders、RequestLogger、
    OTelTracing、MetricsMiddleware、RateLimiter（基于 IP）
  - 就绪检查：redis、database、graph、pinecone，按实际打开的连接注册
  - 优雅关闭：信号监听 → 关闭 HTTP → 关闭 Metrics → 释放连接 → 刷新遥测
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
