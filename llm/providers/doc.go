// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 providers 提供各服务商 Provider 共享的 HTTP 错误处理：

  - MapHTTPError — 将 HTTP 状态码映射为语义化的 types.Error（含 Retryable 标记）
  - NetworkError — 传输层失败统一视为可重试的上游错误
  - ReadErrorMessage — 解析 OpenAI 风格的 {"error":{"message":...}} 响应体

聊天实现位于子包 openai，嵌入实现位于 llm/embedding。
*/
package providers
