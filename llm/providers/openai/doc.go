// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
Package openai 实现 OpenAI 兼容的 Chat Completions 客户端。

Provider 只提供同步 Completion，用于生成最终回答和节点摘要。
HTTP 错误经 providers.MapHTTPError 映射为带 Retryable 标记的 types.Error。
*/
package openai
