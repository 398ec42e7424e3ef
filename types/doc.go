// Copyright 2025-2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
Package types 提供 travelrag 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包。错误码与结构化错误定义于此，
供 rag、llm、config 与 api 共同使用，避免循环依赖。

# 错误体系

  - EMBEDDING_PROVIDER — 嵌入服务调用失败或返回维度不符
  - RETRIEVAL          — 向量索引查询失败（管道降级，不中止）
  - ENRICHMENT         — 单个实体的图谱查询失败（逐 ID 隔离）
  - GENERATION         — 生成调用失败（请求失败）
  - CONFIGURATION      — 启动时缺少凭据或端点

常用工具：NewError / Wrap / AsError / IsCode / IsRetryable / GetErrorCode。
*/
package types
