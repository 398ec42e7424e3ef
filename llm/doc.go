// Copyright 2025-2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
包 llm 提供生成服务的统一接入层。

# 概述

上层管道只依赖 [Provider] 接口（Completion + Name），具体实现位于
llm/providers/openai。嵌入服务位于 llm/embedding，重试策略位于 llm/retry。

错误统一为 types.Error：上游 HTTP 状态被映射为错误码与 Retryable 标记，
由调用方决定是否重试。
*/
package llm
