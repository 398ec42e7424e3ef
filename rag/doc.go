// Copyright 2025-2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

Package rag 实现旅行问答的混合检索增强生成管道。

一次请求依次经过：意图分类、查询嵌入（带缓存）、向量检索、
知识图谱邻居扩展、图谱加权重排、上下文组装与答案生成。
检索类阶段失败时降级继续，只有生成失败才会让请求失败。

# 核心接口/类型

  - Pipeline — 串联全部阶段，Answer 返回 Result
  - IntentClassifier — 有序关键词表意图分类
  - EmbeddingCache — 嵌入缓存（Memory / Redis / SQL）
  - CachedEmbedder — 缓存优先的查询嵌入
  - VectorIndex — 向量索引接口，PineconeStore 为 REST 实现
  - VectorRetriever — 嵌入 + 检索，可选重试
  - GraphStore — 图谱查询接口（Neo4jGraphStore / SQLGraphStore）
  - GraphEnricher — 通过 worker 池并发扩展邻居，单个失败互不影响
  - Reranker — 被图谱事实引用的匹配加固定分
  - ContextBuilder — 按字符预算组装提示上下文

# 配置

NewPipelineFromConfig 从 config.Config 一键创建管道及其依赖连接，
返回的 Resources 由调用方负责关闭。
*/
package rag
