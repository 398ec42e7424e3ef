// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 embedding 提供统一的文本嵌入（Embedding）接口与 OpenAI 兼容实现，
用于把查询文本转换为与向量索引同维度的向量。

# 核心接口

  - Provider：统一嵌入接口，定义 Embed、EmbedQuery、Dimensions 等方法。
  - EmbeddingRequest / EmbeddingResponse：标准化的请求与响应模型。
  - BaseProvider：公共基类，封装 HTTP 请求、错误映射与分批辅助方法。

# 错误语义

HTTP 错误经 providers.MapHTTPError 映射为 types.Error；5xx、429 与网络错误
标记为可重试。本包不做重试，由调用方按策略处理。

# 使用方式

	cfg := embedding.DefaultOpenAIConfig()
	cfg.APIKey = "sk-..."
	provider := embedding.NewOpenAIProvider(cfg)

	vec, err := provider.EmbedQuery(ctx, "best pho in Hanoi")
*/
package embedding
