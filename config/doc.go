// Package config 提供 travelrag 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → TRAVELRAG_ 前缀环境变量 → 常用无前缀变量
// （OPENAI_API_KEY、PINECONE_API_KEY、NEO4J_URI、NEO4J_USER、NEO4J_PASSWORD）
// 的顺序叠加。Validate 在启动阶段检查凭据与端点，失败时返回
// CONFIGURATION 错误码。
package config
