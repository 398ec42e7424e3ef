// Package api 定义 travelrag HTTP API 的请求与响应类型。
//
// # API Overview
//
// travelrag 提供以下 RESTful 端点：
//   - POST /api/v1/chat — 旅行问答，返回答案、摘要、匹配与图谱事实
//   - GET /health, /healthz — 存活探针
//   - GET /ready — 就绪探针，检查 Redis、数据库与 Neo4j
//   - GET /version — 版本信息
//
// Prometheus 指标由独立端口的 /metrics 提供。
//
// # Base URL
//
// The default base URL for the API is:
//
//	http://localhost:8080
//
// # Request Tracing
//
// 每个响应都带 X-Request-ID 头；客户端提供时原样沿用。
package api
