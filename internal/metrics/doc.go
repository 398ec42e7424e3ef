// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖 HTTP、
问答管道、外部服务、嵌入缓存与数据库连接。

# 核心类型

  - Collector：指标收集器，使用 promauto 注册到默认 Registry，
    所有指标按 namespace 隔离。
  - Recorder：管道组件依赖的最小接口；Collector 实现它，
    Nop 用于测试与未启用指标的场景。

# 主要指标

  - pipeline_stage_duration_seconds：按 stage 分组的阶段耗时。
  - answers_total：按 intent/status（ok、degraded、failed）分组的问答计数。
  - provider_requests_total：嵌入、向量检索、图谱与生成的请求计数。
  - cache_hits_total / cache_misses_total：嵌入缓存命中情况。
*/
package metrics
