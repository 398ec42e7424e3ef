// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 提供基于 Redis 的缓存管理能力，供嵌入缓存的 Redis 后端使用。

# 核心类型

  - Manager：缓存管理器，持有 Redis 客户端，提供 GetBytes/SetBytes/Ping
    等操作，并在后台定时健康检查。
  - Config：缓存配置，ConfigFrom 可由全局 config.RedisConfig 构造。
  - Stats：由 INFO 与 DBSIZE 汇总的统计信息，travelrag health 会打印。

# 错误语义

键不存在时返回 ErrCacheMiss，可用 IsCacheMiss 判断；关闭后的调用返回
ErrManagerClosed。DefaultTTL 为 0 时写入的值永不过期。
*/
package cache
