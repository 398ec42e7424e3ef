// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 database 提供基于 GORM 的数据库连接与连接池管理，
为嵌入缓存的 SQL 后端与 SQL 图谱后端提供存储。

# 核心类型

  - Open：按驱动（postgres / sqlite）打开 GORM 连接，sqlite 使用纯 Go 驱动。
  - PoolManager：连接池管理器，持有 GORM DB 实例与底层 sql.DB，
    提供 DB()、Ping()、Stats()、Close() 等生命周期方法。
  - PoolConfig：连接池配置，PoolConfigFrom 由 config.DatabaseConfig 构造。

后台健康检查定时 PingContext 探活；OnStats 注册的回调在每次探活成功后
收到 sql.DBStats，服务端用它上报连接数指标。
*/
package database
