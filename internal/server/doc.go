// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 提供 HTTP 服务器生命周期管理，支持非阻塞启动、
优雅关闭与系统信号监听。API 服务与 /metrics 服务各持有一个 Manager。

# 核心类型

  - Manager：封装 http.Server 与 net.Listener，提供
    Start/Shutdown/WaitForShutdown/Errors 等方法。
  - Config：监听地址、读写超时、空闲超时、最大请求头大小与
    优雅关闭超时，ConfigFrom 由 config.ServerConfig 构造。

WaitForShutdown 监听 SIGINT/SIGTERM、调用方 context 与异步服务错误，
任一发生即触发优雅关闭。
*/
package server
