// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 管理 agentinbox watch 模式下的指标端点。

Manager 封装 net/http.Server，提供非阻塞启动、带超时的优雅关闭与
异步错误通道；MetricsHandler 挂载 Prometheus /metrics 与 /healthz。
*/
package server
