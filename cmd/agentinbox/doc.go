// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 AgentInbox 命令行程序入口。

# 概述

cmd/agentinbox 面向人工审核员：从 LangGraph 部署拉取被中断的线程，
展示中断请求与草稿响应，并提交 accept / edit / response / ignore
或将无法解析的线程 resolve 到结束节点。

# 主要能力

  - 子命令：list、show、submit、ignore、resolve、watch、version
  - 配置：YAML 文件 + AGENTINBOX_ 环境变量（见 config 包）
  - 可选 Redis 线程状态缓存，不可用时自动降级
  - watch 模式周期刷新列表并通过独立端口暴露 Prometheus /metrics
  - OpenTelemetry 链路追踪（telemetry.enabled）
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
