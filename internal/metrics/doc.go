// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的 inbox 指标采集能力，覆盖
列表拉取、线程分类、缓存与提交四个维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
自动注册机制，避免手动管理 Registry。所有指标按 namespace 隔离。
nil *Collector 可以直接使用，记录方法均为空操作。

# 主要能力

  - 拉取指标：按 filter/outcome 统计拉取次数与耗时，
    outcome 取值 committed、stale、failed、invalid。
  - 分类指标：按 kind 统计 interrupted、invalid_schema、generic 等。
  - 缓存指标：线程状态缓存的命中与未命中计数。
  - 提交指标：submit/ignore/resolve 的结果与耗时、状态机转换、流式事件计数。
*/
package metrics
