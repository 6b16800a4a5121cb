// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 agentinbox 的全局共享错误类型。

# 概述

types 是最底层的公共包，不依赖任何内部包。interrupt、compose、
inbox、submission 与 langgraph 客户端都通过 Error / ErrorCode
表达失败，调用方据此决定是否提示用户。

# 错误分类

  - NETWORK_FAILURE    : 远程调用失败（可重试标记由客户端设置）
  - STREAM_ERROR       : resume 流中出现 error 事件
  - VALIDATION_FAILURE : 本地校验失败，未发出网络请求
  - STALE_REQUEST      : 被更新的 fetch epoch 取代
  - MISMATCHED_EDIT_SHAPE / NO_MATCHING_RESPONSE: 草稿更新误用
  - NO_RESPONSE_FOUND  : 所选提交类型没有对应草稿
  - INVALID_ASSISTANT  : 远程服务拒绝 assistant id
*/
package types
