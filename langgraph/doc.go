// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package langgraph 是远程 LangGraph 部署的 HTTP/SSE 客户端。

# 概述

Client 只覆盖 inbox 需要的接口：threads.search / get / getState /
updateState，以及 runs.create 与 runs.stream。读操作按 internal/retry
的策略重试，写操作从不重试。

# 流式事件

StreamRun 返回 <-chan StreamEvent。SSE 帧按 event:/data: 行解析，空行结束
一帧；"end" 事件或 body 结束时通道关闭。传输中断会以带 Err 的事件结尾。

# 错误

所有失败都映射为 *types.Error：传输错误、429 与 5xx 为可重试的
NETWORK_FAILURE，提到 invalid assistant 的响应体映射为 INVALID_ASSISTANT。
*/
package langgraph
