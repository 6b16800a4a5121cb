// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 agentinbox 测试的共享工具和辅助函数。

# 概述

testutil 包为整个项目的单元测试提供统一的辅助能力，
避免各包重复实现相似的测试基础设施。

# 核心能力

  - 上下文辅助: TestContext，自动注册 Cleanup
  - 异步断言: AssertEventuallyTrue，基于 testify 的超时轮询
  - 流式辅助: SendEventsToChannel，用于 runs.stream 事件测试

# 子包

  - testutil/mocks: MockService，远程执行服务的模拟实现，
    支持 Builder 模式、按操作覆盖行为与调用记录
  - testutil/fixtures: 测试数据工厂，提供中断负载、线程、线程状态
    与流式事件样例

# 使用示例

	ctx := testutil.TestContext(t)
	svc := mocks.NewMockService().WithThreads(
		fixtures.InterruptedThread("t1", 0, fixtures.InterruptsPayload(fixtures.ApproveInterrupt())),
	)
*/
package testutil
