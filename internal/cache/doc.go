// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 提供基于 Redis 的缓存管理能力，以及线程执行状态缓存。

# 概述

本包封装 go-redis 客户端。Manager 负责连接生命周期管理，包括初始化、
健康检查与优雅关闭；StateCache 在其上缓存 threads.getState 的结果，
供 inbox 的二级中断提取路径复用。

# 核心类型

  - Manager：持有 Redis 连接，提供 Load/Store（JSON 编解码）、
    Delete 与 Ping，可选 TLS 与后台探活。
  - Config：地址、密码、连接池、默认 TTL、拨号超时与探活间隔。
  - StateCache：按 thread_id + updated_at 作键缓存线程状态，
    远程线程一旦更新即自然失效。

# 错误语义

提供 ErrCacheMiss 哨兵错误与 IsCacheMiss 判断函数；关闭后的操作返回 ErrClosed。
*/
package cache
