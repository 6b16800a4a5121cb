// Package config 提供 AgentInbox 的配置管理功能。
//
// 支持从默认值、YAML 文件和环境变量（AGENTINBOX_ 前缀）分层加载配置，
// 并在启动时统一校验。
package config
