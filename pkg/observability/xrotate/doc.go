// Package xrotate 为 xlog 提供日志文件轮转输出。
//
// Rotator 是 io.WriteCloser 的超集，额外提供 Rotate 手动触发轮转。
// 当前唯一实现 [NewLumberjack] 基于 lumberjack v2 按文件大小轮转。
//
// xrlockctl 通过配置项 log.file 启用文件输出，未配置时日志写到 stderr。
package xrotate
