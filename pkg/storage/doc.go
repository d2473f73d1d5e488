// Package storage 提供数据存储相关的子包。
//
// 子包列表：
//   - xkv: 共享 KV 存储驱动，支持 Redis 和 etcd 后端
//
// 设计原则：
//   - 传输失败在驱动边界收敛，布尔操作只记录日志
//   - 内置可观测性（指标、追踪）与熔断
package storage
