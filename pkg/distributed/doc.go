// Package distributed 提供分布式协调相关的子包。
//
// 子包列表：
//   - xlock: 基于共享 KV 存储的协作式分布式锁
//
// 设计原则：
//   - 存储的原子 set-if-absent 是唯一的同步点
//   - 锁记录总是带 TTL，持有者崩溃后自动释放
package distributed
