// Package xlock 在共享 KV 存储之上提供协作式的跨进程互斥锁。
//
// # 核心概念
//
//   - Tag：资源类别，来自可扩展的目录（见 RegisterTag）
//   - 锁 key：Tag 与有序参数以 ":" 拼接，如 "REDIS_KEY_TYPE_ONE:order-42"
//   - 锁记录：key 在存储中存在即表示被持有，值为占位字节或持有者令牌，带 TTL
//
// 获取锁时存储的原子 set-if-absent 是唯一同步点，Coordinator 本身不缓存锁状态，
// 可被多个 goroutine 并发使用。
//
// # 获取与释放
//
//	coord, _ := xlock.New(store, xlock.WithTTL(10*time.Second))
//	lock, err := coord.Acquire(ctx, xlock.TagTypeOne, "order-42")
//	if xlock.IsContention(err) {
//	    // 他人持有，自行决定退避或放弃
//	}
//	defer lock.Release(ctx)
//
// 锁没有续期机制，TTL 需要覆盖临界区的最长耗时；
// 持有者崩溃后锁在 TTL 到期时自动失效。
//
// # 失败关闭
//
// 创建结果不确定（传输失败、熔断打开）时一律返回 KindStore 错误，从不报告"已持有"。
// 该错误同时满足 IsContention，只关心是否拿到锁的调用方按竞争处理即可。
// 存储不支持原子创建带 TTL 时（两步模式），设置 TTL 失败会补偿删除刚创建的 key，
// 补偿本身失败则有限次重试并以 Error 级别记录。
//
// # 持有者令牌
//
// 默认开启：锁记录的值为随机令牌，Lock.Release 只删除仍属于自己的 key。
// 按 Tag 释放的 Coordinator.Release 保持无条件删除。
package xlock
