package xkv

import (
	"context"
	"time"
)

// DefaultMarker 锁记录的默认占位值（单字节）
const DefaultMarker = "\x00"

// Capabilities 描述后端能力
type Capabilities struct {
	// AtomicCreateWithTTL 为 true 时 SetIfAbsent 在同一命令内绑定 TTL；
	// 为 false 时调用方必须随后调用 Expire，并在失败时补偿删除。
	AtomicCreateWithTTL bool
}

// Store 共享 KV 存储驱动
//
// 实现必须是并发安全的。
type Store interface {
	// Get 读取 key，不存在或传输失败时 ok 为 false。
	Get(ctx context.Context, key string) (value string, ok bool)

	// Set 写入 key；ttl > 0 时同时设置过期时间，否则永不过期。
	Set(ctx context.Context, key, value string, ttl time.Duration) bool

	// SetIfAbsent 以占位值原子地创建 key，已存在时返回 (false, nil)。
	// 结果不确定（传输失败、熔断）时返回 *StoreError。
	SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// SetIfAbsentValue 与 SetIfAbsent 相同，但写入指定值。
	SetIfAbsentValue(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Expire 为已存在的 key 设置剩余存活时间，key 不存在或失败时返回 false。
	Expire(ctx context.Context, key string, ttl time.Duration) bool

	// Delete 无条件删除，只有真正删除了 key 才返回 true。
	Delete(ctx context.Context, key string) bool

	// CompareAndDelete 当前值等于 value 时原子删除。
	// 不匹配或不存在返回 (false, nil)。
	CompareAndDelete(ctx context.Context, key, value string) (bool, error)

	// Capabilities 返回后端能力。
	Capabilities() Capabilities

	// Health 检查后端连通性。
	Health(ctx context.Context) error

	// Close 关闭底层客户端，重复调用返回 ErrClosed。
	Close() error
}
