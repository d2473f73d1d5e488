package xlock

import (
	"fmt"
	"time"

	"github.com/omeyang/xrlock/pkg/storage/xkv"
)

// Config 协调器配置，支持 koanf 反序列化。
//
// 推荐从 DefaultConfig() 开始按需覆盖，OwnerToken 的安全默认值为 true。
type Config struct {
	// TTL 锁存活时间，必须为正
	TTL time.Duration `koanf:"ttl"`

	// Namespace 锁 key 前缀，空表示无前缀
	Namespace string `koanf:"namespace"`

	// OwnerToken 以随机令牌作为锁记录的值
	OwnerToken bool `koanf:"ownerToken"`

	// TwoStep 存储以 SETNX + PEXPIRE 两步创建锁记录
	TwoStep bool `koanf:"twoStep"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		TTL:        DefaultLockTTL,
		OwnerToken: true,
	}
}

// Validate 检查配置
func (c Config) Validate() error {
	if c.TTL <= 0 {
		return fmt.Errorf("%w: ttl=%s", ErrInvalidTTL, c.TTL)
	}
	return nil
}

// Options 转换为协调器选项
func (c Config) Options() []Option {
	return []Option{
		WithTTL(c.TTL),
		WithNamespace(c.Namespace),
		WithOwnerToken(c.OwnerToken),
	}
}

// StoreOptions 转换为存储驱动选项
func (c Config) StoreOptions() []xkv.Option {
	return []xkv.Option{xkv.WithTwoStepCreate(c.TwoStep)}
}
