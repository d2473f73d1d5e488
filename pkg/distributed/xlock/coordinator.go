package xlock

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/omeyang/xrlock/pkg/observability/xlog"
	"github.com/omeyang/xrlock/pkg/observability/xmetrics"
	"github.com/omeyang/xrlock/pkg/resilience/xretry"
	"github.com/omeyang/xrlock/pkg/storage/xkv"
)

const componentName = "xlock"

const (
	opAcquire = "acquire"
	opRelease = "release"
)

// cleanupTimeout 补偿与清理使用独立超时，不受调用方 ctx 取消影响
const cleanupTimeout = 5 * time.Second

// Coordinator 分布式锁协调器
//
// 只持有不可变配置与并发安全的 Store，可被多个 goroutine 共享。
type Coordinator struct {
	store  xkv.Store
	opts   *options
	keys   KeyBuilder
	logger xlog.Logger
}

// New 创建协调器。Store 的生命周期由调用方管理。
func New(store xkv.Store, opts ...Option) (*Coordinator, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	logger := o.logger
	if logger == nil {
		logger = xlog.Default()
	}
	return &Coordinator{
		store:  store,
		opts:   o,
		keys:   KeyBuilder{Namespace: o.namespace},
		logger: logger.With(xlog.Component(componentName)),
	}, nil
}

// TTL 返回配置的锁存活时间
func (c *Coordinator) TTL() time.Duration { return c.opts.ttl }

// Key 返回 tag 与参数对应的完整锁 key（含命名空间）
func (c *Coordinator) Key(tag Tag, params ...string) string {
	return c.keys.Build(tag, params...)
}

// Acquire 尝试获取锁，不等待
//
// 获取失败时 IsContention 为 true。需要诊断时用 KindOf 区分：KindContention 表示他人持有；
// KindStore 表示存储失败或结果不确定，此时一定未持有锁，同样满足 IsContention；
// KindInvalidTTL 表示配置的 TTL <= 0，没有访问存储。
func (c *Coordinator) Acquire(ctx context.Context, tag Tag, params ...string) (*Lock, error) {
	if c.opts.ttl <= 0 {
		return nil, &Error{Kind: KindInvalidTTL}
	}
	if tag == "" {
		return nil, &Error{Kind: KindInvalidKey}
	}
	return c.acquire(ctx, c.keys.Build(tag, params...))
}

// AcquireDefault 在 DefaultTag 下获取锁，等价于 Acquire(ctx, DefaultTag, params...)
func (c *Coordinator) AcquireDefault(ctx context.Context, params ...string) (*Lock, error) {
	return c.Acquire(ctx, DefaultTag, params...)
}

// AcquireKey 以完整 key 获取锁，不再拼接命名空间与 Tag
func (c *Coordinator) AcquireKey(ctx context.Context, key string) (*Lock, error) {
	if c.opts.ttl <= 0 {
		return nil, &Error{Kind: KindInvalidTTL, Key: key}
	}
	if key == "" {
		return nil, &Error{Kind: KindInvalidKey}
	}
	return c.acquire(ctx, key)
}

func (c *Coordinator) acquire(ctx context.Context, key string) (*Lock, error) {
	ttl := c.opts.ttl
	ctx, span := xmetrics.Start(ctx, c.opts.observer, xmetrics.SpanOptions{
		Component: componentName,
		Operation: opAcquire,
		Kind:      xmetrics.KindInternal,
		Attrs:     []xmetrics.Attr{xmetrics.String(xmetrics.AttrKey, key), xmetrics.TTL(ttl)},
	})

	lock, err := c.doAcquire(ctx, key, ttl)

	result := xmetrics.Result{Err: err}
	if KindOf(err) == KindContention {
		result = xmetrics.Result{Status: xmetrics.StatusContended}
	}
	span.End(result)
	return lock, err
}

func (c *Coordinator) doAcquire(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	var token string
	if c.opts.ownerToken {
		token = c.opts.tokenFunc()
	}
	c.logger.Debug(ctx, "acquire lock", xlog.Key(key), slog.Duration("ttl", ttl))

	var (
		created bool
		err     error
	)
	if token != "" {
		created, err = c.store.SetIfAbsentValue(ctx, key, token, ttl)
	} else {
		created, err = c.store.SetIfAbsent(ctx, key, ttl)
	}

	if err != nil {
		// 创建可能已落地：只删除写着自己令牌的记录
		if token != "" {
			c.cleanupOwn(ctx, key, token)
		}
		c.logger.Warn(ctx, "acquire lock failed", xlog.Key(key), xlog.Err(err))
		return nil, acquireFailure(key, err)
	}
	if !created {
		c.logger.Debug(ctx, "lock contended", xlog.Key(key))
		return nil, &Error{Kind: KindContention, Key: key}
	}

	if !c.store.Capabilities().AtomicCreateWithTTL && !c.store.Expire(ctx, key, ttl) {
		return nil, c.compensate(ctx, key, token)
	}

	c.logger.Debug(ctx, "lock acquired", xlog.Key(key))
	return &Lock{c: c, key: key, token: token, ttl: ttl}, nil
}

// compensate 删除没有 TTL 的 key，失败时有限次重试
func (c *Coordinator) compensate(ctx context.Context, key, token string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	err := c.opts.compensation.Do(ctx, func(ctx context.Context) error {
		if token != "" {
			_, err := c.store.CompareAndDelete(ctx, key, token)
			return err
		}
		if c.store.Delete(ctx, key) {
			return nil
		}
		// Expire 失败可能正是因为 key 已消失
		if _, exists := c.store.Get(ctx, key); exists {
			return errNothingDeleted
		}
		return nil
	})
	if err != nil {
		c.logger.Error(ctx, "lock key left without ttl", xlog.Key(key), xlog.Err(err))
		return acquireFailure(key, errors.Join(errExpireFailed, err))
	}

	c.logger.Warn(ctx, "set lock ttl failed, key removed", xlog.Key(key))
	return acquireFailure(key, errExpireFailed)
}

// cleanupOwn 尽力删除令牌匹配的记录，只尝试一次
func (c *Coordinator) cleanupOwn(ctx context.Context, key, token string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if removed, err := c.store.CompareAndDelete(ctx, key, token); err != nil {
		c.logger.Debug(ctx, "cleanup after failed acquire", xlog.Key(key), xlog.Err(err))
	} else if removed {
		c.logger.Info(ctx, "removed lock created by failed acquire", xlog.Key(key))
	}
}

// Release 无条件删除 tag 与参数对应的锁
//
// 不校验持有者，重复释放无副作用。存储失败只记录日志，不返回错误。
func (c *Coordinator) Release(ctx context.Context, tag Tag, params ...string) error {
	if tag == "" {
		return &Error{Kind: KindInvalidKey}
	}
	return c.ReleaseKey(ctx, c.keys.Build(tag, params...))
}

// ReleaseDefault 无条件释放 DefaultTag 下的锁
func (c *Coordinator) ReleaseDefault(ctx context.Context, params ...string) error {
	return c.Release(ctx, DefaultTag, params...)
}

// ReleaseKey 以完整 key 无条件删除锁
func (c *Coordinator) ReleaseKey(ctx context.Context, key string) error {
	if key == "" {
		return &Error{Kind: KindInvalidKey}
	}
	ctx, span := c.startRelease(ctx, key)
	removed := c.store.Delete(ctx, key)
	span.End(xmetrics.Result{})
	c.logger.Debug(ctx, "release lock", xlog.Key(key), slog.Bool("removed", removed))
	return nil
}

func (c *Coordinator) startRelease(ctx context.Context, key string) (context.Context, xmetrics.Span) {
	return xmetrics.Start(ctx, c.opts.observer, xmetrics.SpanOptions{
		Component: componentName,
		Operation: opRelease,
		Kind:      xmetrics.KindInternal,
		Attrs:     []xmetrics.Attr{xmetrics.String(xmetrics.AttrKey, key)},
	})
}

// TryAcquireRetry 竞争时按 r 的策略重试 Acquire
//
// 只有 KindContention 会重试，存储错误与参数错误立即返回。r 为 nil 时使用 xretry 默认策略。
func (c *Coordinator) TryAcquireRetry(ctx context.Context, r *xretry.Retryer, tag Tag, params ...string) (*Lock, error) {
	if r == nil {
		r = xretry.NewRetryer()
	}
	return xretry.DoWithResult(ctx, r, func(ctx context.Context) (*Lock, error) {
		return c.Acquire(ctx, tag, params...)
	})
}

// WithLock 获取锁后执行 fn，结束后释放
//
// 获取失败时不执行 fn。fn 的错误与释放错误合并返回。
func (c *Coordinator) WithLock(ctx context.Context, tag Tag, params []string, fn func(ctx context.Context) error) error {
	lock, err := c.Acquire(ctx, tag, params...)
	if err != nil {
		return err
	}
	fnErr := fn(ctx)
	relErr := lock.Release(context.WithoutCancel(ctx))
	return errors.Join(fnErr, relErr)
}

// Lock 一次成功获取的锁
type Lock struct {
	c        *Coordinator
	key      string
	token    string
	ttl      time.Duration
	released atomic.Bool
}

// Key 返回完整的锁 key
func (l *Lock) Key() string { return l.key }

// Token 返回持有者令牌，未开启令牌模式时为空
func (l *Lock) Token() string { return l.token }

// TTL 返回获取时使用的存活时间
func (l *Lock) TTL() time.Duration { return l.ttl }

// Release 释放锁，同一个 Lock 只有第一次调用访问存储
//
// 令牌模式下只删除值仍为自己令牌的记录；记录已过期或已被他人获取时返回 KindNotHeld。
// 存储失败只记录日志，返回 nil。
func (l *Lock) Release(ctx context.Context) error {
	if l == nil || l.c == nil {
		return &Error{Kind: KindNotHeld}
	}
	if l.released.Swap(true) {
		return nil
	}
	if l.token == "" {
		return l.c.ReleaseKey(ctx, l.key)
	}

	c := l.c
	ctx, span := c.startRelease(ctx, l.key)
	removed, err := c.store.CompareAndDelete(ctx, l.key, l.token)
	if err != nil {
		span.End(xmetrics.Result{Err: err})
		c.logger.Warn(ctx, "release lock failed", xlog.Key(l.key), xlog.Err(err))
		return nil
	}
	if !removed {
		notHeld := &Error{Kind: KindNotHeld, Key: l.key}
		span.End(xmetrics.Result{Err: notHeld})
		c.logger.Warn(ctx, "lock expired or taken before release", xlog.Key(l.key))
		return notHeld
	}
	span.End(xmetrics.Result{})
	c.logger.Debug(ctx, "release lock", xlog.Key(l.key), slog.Bool("removed", true))
	return nil
}
