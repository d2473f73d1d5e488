package xlock

import (
	"time"

	"github.com/google/uuid"

	"github.com/omeyang/xrlock/pkg/observability/xlog"
	"github.com/omeyang/xrlock/pkg/observability/xmetrics"
	"github.com/omeyang/xrlock/pkg/resilience/xretry"
)

// DefaultLockTTL 默认锁存活时间
const DefaultLockTTL = 30 * time.Second

// 补偿删除默认重试参数
const (
	defaultCompensationAttempts = 3
	defaultCompensationDelay    = 20 * time.Millisecond
	defaultCompensationMaxDelay = 200 * time.Millisecond
)

type options struct {
	ttl          time.Duration
	namespace    string
	ownerToken   bool
	tokenFunc    func() string
	logger       xlog.Logger
	observer     xmetrics.Observer
	compensation *xretry.Retryer
}

// Option 协调器配置选项
type Option func(*options)

func defaultOptions() *options {
	return &options{
		ttl:        DefaultLockTTL,
		ownerToken: true,
		tokenFunc:  uuid.NewString,
		observer:   xmetrics.NoopObserver{},
		compensation: xretry.NewRetryer(
			xretry.WithRetryPolicy(xretry.NewFixedRetry(defaultCompensationAttempts)),
			xretry.WithBackoffPolicy(xretry.NewExponentialBackoff(
				xretry.WithInitialDelay(defaultCompensationDelay),
				xretry.WithMaxDelay(defaultCompensationMaxDelay),
			)),
		),
	}
}

// WithTTL 设置锁存活时间，默认 30 秒。
// 不做修正：d <= 0 时 Acquire 直接失败且不访问存储。
func WithTTL(d time.Duration) Option {
	return func(o *options) {
		o.ttl = d
	}
}

// WithNamespace 为所有锁 key 加 "namespace:" 前缀，默认无前缀
func WithNamespace(ns string) Option {
	return func(o *options) {
		o.namespace = ns
	}
}

// WithOwnerToken 是否以随机令牌作为锁记录的值，默认开启。
// 关闭后写入单字节占位值，Lock.Release 退化为无条件删除。
func WithOwnerToken(enable bool) Option {
	return func(o *options) {
		o.ownerToken = enable
	}
}

// WithTokenFunc 自定义令牌生成函数，默认 uuid.NewString
func WithTokenFunc(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.tokenFunc = fn
		}
	}
}

// WithLogger 设置日志记录器，默认 xlog.Default()
func WithLogger(l xlog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver 设置观测器，acquire/release 各一个跨度
func WithObserver(obs xmetrics.Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithCompensationRetry 设置补偿删除的重试器。
// 默认最多 3 次，指数退避从 20ms 开始。
func WithCompensationRetry(r *xretry.Retryer) Option {
	return func(o *options) {
		if r != nil {
			o.compensation = r
		}
	}
}
