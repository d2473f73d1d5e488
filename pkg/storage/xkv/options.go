package xkv

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/omeyang/xrlock/pkg/observability/xlog"
	"github.com/omeyang/xrlock/pkg/observability/xmetrics"
	"github.com/omeyang/xrlock/pkg/resilience/xbreaker"
)

const componentName = "xkv"

// 原语名，用于日志、指标与 StoreError.Op
const (
	opGet              = "get"
	opSet              = "set"
	opSetIfAbsent      = "set_if_absent"
	opExpire           = "expire"
	opDelete           = "delete"
	opCompareAndDelete = "compare_and_delete"
	opHealth           = "health"
)

type options struct {
	backend  string
	logger   xlog.Logger
	twoStep  bool
	marker   string
	breaker  *xbreaker.Breaker
	observer xmetrics.Observer
}

// Option 驱动配置选项
type Option func(*options)

func defaultOptions(backend string) *options {
	return &options{
		backend:  backend,
		marker:   DefaultMarker,
		observer: xmetrics.NoopObserver{},
	}
}

func applyOptions(backend string, opts []Option) *options {
	o := defaultOptions(backend)
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.logger == nil {
		o.logger = xlog.Default()
	}
	o.logger = o.logger.With(xlog.Component(componentName), slog.String(xmetrics.AttrBackend, backend))
	return o
}

// WithLogger 设置日志记录器，默认使用 xlog.Default()
func WithLogger(l xlog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTwoStepCreate 创建与设置过期分两步执行
//
// 开启后 Capabilities().AtomicCreateWithTTL 为 false，
// 两步之间进程崩溃会留下永不过期的 key。
func WithTwoStepCreate(enable bool) Option {
	return func(o *options) {
		o.twoStep = enable
	}
}

// WithMarker 设置 SetIfAbsent 写入的占位值，空值忽略
func WithMarker(marker string) Option {
	return func(o *options) {
		if marker != "" {
			o.marker = marker
		}
	}
}

// WithBreaker 所有存储调用经过熔断器，熔断打开时视为存储错误
func WithBreaker(b *xbreaker.Breaker) Option {
	return func(o *options) {
		o.breaker = b
	}
}

// WithObserver 设置观测器，每个原语一个跨度
func WithObserver(obs xmetrics.Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// call 在观测跨度与熔断器内执行一次存储调用，失败统一包装为 *StoreError。
// fn 只应返回传输类错误，"不存在"/"未创建"需在 fn 内部转为正常结果。
func (o *options) call(ctx context.Context, op, key string, fn func(ctx context.Context) error) error {
	ctx, span := xmetrics.Start(ctx, o.observer, xmetrics.SpanOptions{
		Component: componentName,
		Operation: op,
		Kind:      xmetrics.KindClient,
		Attrs: []xmetrics.Attr{
			xmetrics.String(xmetrics.AttrKey, key),
			xmetrics.String(xmetrics.AttrBackend, o.backend),
		},
	})

	var err error
	if o.breaker != nil {
		err = o.breaker.Do(ctx, func() error { return fn(ctx) })
	} else {
		err = fn(ctx)
	}
	span.End(xmetrics.Result{Err: err})

	if err != nil {
		return &StoreError{Op: op, Key: key, Err: err}
	}
	return nil
}

// logFailure 记录存储错误事件；ctx 取消属于调用方行为，降为 Debug。
func (o *options) logFailure(ctx context.Context, op, key string, err error) {
	attrs := []slog.Attr{xlog.Operation(op), xlog.Key(key), xlog.Err(err)}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		o.logger.Debug(ctx, "store call interrupted", attrs...)
		return
	}
	o.logger.Warn(ctx, "store call failed", attrs...)
}

func (o *options) logDebug(ctx context.Context, op, key string, result bool, ttl time.Duration) {
	o.logger.Debug(ctx, "store call",
		xlog.Operation(op), xlog.Key(key),
		slog.Bool("result", result), slog.Duration("ttl", ttl))
}

func validateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return nil
}
