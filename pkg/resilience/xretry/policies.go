package xretry

import "context"

// RetryPolicy 决定失败后是否再试
//
// MaxAttempts 含首次尝试，是硬上限；ShouldRetry 可提前终止，attempt 从 1 开始。
type RetryPolicy interface {
	MaxAttempts() int
	ShouldRetry(ctx context.Context, attempt int, err error) bool
}

var (
	_ RetryPolicy = (*FixedRetryPolicy)(nil)
	_ RetryPolicy = (*NeverRetryPolicy)(nil)
)

// FixedRetryPolicy 固定次数重试策略
type FixedRetryPolicy struct {
	maxAttempts int
}

// NewFixedRetry 创建固定次数重试策略，maxAttempts 最小为 1
func NewFixedRetry(maxAttempts int) *FixedRetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &FixedRetryPolicy{maxAttempts: maxAttempts}
}

// MaxAttempts 返回最大尝试次数
func (p *FixedRetryPolicy) MaxAttempts() int {
	return p.maxAttempts
}

// ShouldRetry ctx 结束、次数用尽或永久性错误时返回 false
func (p *FixedRetryPolicy) ShouldRetry(ctx context.Context, attempt int, err error) bool {
	return ctx.Err() == nil && attempt < p.maxAttempts && IsRetryable(err)
}

// NeverRetryPolicy 永不重试策略
type NeverRetryPolicy struct{}

// NewNeverRetry 创建永不重试策略
func NewNeverRetry() *NeverRetryPolicy {
	return &NeverRetryPolicy{}
}

// MaxAttempts 固定为 1
func (p *NeverRetryPolicy) MaxAttempts() int {
	return 1
}

// ShouldRetry 总是 false
func (p *NeverRetryPolicy) ShouldRetry(context.Context, int, error) bool {
	return false
}
