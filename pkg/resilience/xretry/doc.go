// Package xretry 提供重试策略与退避策略，底层使用 [avast/retry-go/v5]。
//
// 接口驱动：
//   - RetryPolicy：是否继续重试
//   - BackoffPolicy：两次尝试之间等待多久
//
// 用法：
//
//	retryer := xretry.NewRetryer(
//	    xretry.WithRetryPolicy(xretry.NewFixedRetry(3)),
//	    xretry.WithBackoffPolicy(xretry.NewExponentialBackoff(xretry.WithInitialDelay(20*time.Millisecond))),
//	)
//	err := retryer.Do(ctx, func(ctx context.Context) error {
//	    return store.Delete(ctx, key)
//	})
//
// 错误分类：NewPermanentError 标记的错误立即停止重试，
// NewTemporaryError 标记的错误总是可重试，其余错误默认可重试。
//
// [avast/retry-go/v5]: https://github.com/avast/retry-go
package xretry
