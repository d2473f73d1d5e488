// Package xbreaker 基于 [sony/gobreaker/v2] 的熔断器。
//
// 熔断判定由 TripPolicy 抽象，默认连续失败 5 次熔断；
// 成功判定由 SuccessPolicy 抽象，默认 err == nil 即成功。
//
//	b := xbreaker.NewBreaker("redis",
//	    xbreaker.WithTripPolicy(xbreaker.NewConsecutiveFailures(3)),
//	    xbreaker.WithTimeout(10*time.Second),
//	)
//	err := b.Do(ctx, func() error { return client.Ping(ctx).Err() })
//	if xbreaker.IsOpen(err) {
//	    // 快速失败
//	}
//
// 熔断器产生的错误被包装为 [BreakerError]，其 Retryable() 为 false，
// 与 xretry 组合时不会被重试。
//
// [sony/gobreaker/v2]: https://github.com/sony/gobreaker
package xbreaker
