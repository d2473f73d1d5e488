// Package xmetrics 提供锁与存储操作的统一观测接口。
//
// 一次观测跨度同时产生一个 trace span 与两个指标：
//
//   - xrlock.operation.total：操作计数（component / operation / status）
//   - xrlock.operation.duration：操作耗时，单位秒
//
// 用法：
//
//	ctx, span := xmetrics.Start(ctx, observer, xmetrics.SpanOptions{
//		Component: "xlock",
//		Operation: "acquire",
//		Kind:      xmetrics.KindClient,
//	})
//	defer func() { span.End(xmetrics.Result{Err: err}) }()
//
// observer 为 nil 时退化为空实现，调用方无需判空。
package xmetrics
