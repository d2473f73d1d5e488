package xlog

import (
	"context"
	"log/slog"
)

// Logger 日志接口
//
// 每个方法都要求 ctx，属性只接受 slog.Attr。锁与存储的日志统一携带 Key、Operation 等属性。
type Logger interface {
	Debug(ctx context.Context, msg string, attrs ...slog.Attr)
	Info(ctx context.Context, msg string, attrs ...slog.Attr)
	Warn(ctx context.Context, msg string, attrs ...slog.Attr)
	Error(ctx context.Context, msg string, attrs ...slog.Attr)

	// Stack 以 Error 级别记录，并附带当前 goroutine 堆栈
	Stack(ctx context.Context, msg string, attrs ...slog.Attr)

	// With 派生带固定属性的 Logger，与父级共享级别
	With(attrs ...slog.Attr) Logger

	WithGroup(name string) Logger
}

// Leveler 运行时级别控制
type Leveler interface {
	SetLevel(level Level)
	GetLevel() Level
	Enabled(ctx context.Context, level Level) bool
}

// LoggerWithLevel Build 与 Default 的返回类型
type LoggerWithLevel interface {
	Logger
	Leveler
}
