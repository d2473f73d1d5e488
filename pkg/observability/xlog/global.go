package xlog

import "sync/atomic"

// 全局 Logger：xkv、xlock 等库未注入 Logger 时回退到这里。
var fallback atomic.Pointer[LoggerWithLevel]

// Default 返回全局 Logger，首次调用时创建（stderr、Info 级别、text 格式）
func Default() LoggerWithLevel {
	for {
		if p := fallback.Load(); p != nil {
			return *p
		}
		logger, _, _ := New().Build() //nolint:errcheck // 默认参数不会失败
		if fallback.CompareAndSwap(nil, &logger) {
			return logger
		}
	}
}

// SetDefault 替换全局 Logger，nil 被忽略
func SetDefault(l LoggerWithLevel) {
	if l != nil {
		fallback.Store(&l)
	}
}

// ResetDefault 恢复为未初始化状态，下次 Default 重新创建（仅用于测试）
func ResetDefault() {
	fallback.Store(nil)
}
