package xlock

import (
	"errors"
	"fmt"
	"strconv"
)

// Kind 锁错误类别
type Kind int

const (
	// KindUnknown 非本包产生的错误
	KindUnknown Kind = iota

	// KindContention key 已被他人持有，调用方自行决定重试或放弃
	KindContention

	// KindStore 存储失败或结果不确定，按未持有处理
	KindStore

	// KindInvalidTTL 配置的 TTL <= 0，未访问存储
	KindInvalidTTL

	// KindNotHeld 释放时锁已过期或已被他人获取
	KindNotHeld

	// KindInvalidKey tag 或 key 为空
	KindInvalidKey
)

func (k Kind) String() string {
	switch k {
	case KindUnknown:
		return "unknown"
	case KindContention:
		return "contention"
	case KindStore:
		return "store"
	case KindInvalidTTL:
		return "invalid_ttl"
	case KindNotHeld:
		return "not_held"
	case KindInvalidKey:
		return "invalid_key"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

func (k Kind) message() string {
	switch k {
	case KindContention:
		return "lock is held by another owner"
	case KindStore:
		return "store failure"
	case KindInvalidTTL:
		return "ttl must be positive"
	case KindNotHeld:
		return "lock not held"
	case KindInvalidKey:
		return "empty lock key"
	default:
		return "unknown error"
	}
}

// Error 锁操作失败
//
// 使用 errors.Is 按类别匹配：
//
//	if errors.Is(err, xlock.ErrContention) {
//	    // 锁被占用
//	}
type Error struct {
	Kind Kind
	// Key 完整的锁 key，便于诊断
	Key string
	// Err 底层原因，如 *xkv.StoreError
	Err error

	// conservative 获取路径上的存储失败，同时按竞争匹配
	conservative bool
}

func (e *Error) Error() string {
	msg := "xlock: " + e.Kind.message()
	if e.Key != "" {
		msg = fmt.Sprintf("%s (key %q)", msg, e.Key)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is 同类别即匹配；target 带 Key 时还要求 Key 相同。
// 获取失败的存储错误也匹配 ErrContention，只关心"没拿到锁"的调用方无需区分。
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	sameKind := t.Kind == e.Kind || (t.Kind == KindContention && e.conservative)
	return sameKind && (t.Key == "" || t.Key == e.Key)
}

// acquireFailure 获取路径上的存储失败：KindStore，同时满足 errors.Is(err, ErrContention)
func acquireFailure(key string, err error) *Error {
	return &Error{Kind: KindStore, Key: key, Err: err, conservative: true}
}

// Retryable 只有真正的竞争值得重试，存储失败即使按竞争匹配也不重试
func (e *Error) Retryable() bool {
	return e.Kind == KindContention
}

// 预定义错误，用于 errors.Is 匹配
var (
	ErrContention = &Error{Kind: KindContention}
	ErrStore      = &Error{Kind: KindStore}
	ErrInvalidTTL = &Error{Kind: KindInvalidTTL}
	ErrNotHeld    = &Error{Kind: KindNotHeld}
	ErrInvalidKey = &Error{Kind: KindInvalidKey}
)

// 构造与目录错误
var (
	ErrNilStore   = errors.New("xlock: store cannot be nil")
	ErrEmptyTag   = errors.New("xlock: tag must not be empty")
	ErrInvalidTag = errors.New("xlock: invalid tag")
	ErrTagExists  = errors.New("xlock: tag already registered")
)

// errExpireFailed 两步模式下创建成功但设置 TTL 失败
var errExpireFailed = errors.New("xlock: set ttl after create failed")

// errNothingDeleted 补偿删除没有删掉任何 key
var errNothingDeleted = errors.New("xlock: compensating delete removed nothing")

// KindOf 返回 err 链中第一个 *Error 的类别
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsContention 检查获取是否失败：锁被占用，或存储失败而保守地按竞争处理。
// 需要区分两者时用 KindOf。
func IsContention(err error) bool {
	return errors.Is(err, ErrContention)
}

// IsStore 检查是否为存储失败
func IsStore(err error) bool {
	return errors.Is(err, ErrStore)
}
