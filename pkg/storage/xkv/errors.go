package xkv

import (
	"errors"
	"fmt"
)

// 驱动错误
var (
	ErrNilClient   = errors.New("xkv: client cannot be nil")
	ErrNilConfig   = errors.New("xkv: config cannot be nil")
	ErrNoAddrs     = errors.New("xkv: no addresses configured")
	ErrInvalidAddr = errors.New("xkv: invalid address")
	ErrEmptyKey    = errors.New("xkv: empty key")
	ErrInvalidTTL  = errors.New("xkv: ttl must be positive")
	ErrClosed      = errors.New("xkv: store closed")
	ErrNilValue    = errors.New("xkv: nil value")
)

// StoreError 一次存储调用失败
type StoreError struct {
	// Op 原语名，如 "set_if_absent"
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("xkv: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("xkv: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsStoreError 判断 err 链中是否包含 *StoreError
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
