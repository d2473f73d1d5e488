package xkv

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/omeyang/xrlock/pkg/observability/xlog"
)

// DefaultObjectTTL SetObject 在 ttl == 0 时使用的过期时间
const DefaultObjectTTL = 24 * time.Hour

// SetObject 写入对象：字符串原样存储，其余值（含 []byte）JSON 编码。
//
// ttl == 0 使用 DefaultObjectTTL，ttl < 0 永不过期。编码失败返回 false。
func SetObject(ctx context.Context, s Store, key string, v any, ttl time.Duration) bool {
	if s == nil {
		return false
	}
	value, err := encodeValue(v)
	if err != nil {
		xlog.Default().Warn(ctx, "encode object failed",
			xlog.Component(componentName), xlog.Key(key), xlog.Err(err))
		return false
	}
	switch {
	case ttl == 0:
		ttl = DefaultObjectTTL
	case ttl < 0:
		ttl = 0
	}
	return s.Set(ctx, key, value, ttl)
}

// GetObject 读取并解码对象。
//
// T 为 string 时返回原始值。值不存在、为空白或解码失败都视为不存在，
// 解码失败只记录日志。
func GetObject[T any](ctx context.Context, s Store, key string) (T, bool) {
	var zero T
	if s == nil {
		return zero, false
	}
	raw, ok := s.Get(ctx, key)
	if !ok || strings.TrimSpace(raw) == "" {
		return zero, false
	}

	var v T
	if sp, isString := any(&v).(*string); isString {
		*sp = raw
		return v, true
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		xlog.Default().Warn(ctx, "decode object failed",
			xlog.Component(componentName), xlog.Key(key), xlog.Err(err))
		return zero, false
	}
	return v, true
}

// GetList 读取 JSON 数组
func GetList[T any](ctx context.Context, s Store, key string) ([]T, bool) {
	return GetObject[[]T](ctx, s, key)
}

// Update 对每个 key 先删除再以 DefaultObjectTTL 写入 v，全部成功才返回 true
func Update(ctx context.Context, s Store, v any, keys ...string) bool {
	if s == nil || len(keys) == 0 {
		return false
	}
	ok := true
	for _, key := range keys {
		s.Delete(ctx, key)
		if !SetObject(ctx, s, key, v, DefaultObjectTTL) {
			ok = false
		}
	}
	return ok
}

func encodeValue(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case nil:
		return "", ErrNilValue
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("xkv: marshal value: %w", err)
	}
	return string(data), nil
}
