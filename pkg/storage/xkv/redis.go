package xkv

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// compareAndDeleteScript 值匹配才删除。返回 1 表示已删除，0 表示不匹配或不存在。
var compareAndDeleteScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

var _ Store = (*redisStore)(nil)

type redisStore struct {
	client redis.UniversalClient
	opts   *options
	closed atomic.Bool
}

// NewRedis 基于 go-redis 客户端创建 Store
//
// Store.Close 会关闭 client。
func NewRedis(client redis.UniversalClient, opts ...Option) (Store, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	return &redisStore{
		client: client,
		opts:   applyOptions("redis", opts),
	}, nil
}

func (s *redisStore) check(key string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return validateKey(key)
}

func (s *redisStore) Get(ctx context.Context, key string) (string, bool) {
	if err := s.check(key); err != nil {
		s.opts.logFailure(ctx, opGet, key, err)
		return "", false
	}

	var (
		value string
		found bool
	)
	err := s.opts.call(ctx, opGet, key, func(ctx context.Context) error {
		v, err := s.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		value, found = v, true
		return nil
	})
	if err != nil {
		s.opts.logFailure(ctx, opGet, key, err)
		return "", false
	}
	return value, found
}

func (s *redisStore) Set(ctx context.Context, key, value string, ttl time.Duration) bool {
	if err := s.check(key); err != nil {
		s.opts.logFailure(ctx, opSet, key, err)
		return false
	}
	// SET key value PX ttl 单条命令，没有未设置过期的窗口
	err := s.opts.call(ctx, opSet, key, func(ctx context.Context) error {
		return s.client.Set(ctx, key, value, max(ttl, 0)).Err()
	})
	if err != nil {
		s.opts.logFailure(ctx, opSet, key, err)
		return false
	}
	s.opts.logDebug(ctx, opSet, key, true, ttl)
	return true
}

func (s *redisStore) SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.SetIfAbsentValue(ctx, key, s.opts.marker, ttl)
}

func (s *redisStore) SetIfAbsentValue(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if err := s.check(key); err != nil {
		return false, &StoreError{Op: opSetIfAbsent, Key: key, Err: err}
	}
	if ttl <= 0 {
		return false, &StoreError{Op: opSetIfAbsent, Key: key, Err: ErrInvalidTTL}
	}

	// 两步模式下只发 SETNX，过期时间由调用方随后 Expire
	expiration := ttl
	if s.opts.twoStep {
		expiration = 0
	}

	var created bool
	err := s.opts.call(ctx, opSetIfAbsent, key, func(ctx context.Context) error {
		ok, err := s.client.SetNX(ctx, key, value, expiration).Result()
		created = ok
		return err
	})
	if err != nil {
		s.opts.logFailure(ctx, opSetIfAbsent, key, err)
		return false, err
	}
	s.opts.logDebug(ctx, opSetIfAbsent, key, created, ttl)
	return created, nil
}

func (s *redisStore) Expire(ctx context.Context, key string, ttl time.Duration) bool {
	if err := s.check(key); err != nil {
		s.opts.logFailure(ctx, opExpire, key, err)
		return false
	}
	if ttl <= 0 {
		s.opts.logFailure(ctx, opExpire, key, ErrInvalidTTL)
		return false
	}

	var applied bool
	err := s.opts.call(ctx, opExpire, key, func(ctx context.Context) error {
		ok, err := s.client.PExpire(ctx, key, ttl).Result()
		applied = ok
		return err
	})
	if err != nil {
		s.opts.logFailure(ctx, opExpire, key, err)
		return false
	}
	s.opts.logDebug(ctx, opExpire, key, applied, ttl)
	return applied
}

func (s *redisStore) Delete(ctx context.Context, key string) bool {
	if err := s.check(key); err != nil {
		s.opts.logFailure(ctx, opDelete, key, err)
		return false
	}

	var removed int64
	err := s.opts.call(ctx, opDelete, key, func(ctx context.Context) error {
		n, err := s.client.Del(ctx, key).Result()
		removed = n
		return err
	})
	if err != nil {
		s.opts.logFailure(ctx, opDelete, key, err)
		return false
	}
	s.opts.logDebug(ctx, opDelete, key, removed > 0, 0)
	return removed > 0
}

func (s *redisStore) CompareAndDelete(ctx context.Context, key, value string) (bool, error) {
	if err := s.check(key); err != nil {
		return false, &StoreError{Op: opCompareAndDelete, Key: key, Err: err}
	}

	var removed int64
	err := s.opts.call(ctx, opCompareAndDelete, key, func(ctx context.Context) error {
		n, err := compareAndDeleteScript.Run(ctx, s.client, []string{key}, value).Int64()
		removed = n
		return err
	})
	if err != nil {
		s.opts.logFailure(ctx, opCompareAndDelete, key, err)
		return false, err
	}
	s.opts.logDebug(ctx, opCompareAndDelete, key, removed == 1, 0)
	return removed == 1, nil
}

func (s *redisStore) Capabilities() Capabilities {
	return Capabilities{AtomicCreateWithTTL: !s.opts.twoStep}
}

func (s *redisStore) Health(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.opts.call(ctx, opHealth, "", func(ctx context.Context) error {
		return s.client.Ping(ctx).Err()
	})
}

func (s *redisStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	return s.client.Close()
}
