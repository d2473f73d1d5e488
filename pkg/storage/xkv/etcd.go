package xkv

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/omeyang/xrlock/pkg/observability/xlog"
)

// etcdClient 本包用到的 etcd 操作，*clientv3.Client 实现了此接口。
type etcdClient interface {
	Get(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error)
	Put(ctx context.Context, key, val string, opts ...clientv3.OpOption) (*clientv3.PutResponse, error)
	Delete(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.DeleteResponse, error)
	Txn(ctx context.Context) clientv3.Txn
	Grant(ctx context.Context, ttl int64) (*clientv3.LeaseGrantResponse, error)
	Revoke(ctx context.Context, id clientv3.LeaseID) (*clientv3.LeaseRevokeResponse, error)
	Close() error
}

var (
	_ etcdClient = (*clientv3.Client)(nil)
	_ Store      = (*etcdStore)(nil)
)

// revokeLeaseTimeout 清理租约的超时，租约最终会自行过期
const revokeLeaseTimeout = 3 * time.Second

// healthKey 健康检查读取的 key，只取计数
const healthKey = "xrlock/health"

type etcdStore struct {
	client etcdClient
	opts   *options
	closed atomic.Bool
}

// NewEtcd 基于 etcd v3 客户端创建 Store
//
// TTL 由租约实现，按秒向上取整。Store.Close 会关闭 client。
func NewEtcd(client *clientv3.Client, opts ...Option) (Store, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	return newEtcdStore(client, opts...), nil
}

func newEtcdStore(client etcdClient, opts ...Option) *etcdStore {
	return &etcdStore{
		client: client,
		opts:   applyOptions("etcd", opts),
	}
}

// leaseSeconds 向上取整，保证 key 不会比调用方预期更早过期
func leaseSeconds(ttl time.Duration) int64 {
	return max(int64(math.Ceil(ttl.Seconds())), 1)
}

func (s *etcdStore) check(key string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return validateKey(key)
}

func (s *etcdStore) revoke(id clientv3.LeaseID) {
	if id == clientv3.NoLease {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), revokeLeaseTimeout)
	defer cancel()
	if _, err := s.client.Revoke(ctx, id); err != nil {
		s.opts.logger.Debug(ctx, "revoke lease failed", xlog.Err(err))
	}
}

func (s *etcdStore) Get(ctx context.Context, key string) (string, bool) {
	if err := s.check(key); err != nil {
		s.opts.logFailure(ctx, opGet, key, err)
		return "", false
	}

	var (
		value string
		found bool
	)
	err := s.opts.call(ctx, opGet, key, func(ctx context.Context) error {
		resp, err := s.client.Get(ctx, key)
		if err != nil {
			return err
		}
		if len(resp.Kvs) > 0 {
			value, found = string(resp.Kvs[0].Value), true
		}
		return nil
	})
	if err != nil {
		s.opts.logFailure(ctx, opGet, key, err)
		return "", false
	}
	return value, found
}

func (s *etcdStore) Set(ctx context.Context, key, value string, ttl time.Duration) bool {
	if err := s.check(key); err != nil {
		s.opts.logFailure(ctx, opSet, key, err)
		return false
	}

	err := s.opts.call(ctx, opSet, key, func(ctx context.Context) error {
		if ttl <= 0 {
			_, err := s.client.Put(ctx, key, value)
			return err
		}
		lease, err := s.client.Grant(ctx, leaseSeconds(ttl))
		if err != nil {
			return err
		}
		if _, err := s.client.Put(ctx, key, value, clientv3.WithLease(lease.ID)); err != nil {
			s.revoke(lease.ID)
			return err
		}
		return nil
	})
	if err != nil {
		s.opts.logFailure(ctx, opSet, key, err)
		return false
	}
	s.opts.logDebug(ctx, opSet, key, true, ttl)
	return true
}

func (s *etcdStore) SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.SetIfAbsentValue(ctx, key, s.opts.marker, ttl)
}

// SetIfAbsentValue 单个事务：CreateRevision(key) == 0 时 Put。
// 非两步模式下 Put 绑定新租约，创建与过期原子生效。
func (s *etcdStore) SetIfAbsentValue(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if err := s.check(key); err != nil {
		return false, &StoreError{Op: opSetIfAbsent, Key: key, Err: err}
	}
	if ttl <= 0 {
		return false, &StoreError{Op: opSetIfAbsent, Key: key, Err: ErrInvalidTTL}
	}

	var created bool
	err := s.opts.call(ctx, opSetIfAbsent, key, func(ctx context.Context) error {
		leaseID := clientv3.NoLease
		if !s.opts.twoStep {
			lease, err := s.client.Grant(ctx, leaseSeconds(ttl))
			if err != nil {
				return err
			}
			leaseID = lease.ID
		}

		resp, err := s.client.Txn(ctx).
			If(clientv3.Compare(clientv3.CreateRevision(key), "=", 0)).
			Then(clientv3.OpPut(key, value, clientv3.WithLease(leaseID))).
			Commit()
		if err != nil {
			s.revoke(leaseID)
			return err
		}
		if !resp.Succeeded {
			s.revoke(leaseID)
		}
		created = resp.Succeeded
		return nil
	})
	if err != nil {
		s.opts.logFailure(ctx, opSetIfAbsent, key, err)
		return false, err
	}
	s.opts.logDebug(ctx, opSetIfAbsent, key, created, ttl)
	return created, nil
}

// Expire 用新租约重写当前值，ModRevision 保证期间没有被他人改写。
func (s *etcdStore) Expire(ctx context.Context, key string, ttl time.Duration) bool {
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
		resp, err := s.client.Get(ctx, key)
		if err != nil {
			return err
		}
		if len(resp.Kvs) == 0 {
			return nil
		}
		kv := resp.Kvs[0]

		lease, err := s.client.Grant(ctx, leaseSeconds(ttl))
		if err != nil {
			return err
		}
		txn, err := s.client.Txn(ctx).
			If(clientv3.Compare(clientv3.ModRevision(key), "=", kv.ModRevision)).
			Then(clientv3.OpPut(key, string(kv.Value), clientv3.WithLease(lease.ID))).
			Commit()
		if err != nil || !txn.Succeeded {
			s.revoke(lease.ID)
			return err
		}
		if kv.Lease != 0 {
			s.revoke(clientv3.LeaseID(kv.Lease))
		}
		applied = true
		return nil
	})
	if err != nil {
		s.opts.logFailure(ctx, opExpire, key, err)
		return false
	}
	s.opts.logDebug(ctx, opExpire, key, applied, ttl)
	return applied
}

func (s *etcdStore) Delete(ctx context.Context, key string) bool {
	if err := s.check(key); err != nil {
		s.opts.logFailure(ctx, opDelete, key, err)
		return false
	}

	var removed int64
	err := s.opts.call(ctx, opDelete, key, func(ctx context.Context) error {
		resp, err := s.client.Delete(ctx, key)
		if err != nil {
			return err
		}
		removed = resp.Deleted
		return nil
	})
	if err != nil {
		s.opts.logFailure(ctx, opDelete, key, err)
		return false
	}
	s.opts.logDebug(ctx, opDelete, key, removed > 0, 0)
	return removed > 0
}

func (s *etcdStore) CompareAndDelete(ctx context.Context, key, value string) (bool, error) {
	if err := s.check(key); err != nil {
		return false, &StoreError{Op: opCompareAndDelete, Key: key, Err: err}
	}

	var removed bool
	err := s.opts.call(ctx, opCompareAndDelete, key, func(ctx context.Context) error {
		resp, err := s.client.Txn(ctx).
			If(clientv3.Compare(clientv3.Value(key), "=", value)).
			Then(clientv3.OpDelete(key)).
			Commit()
		if err != nil {
			return err
		}
		removed = resp.Succeeded
		return nil
	})
	if err != nil {
		s.opts.logFailure(ctx, opCompareAndDelete, key, err)
		return false, err
	}
	s.opts.logDebug(ctx, opCompareAndDelete, key, removed, 0)
	return removed, nil
}

func (s *etcdStore) Capabilities() Capabilities {
	return Capabilities{AtomicCreateWithTTL: !s.opts.twoStep}
}

func (s *etcdStore) Health(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.opts.call(ctx, opHealth, "", func(ctx context.Context) error {
		_, err := s.client.Get(ctx, healthKey, clientv3.WithCountOnly())
		return err
	})
}

func (s *etcdStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	return s.client.Close()
}
