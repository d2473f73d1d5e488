package xkv

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	pb "go.etcd.io/etcd/api/v3/etcdserverpb"
	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xrlock/pkg/observability/xlog"
)

// fakeEtcd 内存版 etcdClient，只实现本包用到的比较与操作
type fakeEtcd struct {
	mu       sync.Mutex
	rev      int64
	kvs      map[string]*mvccpb.KeyValue
	nextID   clientv3.LeaseID
	grants   []int64
	revoked  []clientv3.LeaseID
	closed   int
	getErr   error
	txnErr   error
	grantErr error
}

func newFakeEtcd() *fakeEtcd {
	return &fakeEtcd{kvs: make(map[string]*mvccpb.KeyValue)}
}

func (f *fakeEtcd) put(key, value string) {
	f.rev++
	kv, ok := f.kvs[key]
	if !ok {
		kv = &mvccpb.KeyValue{Key: []byte(key), CreateRevision: f.rev}
		f.kvs[key] = kv
	}
	kv.Value = []byte(value)
	kv.ModRevision = f.rev
}

func (f *fakeEtcd) Get(_ context.Context, key string, _ ...clientv3.OpOption) (*clientv3.GetResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	resp := &clientv3.GetResponse{}
	if kv, ok := f.kvs[key]; ok {
		cp := *kv
		resp.Kvs = []*mvccpb.KeyValue{&cp}
		resp.Count = 1
	}
	return resp, nil
}

func (f *fakeEtcd) Put(_ context.Context, key, val string, _ ...clientv3.OpOption) (*clientv3.PutResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.put(key, val)
	return &clientv3.PutResponse{}, nil
}

func (f *fakeEtcd) Delete(_ context.Context, key string, _ ...clientv3.OpOption) (*clientv3.DeleteResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.kvs[key]; !ok {
		return &clientv3.DeleteResponse{}, nil
	}
	delete(f.kvs, key)
	return &clientv3.DeleteResponse{Deleted: 1}, nil
}

func (f *fakeEtcd) Txn(context.Context) clientv3.Txn {
	return &fakeTxn{f: f}
}

func (f *fakeEtcd) Grant(_ context.Context, ttl int64) (*clientv3.LeaseGrantResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.grantErr != nil {
		return nil, f.grantErr
	}
	f.nextID++
	f.grants = append(f.grants, ttl)
	return &clientv3.LeaseGrantResponse{ID: f.nextID, TTL: ttl}, nil
}

func (f *fakeEtcd) Revoke(_ context.Context, id clientv3.LeaseID) (*clientv3.LeaseRevokeResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, id)
	return &clientv3.LeaseRevokeResponse{}, nil
}

func (f *fakeEtcd) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

type fakeTxn struct {
	f    *fakeEtcd
	cmps []clientv3.Cmp
	then []clientv3.Op
	els  []clientv3.Op
}

func (t *fakeTxn) If(cs ...clientv3.Cmp) clientv3.Txn {
	t.cmps = append(t.cmps, cs...)
	return t
}

func (t *fakeTxn) Then(ops ...clientv3.Op) clientv3.Txn {
	t.then = append(t.then, ops...)
	return t
}

func (t *fakeTxn) Else(ops ...clientv3.Op) clientv3.Txn {
	t.els = append(t.els, ops...)
	return t
}

func (t *fakeTxn) Commit() (*clientv3.TxnResponse, error) {
	f := t.f
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.txnErr != nil {
		return nil, f.txnErr
	}

	ok := true
	for _, c := range t.cmps {
		if !f.eval(c) {
			ok = false
			break
		}
	}
	ops := t.then
	if !ok {
		ops = t.els
	}
	for _, op := range ops {
		switch {
		case op.IsPut():
			f.put(string(op.KeyBytes()), string(op.ValueBytes()))
		case op.IsDelete():
			delete(f.kvs, string(op.KeyBytes()))
		}
	}
	return &clientv3.TxnResponse{Succeeded: ok}, nil
}

// eval 只支持 "=" 比较
func (f *fakeEtcd) eval(c clientv3.Cmp) bool {
	kv, exists := f.kvs[string(c.Key)]
	switch u := c.TargetUnion.(type) {
	case *pb.Compare_CreateRevision:
		if !exists {
			return u.CreateRevision == 0
		}
		return kv.CreateRevision == u.CreateRevision
	case *pb.Compare_ModRevision:
		return exists && kv.ModRevision == u.ModRevision
	case *pb.Compare_Value:
		return exists && string(kv.Value) == string(u.Value)
	}
	return false
}

func newTestEtcdStore(t *testing.T, opts ...Option) (*etcdStore, *fakeEtcd) {
	t.Helper()
	f := newFakeEtcd()
	opts = append([]Option{WithLogger(xlog.Discard())}, opts...)
	return newEtcdStore(f, opts...), f
}

func TestNewEtcd_WithNilClient_ReturnsError(t *testing.T) {
	_, err := NewEtcd(nil)
	assert.ErrorIs(t, err, ErrNilClient)
}

func TestLeaseSeconds(t *testing.T) {
	tests := []struct {
		ttl  time.Duration
		want int64
	}{
		{time.Millisecond, 1},
		{time.Second, 1},
		{1500 * time.Millisecond, 2},
		{30 * time.Second, 30},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, leaseSeconds(tt.ttl), tt.ttl.String())
	}
}

func TestEtcdStore_SetIfAbsent(t *testing.T) {
	ctx := context.Background()
	s, f := newTestEtcdStore(t)
	assert.True(t, s.Capabilities().AtomicCreateWithTTL)

	created, err := s.SetIfAbsent(ctx, "lock", 1500*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, []int64{2}, f.grants)

	v, ok := s.Get(ctx, "lock")
	require.True(t, ok)
	assert.Equal(t, DefaultMarker, v)

	created, err = s.SetIfAbsent(ctx, "lock", time.Second)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, []clientv3.LeaseID{2}, f.revoked, "unused lease is revoked")
}

func TestEtcdStore_SetIfAbsent_TwoStepSkipsLease(t *testing.T) {
	ctx := context.Background()
	s, f := newTestEtcdStore(t, WithTwoStepCreate(true))
	assert.False(t, s.Capabilities().AtomicCreateWithTTL)

	created, err := s.SetIfAbsentValue(ctx, "lock", "owner", time.Second)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Empty(t, f.grants)
}

func TestEtcdStore_SetIfAbsent_Failures(t *testing.T) {
	ctx := context.Background()

	s, f := newTestEtcdStore(t)
	f.txnErr = errors.New("unavailable")
	created, err := s.SetIfAbsent(ctx, "lock", time.Second)
	assert.False(t, created)
	assert.True(t, IsStoreError(err))
	assert.Equal(t, []clientv3.LeaseID{1}, f.revoked)

	s2, f2 := newTestEtcdStore(t)
	f2.grantErr = errors.New("no lease")
	_, err = s2.SetIfAbsent(ctx, "lock", time.Second)
	assert.ErrorIs(t, err, f2.grantErr)

	_, err = s2.SetIfAbsent(ctx, "lock", 0)
	assert.ErrorIs(t, err, ErrInvalidTTL)
}

func TestEtcdStore_GetSet(t *testing.T) {
	ctx := context.Background()
	s, f := newTestEtcdStore(t)

	_, ok := s.Get(ctx, "missing")
	assert.False(t, ok)

	assert.True(t, s.Set(ctx, "a", "1", 0))
	assert.Empty(t, f.grants)
	assert.True(t, s.Set(ctx, "b", "2", 3*time.Second))
	assert.Equal(t, []int64{3}, f.grants)

	v, ok := s.Get(ctx, "b")
	assert.True(t, ok)
	assert.Equal(t, "2", v)

	f.getErr = errors.New("timeout")
	_, ok = s.Get(ctx, "b")
	assert.False(t, ok)
}

func TestEtcdStore_Expire(t *testing.T) {
	ctx := context.Background()
	s, f := newTestEtcdStore(t)

	assert.False(t, s.Expire(ctx, "missing", time.Second))
	assert.Empty(t, f.grants)

	require.True(t, s.Set(ctx, "k", "v", 0))
	assert.True(t, s.Expire(ctx, "k", 5*time.Second))
	assert.Equal(t, []int64{5}, f.grants)

	v, ok := s.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	assert.False(t, s.Expire(ctx, "k", 0))
}

func TestEtcdStore_DeleteAndCompareAndDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestEtcdStore(t)

	require.True(t, s.Set(ctx, "k", "mine", 0))
	assert.True(t, s.Delete(ctx, "k"))
	assert.False(t, s.Delete(ctx, "k"))

	require.True(t, s.Set(ctx, "k", "mine", 0))
	removed, err := s.CompareAndDelete(ctx, "k", "theirs")
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = s.CompareAndDelete(ctx, "k", "mine")
	require.NoError(t, err)
	assert.True(t, removed)

	_, ok := s.Get(ctx, "k")
	assert.False(t, ok)
}

func TestEtcdStore_HealthAndClose(t *testing.T) {
	ctx := context.Background()
	s, f := newTestEtcdStore(t)

	assert.NoError(t, s.Health(ctx))
	f.getErr = errors.New("down")
	assert.True(t, IsStoreError(s.Health(ctx)))

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Close(), ErrClosed)
	assert.Equal(t, 1, f.closed)

	_, err := s.SetIfAbsent(ctx, "k", time.Second)
	assert.ErrorIs(t, err, ErrClosed)
}
