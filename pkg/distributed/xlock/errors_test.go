package xlock

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/omeyang/xrlock/pkg/resilience/xretry"
	"github.com/omeyang/xrlock/pkg/storage/xkv"
)

func TestError_Is(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &Error{Kind: KindContention, Key: "k"})

	assert.ErrorIs(t, err, ErrContention)
	assert.ErrorIs(t, err, &Error{Kind: KindContention, Key: "k"})
	assert.NotErrorIs(t, err, &Error{Kind: KindContention, Key: "other"})
	assert.NotErrorIs(t, err, ErrStore)
	assert.True(t, IsContention(err))
	assert.False(t, IsStore(err))
}

func TestAcquireFailure_MatchesContention(t *testing.T) {
	cause := &xkv.StoreError{Op: "set_if_absent", Key: "k", Err: errors.New("down")}
	err := fmt.Errorf("wrapped: %w", acquireFailure("k", cause))

	assert.Equal(t, KindStore, KindOf(err))
	assert.True(t, IsStore(err))
	assert.True(t, IsContention(err))
	assert.ErrorIs(t, err, &Error{Kind: KindContention, Key: "k"})
	assert.NotErrorIs(t, err, &Error{Kind: KindContention, Key: "other"})
	assert.ErrorIs(t, err, cause)
	assert.False(t, xretry.IsRetryable(err), "store failure is not retried")

	// 普通存储错误不按竞争匹配
	assert.False(t, IsContention(&Error{Kind: KindStore, Key: "k"}))
}

func TestError_Message(t *testing.T) {
	cause := &xkv.StoreError{Op: "set_if_absent", Key: "k", Err: errors.New("refused")}
	err := &Error{Kind: KindStore, Key: "k", Err: cause}

	assert.Equal(t, `xlock: store failure (key "k"): xkv: set_if_absent "k": refused`, err.Error())
	assert.True(t, xkv.IsStoreError(err))
	assert.Equal(t, "xlock: ttl must be positive", (&Error{Kind: KindInvalidTTL}).Error())
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(nil))
	assert.Equal(t, KindUnknown, KindOf(errors.New("x")))
	assert.Equal(t, KindNotHeld, KindOf(fmt.Errorf("x: %w", &Error{Kind: KindNotHeld})))
	assert.Equal(t, "contention", KindContention.String())
	assert.Equal(t, "Kind(99)", Kind(99).String())
}

func TestError_Retryable(t *testing.T) {
	assert.True(t, xretry.IsRetryable(&Error{Kind: KindContention}))
	assert.False(t, xretry.IsRetryable(&Error{Kind: KindStore}))
	assert.False(t, xretry.IsRetryable(&Error{Kind: KindInvalidTTL}))
}
