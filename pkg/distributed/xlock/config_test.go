package xlock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xrlock/pkg/config/xconf"
)

func TestConfig_FromYAML(t *testing.T) {
	data := []byte(`
lock:
  ttl: 15s
  namespace: orders
  twoStep: true
`)
	conf, err := xconf.NewFromBytes(data, xconf.FormatYAML)
	require.NoError(t, err)

	cfg := DefaultConfig()
	require.NoError(t, conf.Unmarshal("lock", &cfg))

	assert.Equal(t, 15*time.Second, cfg.TTL)
	assert.Equal(t, "orders", cfg.Namespace)
	assert.True(t, cfg.TwoStep)
	assert.True(t, cfg.OwnerToken, "unset field keeps default")
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.ErrorIs(t, Config{}.Validate(), ErrInvalidTTL)
	assert.ErrorIs(t, Config{TTL: -time.Second}.Validate(), ErrInvalidTTL)
}

func TestConfig_Options(t *testing.T) {
	store, mr := newRedisStore(t)
	cfg := Config{TTL: 3 * time.Second, Namespace: "ns", OwnerToken: false}

	c := newCoordinator(t, store, cfg.Options()...)
	assert.Equal(t, 3*time.Second, c.TTL())

	lock, err := c.Acquire(t.Context(), TagTypeOne, "1")
	require.NoError(t, err)
	assert.Equal(t, "ns:REDIS_KEY_TYPE_ONE:1", lock.Key())
	assert.Empty(t, lock.Token())
	assert.Equal(t, 3*time.Second, mr.TTL(lock.Key()))

	assert.Len(t, cfg.StoreOptions(), 1)
}
