package xconf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lockSection struct {
	TTL        time.Duration `koanf:"ttl"`
	Namespace  string        `koanf:"namespace"`
	OwnerToken bool          `koanf:"ownerToken"`
}

type redisSection struct {
	Addrs []string `koanf:"addrs"`
	DB    int      `koanf:"db"`
}

const sampleYAML = `
redis:
  addrs: ["127.0.0.1:6379"]
  db: 2
lock:
  ttl: 45s
  namespace: orders
  ownerToken: true
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNew_YAML(t *testing.T) {
	path := writeFile(t, "xrlock.yaml", sampleYAML)

	cfg, err := New(path)
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, cfg.Format())
	assert.Equal(t, path, cfg.Path())

	var lock lockSection
	require.NoError(t, cfg.Unmarshal("lock", &lock))
	assert.Equal(t, 45*time.Second, lock.TTL)
	assert.Equal(t, "orders", lock.Namespace)
	assert.True(t, lock.OwnerToken)

	var redis redisSection
	require.NoError(t, cfg.Unmarshal("redis", &redis))
	assert.Equal(t, []string{"127.0.0.1:6379"}, redis.Addrs)
	assert.Equal(t, 2, redis.DB)
	assert.True(t, cfg.Exists("redis.db"))
	assert.False(t, cfg.Exists("redis.password"))
}

func TestNewFromBytes_JSON(t *testing.T) {
	cfg, err := NewFromBytes([]byte(`{"lock":{"ttl":"2s"}}`), FormatJSON)
	require.NoError(t, err)

	var lock lockSection
	require.NoError(t, cfg.Unmarshal("lock", &lock))
	assert.Equal(t, 2*time.Second, lock.TTL)
	assert.ErrorIs(t, cfg.Reload(), ErrReloadUnsupported)
	assert.Empty(t, cfg.Path())
}

func TestNewFromBytes_Empty(t *testing.T) {
	cfg, err := NewFromBytes(nil, FormatYAML)
	require.NoError(t, err)

	var lock lockSection
	require.NoError(t, cfg.Unmarshal("lock", &lock))
	assert.Zero(t, lock)
}

func TestSet_OverridesAndReloadResets(t *testing.T) {
	path := writeFile(t, "xrlock.yml", sampleYAML)
	cfg, err := New(path)
	require.NoError(t, err)

	require.NoError(t, cfg.Set("redis.addrs", []string{"10.0.0.1:6379"}))
	assert.ErrorIs(t, cfg.Set("", 1), ErrEmptyKey)

	var redis redisSection
	require.NoError(t, cfg.Unmarshal("redis", &redis))
	assert.Equal(t, []string{"10.0.0.1:6379"}, redis.Addrs)

	require.NoError(t, os.WriteFile(path, []byte("redis:\n  db: 5\n"), 0o600))
	require.NoError(t, cfg.Reload())

	redis = redisSection{}
	require.NoError(t, cfg.Unmarshal("redis", &redis))
	assert.Empty(t, redis.Addrs)
	assert.Equal(t, 5, redis.DB)
}

func TestNew_Errors(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, ErrEmptyPath)

	_, err = New("xrlock.toml")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = New(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrLoadFailed)

	_, err = New(writeFile(t, "bad.json", "{not json"))
	assert.ErrorIs(t, err, ErrParseFailed)

	_, err = NewFromBytes([]byte("a: 1"), Format("toml"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestUnmarshal_TypeMismatch(t *testing.T) {
	cfg, err := NewFromBytes([]byte("lock:\n  ttl: soon\n"), FormatYAML)
	require.NoError(t, err)

	var lock lockSection
	assert.ErrorIs(t, cfg.Unmarshal("lock", &lock), ErrUnmarshalFailed)
}

func TestOptions(t *testing.T) {
	cfg, err := NewFromBytes([]byte("lock:\n  ns: a\n"), FormatYAML, WithDelim("/"), WithTag("json"), nil, WithDelim(""))
	require.NoError(t, err)
	assert.True(t, cfg.Exists("lock/ns"))

	var out struct {
		NS string `json:"ns"`
	}
	require.NoError(t, cfg.Unmarshal("lock", &out))
	assert.Equal(t, "a", out.NS)
	assert.NotNil(t, cfg.Client())
}
