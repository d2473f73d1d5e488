package xkv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profile struct {
	Name  string `json:"name"`
	Level int    `json:"level"`
}

func TestSetObject_StringStoredVerbatim(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	require.True(t, SetObject(ctx, s, "s", "plain text", time.Minute))
	got, err := mr.Get("s")
	require.NoError(t, err)
	assert.Equal(t, "plain text", got)

	v, ok := GetObject[string](ctx, s, "s")
	assert.True(t, ok)
	assert.Equal(t, "plain text", v)
}

func TestSetObject_StructRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	in := profile{Name: "alice", Level: 3}
	require.True(t, SetObject(ctx, s, "p", in, time.Minute))

	raw, err := mr.Get("p")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"alice","level":3}`, raw)

	out, ok := GetObject[profile](ctx, s, "p")
	require.True(t, ok)
	assert.Equal(t, in, out)
}

func TestSetObject_BytesRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	in := []byte("hello\x00\xff")
	require.True(t, SetObject(ctx, s, "b", in, time.Minute))

	raw, err := mr.Get("b")
	require.NoError(t, err)
	assert.Equal(t, `"aGVsbG8A/w=="`, raw)

	out, ok := GetObject[[]byte](ctx, s, "b")
	require.True(t, ok)
	assert.Equal(t, in, out)
}

func TestSetObject_TTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	require.True(t, SetObject(ctx, s, "default", 1, 0))
	assert.Equal(t, DefaultObjectTTL, mr.TTL("default"))

	require.True(t, SetObject(ctx, s, "forever", 1, -1))
	assert.Zero(t, mr.TTL("forever"))

	require.True(t, SetObject(ctx, s, "short", 1, 2*time.Second))
	assert.Equal(t, 2*time.Second, mr.TTL("short"))
}

func TestSetObject_Rejects(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	assert.False(t, SetObject(ctx, nil, "k", "v", 0))
	assert.False(t, SetObject(ctx, s, "k", nil, 0))
	assert.False(t, SetObject(ctx, s, "k", make(chan int), 0), "unencodable value")
}

func TestGetObject_AbsentCases(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	_, ok := GetObject[profile](ctx, s, "missing")
	assert.False(t, ok)

	require.NoError(t, mr.Set("blank", "   "))
	_, ok = GetObject[string](ctx, s, "blank")
	assert.False(t, ok, "blank value is absent")

	require.NoError(t, mr.Set("broken", "{not json"))
	_, ok = GetObject[profile](ctx, s, "broken")
	assert.False(t, ok, "decode failure is absent")

	_, ok = GetObject[profile](ctx, nil, "k")
	assert.False(t, ok)
}

func TestGetList(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	in := []profile{{Name: "a", Level: 1}, {Name: "b", Level: 2}}
	require.True(t, SetObject(ctx, s, "list", in, time.Minute))

	out, ok := GetList[profile](ctx, s, "list")
	require.True(t, ok)
	assert.Equal(t, in, out)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	require.NoError(t, mr.Set("a", "old"))
	mr.SetTTL("a", time.Second)

	assert.True(t, Update(ctx, s, profile{Name: "new"}, "a", "b"))
	for _, key := range []string{"a", "b"} {
		got, ok := GetObject[profile](ctx, s, key)
		require.True(t, ok)
		assert.Equal(t, "new", got.Name)
		assert.Equal(t, DefaultObjectTTL, mr.TTL(key))
	}

	assert.False(t, Update(ctx, s, "v"))
	assert.False(t, Update(ctx, nil, "v", "a"))
}
