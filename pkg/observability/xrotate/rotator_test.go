package xrotate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLumberjack_Defaults(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "nested", "app.log")

	r, err := NewLumberjack(filename)
	require.NoError(t, err)
	defer r.Close()

	n, err := r.Write([]byte("hello\n"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	data, err := os.ReadFile(filename)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))
}

func TestNewLumberjack_NilOptionIgnored(t *testing.T) {
	r, err := NewLumberjack(filepath.Join(t.TempDir(), "a.log"), nil, WithMaxSize(10), nil)
	require.NoError(t, err)
	assert.NoError(t, r.Close())
}

func TestNewLumberjack_Validation(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		opts    []LumberjackOption
		wantErr error
	}{
		{"空文件名", "", nil, ErrEmptyFilename},
		{"MaxSize 为零", "x.log", []LumberjackOption{WithMaxSize(0)}, ErrInvalidMaxSize},
		{"MaxSize 超上限", "x.log", []LumberjackOption{WithMaxSize(maxSizeMB + 1)}, ErrInvalidMaxSize},
		{"MaxBackups 为负", "x.log", []LumberjackOption{WithMaxBackups(-1)}, ErrInvalidMaxBackups},
		{"MaxAge 为负", "x.log", []LumberjackOption{WithMaxAge(-1)}, ErrInvalidMaxAge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file := tt.file
			if file != "" {
				file = filepath.Join(t.TempDir(), file)
			}
			_, err := NewLumberjack(file, tt.opts...)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRotator_Rotate(t *testing.T) {
	dir := t.TempDir()
	r, err := NewLumberjack(filepath.Join(dir, "app.log"), WithCompress(false), WithLocalTime(true))
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Write([]byte("before\n"))
	require.NoError(t, err)
	require.NoError(t, r.Rotate())
	_, err = r.Write([]byte("after\n"))
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "当前文件 + 一个备份")
}

func TestRotator_Closed(t *testing.T) {
	r, err := NewLumberjack(filepath.Join(t.TempDir(), "c.log"))
	require.NoError(t, err)

	require.NoError(t, r.Close())
	assert.ErrorIs(t, r.Close(), ErrClosed)

	_, err = r.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, r.Rotate(), ErrClosed)
}
