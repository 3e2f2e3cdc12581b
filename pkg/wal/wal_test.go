package wal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	N int `json:"n"`
}

func readAll(t *testing.T, w *WAL) []record {
	t.Helper()
	var out []record
	require.NoError(t, w.ReadAll(func(raw []byte) error {
		var r record
		if err := json.Unmarshal(raw, &r); err != nil {
			return err
		}
		out = append(out, r)
		return nil
	}))
	return out
}

func TestWAL_WriteAndReadAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "wal.log")
	w, err := NewWAL(path)
	require.NoError(t, err)
	for i := 1; i <= 3; i++ {
		require.NoError(t, w.Write(record{N: i}))
	}
	assert.Equal(t, []record{{1}, {2}, {3}}, readAll(t, w))

	// 讀完之後繼續寫仍然是追加
	require.NoError(t, w.Write(record{N: 4}))
	require.NoError(t, w.Close())

	w2, err := NewWAL(path)
	require.NoError(t, err)
	defer w2.Close()
	assert.Len(t, readAll(t, w2), 4)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, FileModePrivate, info.Mode().Perm())
}

func TestWAL_TornTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	require.NoError(t, os.WriteFile(path, []byte("{\"n\":1}\n{\"n\":"), 0o600))

	w, err := NewWAL(path)
	require.NoError(t, err)
	defer w.Close()
	assert.Equal(t, []record{{1}}, readAll(t, w))

	// 殘缺的尾巴已截掉，新的紀錄從新的一行開始
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"n\":1}\n", string(data))
}

func TestWAL_WriteAfterTornTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	require.NoError(t, os.WriteFile(path, []byte("{\"n\":1}\n{\"n\":"), 0o600))

	w, err := NewWAL(path)
	require.NoError(t, err)
	assert.Equal(t, []record{{1}}, readAll(t, w))
	require.NoError(t, w.Write(record{N: 2}))
	require.NoError(t, w.Close())

	w2, err := NewWAL(path)
	require.NoError(t, err)
	defer w2.Close()
	assert.Equal(t, []record{{1}, {2}}, readAll(t, w2))
}

func TestWAL_TornFirstRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	require.NoError(t, os.WriteFile(path, []byte("{\"n\":"), 0o600))

	w, err := NewWAL(path)
	require.NoError(t, err)
	assert.Empty(t, readAll(t, w))
	require.NoError(t, w.Write(record{N: 7}))
	require.NoError(t, w.Close())

	w2, err := NewWAL(path)
	require.NoError(t, err)
	defer w2.Close()
	assert.Equal(t, []record{{7}}, readAll(t, w2))
}

func TestWAL_CorruptRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	require.NoError(t, os.WriteFile(path, []byte("{\"n\":1}\nnot-json\n{\"n\":2}\n"), 0o600))

	w, err := NewWAL(path)
	require.NoError(t, err)
	defer w.Close()
	err = w.ReadAll(func([]byte) error { return nil })
	assert.Error(t, err)
}
