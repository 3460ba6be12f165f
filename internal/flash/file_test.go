package flash

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSize      = 64 * 1024
	testBlockSize = 4096
)

func openTestMedium(t *testing.T) *FileMedium {
	t.Helper()
	m, err := Open(filepath.Join(t.TempDir(), "flash.img"), testSize, testBlockSize)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestOpenCreatesZeroFilledImage(t *testing.T) {
	m := openTestMedium(t)

	assert.Equal(t, int64(testSize), m.Size())
	assert.Equal(t, int64(testBlockSize), m.BlockSize())

	buf := make([]byte, 512)
	_, err := m.ReadAt(buf, 0)
	require.NoError(t, err)
	for _, b := range buf {
		require.Zero(t, b)
	}
}

func TestOpenRejectsBadGeometry(t *testing.T) {
	dir := t.TempDir()

	_, err := Open(filepath.Join(dir, "a.img"), 1000, 4096)
	assert.Error(t, err)

	_, err = Open(filepath.Join(dir, "b.img"), 0, 4096)
	assert.Error(t, err)
}

func TestOpenRejectsResizedImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flash.img")

	m, err := Open(path, testSize, testBlockSize)
	require.NoError(t, err)
	require.NoError(t, m.Close())

	_, err = Open(path, testSize*2, testBlockSize)
	assert.Error(t, err)
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flash.img")
	m, err := Open(path, testSize, testBlockSize)
	require.NoError(t, err)

	payload := []byte("persisted across reopen")
	_, err = m.WriteAt(payload, 8192)
	require.NoError(t, err)
	require.NoError(t, m.Sync())
	require.NoError(t, m.Close())

	// Contents must survive a reopen like flash survives a power cycle.
	m, err = Open(path, testSize, testBlockSize)
	require.NoError(t, err)
	defer m.Close()

	buf := make([]byte, len(payload))
	_, err = m.ReadAt(buf, 8192)
	require.NoError(t, err)
	assert.Equal(t, payload, buf)
}

func TestEraseFills(t *testing.T) {
	m := openTestMedium(t)

	_, err := m.WriteAt([]byte{1, 2, 3, 4}, 100)
	require.NoError(t, err)
	require.NoError(t, m.Erase(0, 4096))

	buf := make([]byte, 4096)
	_, err = m.ReadAt(buf, 0)
	require.NoError(t, err)
	for _, b := range buf {
		require.Equal(t, EraseByte, b)
	}
}

func TestAccessOutOfRange(t *testing.T) {
	m := openTestMedium(t)

	buf := make([]byte, 16)

	_, err := m.ReadAt(buf, testSize-8)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = m.WriteAt(buf, -1)
	assert.ErrorIs(t, err, ErrOutOfRange)

	assert.ErrorIs(t, m.Erase(testSize, 1), ErrOutOfRange)

	// Boundary-exact access is fine.
	_, err = m.ReadAt(buf, testSize-int64(len(buf)))
	assert.NoError(t, err)
}

func TestClosedMediumFails(t *testing.T) {
	m := openTestMedium(t)
	require.NoError(t, m.Close())

	_, err := m.ReadAt(make([]byte, 1), 0)
	assert.Error(t, err)
	assert.Error(t, m.Sync())
	assert.NoError(t, m.Close()) // idempotent
}
