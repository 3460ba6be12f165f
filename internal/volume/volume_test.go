package volume

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/valerio-vaccaro/BitFloppy/internal/flash"
)

func openTestMedium(t *testing.T, size int64) *flash.FileMedium {
	t.Helper()
	m, err := flash.Open(filepath.Join(t.TempDir(), "flash.img"), size, 4096)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestMountBlankImage(t *testing.T) {
	m := openTestMedium(t, 64*1024)

	// A zero-filled factory image mounts as an empty volume.
	v, err := Mount(m)
	require.NoError(t, err)
	assert.Empty(t, v.Files())
}

func TestWriteUnmountRemount(t *testing.T) {
	m := openTestMedium(t, 64*1024)

	v, err := Mount(m)
	require.NoError(t, err)
	require.NoError(t, v.WriteFile("README.txt", []byte("hello")))
	require.NoError(t, v.WriteFile("bip44/addresses.txt", []byte("rows")))
	require.NoError(t, v.Unmount())

	v, err = Mount(m)
	require.NoError(t, err)

	data, err := v.ReadFile("README.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	data, err = v.ReadFile("bip44/addresses.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("rows"), data)

	assert.True(t, v.Exists("bip44"))
	assert.Equal(t, []string{"README.txt", "bip44"}, v.List(""))
	assert.Equal(t, []string{"addresses.txt"}, v.List("bip44"))
}

func TestLookupsFoldCase(t *testing.T) {
	m := openTestMedium(t, 64*1024)
	v, err := Mount(m)
	require.NoError(t, err)

	require.NoError(t, v.WriteFile("mnemonic.txt", []byte("abandon")))

	data, err := v.ReadFile("MNEMONIC.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("abandon"), data)
	assert.True(t, v.Exists("Mnemonic.TXT"))

	// Rewriting under different case replaces, never duplicates, and the
	// stored name stays the one from the first write.
	require.NoError(t, v.WriteFile("MNEMONIC.TXT", []byte("zoo")))
	assert.Equal(t, []string{"mnemonic.txt"}, v.Files())

	data, err = v.ReadFile("mnemonic.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("zoo"), data)

	assert.True(t, v.Remove("mNeMoNiC.tXt"))
	assert.False(t, v.Exists("mnemonic.txt"))
}

func TestAppendAccumulates(t *testing.T) {
	m := openTestMedium(t, 64*1024)
	v, err := Mount(m)
	require.NoError(t, err)

	w := v.Appender("log.txt")
	for i := 0; i < 3; i++ {
		n, err := fmt.Fprintf(w, "line %d\n", i)
		require.NoError(t, err)
		require.NotZero(t, n)
	}

	data, err := v.ReadFile("log.txt")
	require.NoError(t, err)
	assert.Equal(t, "line 0\nline 1\nline 2\n", string(data))
}

func TestRemoveSemantics(t *testing.T) {
	m := openTestMedium(t, 64*1024)
	v, err := Mount(m)
	require.NoError(t, err)

	require.NoError(t, v.WriteFile("bip84/addresses.txt", []byte("a")))
	require.NoError(t, v.WriteFile("bip84/changes.txt", []byte("c")))

	// A populated directory resists Remove but falls to RemoveAll.
	assert.False(t, v.Remove("bip84"))
	assert.Equal(t, 3, v.RemoveAll("bip84"))
	assert.False(t, v.Exists("bip84"))

	assert.False(t, v.Remove("absent.txt"))
	assert.Zero(t, v.RemoveAll("absent"))
}

func TestMountCorruptImage(t *testing.T) {
	m := openTestMedium(t, 64*1024)

	garbage := make([]byte, 512)
	for i := range garbage {
		garbage[i] = 0xAB
	}
	_, err := m.WriteAt(garbage, 0)
	require.NoError(t, err)

	_, err = Mount(m)
	assert.ErrorIs(t, err, ErrCorrupted)

	// Formatting restores a mountable blank volume.
	require.NoError(t, Format(m))
	v, err := Mount(m)
	require.NoError(t, err)
	assert.Empty(t, v.Files())
}

func TestWriteRejectedWhenFull(t *testing.T) {
	m := openTestMedium(t, 8192)
	v, err := Mount(m)
	require.NoError(t, err)

	require.NoError(t, v.WriteFile("small.txt", []byte("fits")))

	err = v.WriteFile("big.txt", make([]byte, 7*1024))
	assert.ErrorIs(t, err, ErrFull)

	// The failed write must leave no trace.
	assert.False(t, v.Exists("big.txt"))
	assert.Equal(t, []string{"small.txt"}, v.Files())
	require.NoError(t, v.Unmount())

	v, err = Mount(m)
	require.NoError(t, err)
	assert.Equal(t, []string{"small.txt"}, v.Files())
}

func TestUnmountInvalidatesVolume(t *testing.T) {
	m := openTestMedium(t, 64*1024)
	v, err := Mount(m)
	require.NoError(t, err)
	require.NoError(t, v.Unmount())

	assert.Error(t, v.WriteFile("late.txt", nil))
	_, err = v.ReadFile("late.txt")
	assert.Error(t, err)
	assert.Error(t, v.Unmount())
}

func TestPathValidation(t *testing.T) {
	m := openTestMedium(t, 64*1024)
	v, err := Mount(m)
	require.NoError(t, err)

	assert.Error(t, v.WriteFile("", nil))
	assert.Error(t, v.WriteFile("/", nil))
	assert.Error(t, v.WriteFile("../escape.txt", nil))
	assert.Error(t, v.WriteFile(`dos\path.txt`, nil))
	assert.Error(t, v.WriteFile(strings.Repeat("x", 120), nil))

	// Leading slashes and redundant separators are tolerated.
	require.NoError(t, v.WriteFile("/UNLOCK.txt", nil))
	assert.True(t, v.Exists("UNLOCK.txt"))
}

func TestImageBytesAreDeterministic(t *testing.T) {
	write := func() []byte {
		m := openTestMedium(t, 64*1024)
		v, err := Mount(m)
		require.NoError(t, err)
		require.NoError(t, v.WriteFile("b.txt", []byte("bee")))
		require.NoError(t, v.WriteFile("a/a.txt", []byte("aye")))
		require.NoError(t, v.Unmount())
		img := make([]byte, 64*1024)
		_, err = m.ReadAt(img, 0)
		require.NoError(t, err)
		return img
	}

	assert.Equal(t, write(), write())
}

func TestImageRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		nameGen := rapid.StringMatching(`[a-zA-Z][a-zA-Z0-9_.]{0,8}`)
		entries := make(map[string]*entry)
		files := rapid.IntRange(0, 12).Draw(t, "files")
		for i := 0; i < files; i++ {
			depth := rapid.IntRange(1, 3).Draw(t, "depth")
			parts := make([]string, depth)
			for j := range parts {
				parts[j] = nameGen.Draw(t, "part")
			}
			name := strings.Join(parts, "/")
			data := rapid.SliceOfN(rapid.Byte(), 0, 600).Draw(t, "data")
			putEntry(entries, &entry{name: name, data: data})
		}

		img, err := encodeImage(entries)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		decoded, err := decodeImage(img)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(decoded) != len(entries) {
			t.Fatalf("entry count changed: %d != %d", len(decoded), len(entries))
		}
		for k, e := range entries {
			d, ok := decoded[k]
			if !ok {
				t.Fatalf("entry %s lost", k)
			}
			if d.dir != e.dir || d.name != e.name || string(d.data) != string(e.data) {
				t.Fatalf("entry %s changed: %+v != %+v", k, d, e)
			}
		}
	})
}
