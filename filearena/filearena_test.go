package filearena

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func smallConfig() Config {
	// Keep arenas tiny so tests exercise growth without allocating
	// hundreds of megabytes.
	return Config{PageSize: 4096, MinArenaPages: 4, MinExpansionPages: 4}
}

// TestFileSerializerGrowth is scenario S2 from spec.md §8, scaled down via
// a small page-size config rather than 16 MiB regions so the test suite
// stays fast; it exercises the same growth path (repeated allocations
// past a single arena's capacity).
func TestFileSerializerGrowth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arena.bin")
	f, err := New(path, WithConfig(smallConfig()))
	require.NoError(t, err)
	defer f.Close()

	const regionSize = 8192
	const count = 10

	regions := make([][]byte, count)
	for i := 0; i < count; i++ {
		w, err := f.AllocateWritable(regionSize, 1)
		require.NoError(t, err)
		require.Equal(t, regionSize, w.Len())

		buf := w.Bytes()
		fill := byte(i + 1)
		for j := range buf {
			buf[j] = fill
		}

		fr, err := w.Freeze()
		require.NoError(t, err)
		regions[i] = fr.Bytes()
	}

	for i, r := range regions {
		want := make([]byte, regionSize)
		for j := range want {
			want[j] = byte(i + 1)
		}
		require.Equal(t, want, r, "region %d", i)
	}

	require.NoError(t, f.Commit())

	st, err := os.Stat(path)
	require.NoError(t, err)
	require.GreaterOrEqual(t, st.Size(), int64(regionSize*count))
}

// TestFileSerializerRemapFailureFallsBackToNewArena is scenario S3 from
// spec.md §8: force in-place expansion to fail on every attempt and
// verify allocation still succeeds via arena creation, with every prior
// pointer remaining valid.
func TestFileSerializerRemapFailureFallsBackToNewArena(t *testing.T) {
	old := mremap
	mremap = func(oldData []byte, newLength int, flags int) ([]byte, error) {
		return nil, errors.New("forced remap failure")
	}
	defer func() { mremap = old }()

	path := filepath.Join(t.TempDir(), "arena.bin")
	f, err := New(path, WithConfig(smallConfig()))
	require.NoError(t, err)
	defer f.Close()

	var all [][]byte
	for i := 0; i < 20; i++ {
		w, err := f.AllocateWritable(4096, 1)
		require.NoError(t, err)
		buf := w.Bytes()
		for j := range buf {
			buf[j] = byte(i)
		}
		fr, err := w.Freeze()
		require.NoError(t, err)
		all = append(all, fr.Bytes())
	}

	require.Greater(t, len(f.arenas), 1, "expected expansion failures to force new arenas")

	for i, r := range all {
		want := make([]byte, 4096)
		for j := range want {
			want[j] = byte(i)
		}
		require.Equal(t, want, r, "region %d", i)
	}
}

func TestFileSerializerCommitIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arena.bin")
	f, err := New(path, WithConfig(smallConfig()))
	require.NoError(t, err)
	defer f.Close()

	w, err := f.AllocateWritable(100, 1)
	require.NoError(t, err)
	_, err = w.Freeze()
	require.NoError(t, err)

	require.NoError(t, f.Commit())
	st1, err := os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, f.Commit())
	st2, err := os.Stat(path)
	require.NoError(t, err)

	require.Equal(t, st1.Size(), st2.Size())
}

func TestFileSerializerZeroByteAllocation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arena.bin")
	f, err := New(path, WithConfig(smallConfig()))
	require.NoError(t, err)
	defer f.Close()

	w, err := f.AllocateWritable(0, 8)
	require.NoError(t, err)
	require.Equal(t, 0, w.Len())
	fr, err := w.Freeze()
	require.NoError(t, err)
	require.Equal(t, 0, fr.Len())
}
