package serializer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestMemorySerializerRoundTrip is scenario S1 from spec.md §8: allocate
// regions of sizes 1..1000, fill deterministically, freeze, verify.
func TestMemorySerializerRoundTrip(t *testing.T) {
	m := NewMemorySerializer()

	frozen := make([][]byte, 1000)
	for size := 1; size <= 1000; size++ {
		w, err := m.AllocateWritable(uint64(size), 1)
		require.NoError(t, err)
		require.Equal(t, size, w.Len())

		buf := w.Bytes()
		for i := range buf {
			buf[i] = byte((size + i) % 256)
		}

		fr, err := w.Freeze()
		require.NoError(t, err)
		frozen[size-1] = append([]byte(nil), fr.Bytes()...)
	}

	for size := 1; size <= 1000; size++ {
		want := make([]byte, size)
		for i := range want {
			want[i] = byte((size + i) % 256)
		}
		require.Equal(t, want, frozen[size-1], "size=%d", size)
	}
}

func TestMemorySerializerAlignment(t *testing.T) {
	m := NewMemorySerializer()
	for _, alignment := range []uint64{1, 2, 4, 8, 16, 64, 4096} {
		w, err := m.AllocateWritable(37, alignment)
		require.NoError(t, err)
		require.Equal(t, 37, w.Len())

		want := alignment
		if want < 8 {
			want = 8
		}
		addr := byteAddr(w.Bytes())
		require.Zero(t, uintptr(addr)%uintptr(want), "alignment=%d", alignment)
	}
}

func TestMemorySerializerZeroByteAllocation(t *testing.T) {
	m := NewMemorySerializer()
	w, err := m.AllocateWritable(0, 8)
	require.NoError(t, err)
	require.Equal(t, 0, w.Len())

	fr, err := w.Freeze()
	require.NoError(t, err)
	require.Equal(t, 0, fr.Len())
}

func TestCopyRehomesRegionBytes(t *testing.T) {
	m := NewMemorySerializer()
	w, err := m.AllocateWritable(5, 1)
	require.NoError(t, err)
	copy(w.Bytes(), []byte("hello"))
	src, err := w.Freeze()
	require.NoError(t, err)

	dst, err := Copy(m, src)
	require.NoError(t, err)
	require.Equal(t, src.Bytes(), dst.Bytes())
}
