package mapfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.bin")
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 256)
	}
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestOpenSubPageOffset(t *testing.T) {
	path := writeFixture(t, 10000)

	fr, err := Open("file://"+path, 137, 9000)
	require.NoError(t, err)
	defer fr.Release()

	require.Equal(t, 9000, fr.Len())
	require.Equal(t, byte(137%256), fr.Bytes()[0])
	for i := 0; i < fr.Len(); i++ {
		require.Equal(t, byte((137+i)%256), fr.Bytes()[i])
	}
}

func TestOpenLengthToEOF(t *testing.T) {
	path := writeFixture(t, 5000)

	fr, err := Open("file://"+path, 0, LengthToEOF)
	require.NoError(t, err)
	defer fr.Release()

	require.Equal(t, 5000, fr.Len())
}

func TestOpenRejectsNonFileScheme(t *testing.T) {
	_, err := Open("https://example.com/data.bin", 0, 10)
	require.Error(t, err)
}

func TestOpenRejectsMissingFile(t *testing.T) {
	_, err := Open("file:///nonexistent/path/to/nowhere.bin", 0, 10)
	require.Error(t, err)
}

func TestOpenReleaseUnmapsWithoutPanicking(t *testing.T) {
	path := writeFixture(t, 4096*3)

	fr, err := Open("file://"+path, 0, LengthToEOF)
	require.NoError(t, err)
	fr.Release()
}
