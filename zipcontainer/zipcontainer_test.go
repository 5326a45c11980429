package zipcontainer

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/StephanKalika/mldb/container"
	"github.com/StephanKalika/mldb/region"
)

func writeEntry(t *testing.T, s container.StructuredSerializer, name container.PathElement, data []byte) {
	t.Helper()
	entry, err := s.NewEntry(name)
	require.NoError(t, err)
	w, err := entry.AllocateWritable(uint64(len(data)), 1)
	require.NoError(t, err)
	copy(w.Bytes(), data)
	_, err = w.Freeze()
	require.NoError(t, err)
}

func buildFixture(t *testing.T, path string) {
	t.Helper()
	base, err := NewSerializer(path)
	require.NoError(t, err)

	root, err := base.NewStructure("root")
	require.NoError(t, err)

	a := make([]byte, 256)
	for i := range a {
		a[i] = byte(i)
	}
	writeEntry(t, root, "a", a)

	b, err := root.NewStructure("b")
	require.NoError(t, err)
	writeEntry(t, b, "c", []byte("hello"))

	d := make([]byte, 1<<20)
	for i := range d {
		d[i] = 0x5A
	}
	writeEntry(t, b, "d", d)

	require.NoError(t, base.Commit())
	require.NoError(t, base.Close())
}

func openFixture(t *testing.T, path string) region.FrozenRegion {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return region.NewFrozenRegion(data, region.Handle{})
}

func TestZipContainerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.zip")
	buildFixture(t, path)

	src := openFixture(t, path)
	r, err := Open(src)
	require.NoError(t, err)

	top, err := r.GetDirectory()
	require.NoError(t, err)
	require.Len(t, top, 1)
	require.Equal(t, container.PathElement("root"), top[0].Name)
	require.Nil(t, top[0].GetBlock)
	require.NotNil(t, top[0].GetStructure)

	rootStruct, err := r.GetStructure("root")
	require.NoError(t, err)

	children, err := rootStruct.GetDirectory()
	require.NoError(t, err)
	require.Len(t, children, 2)
	require.Equal(t, container.PathElement("a"), children[0].Name)
	require.Equal(t, container.PathElement("b"), children[1].Name)

	aRegion, err := rootStruct.GetRegion("a")
	require.NoError(t, err)
	require.Equal(t, 256, aRegion.Len())
	for i, b := range aRegion.Bytes() {
		require.Equal(t, byte(i), b)
	}

	bStruct, err := rootStruct.GetStructure("b")
	require.NoError(t, err)

	cRegion, err := bStruct.GetRegion("c")
	require.NoError(t, err)
	require.Equal(t, "hello", string(cRegion.Bytes()))

	dRegion, err := bStruct.GetRegion("d")
	require.NoError(t, err)
	require.Equal(t, 1<<20, dRegion.Len())
	for _, b := range dRegion.Bytes() {
		require.Equal(t, byte(0x5A), b)
	}
}

func TestZipContainerGetRegionRecursiveViaHelpers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.zip")
	buildFixture(t, path)

	src := openFixture(t, path)
	r, err := Open(src)
	require.NoError(t, err)

	fr, err := container.GetRegionRecursive(r, container.ParsePath("root/b/c"))
	require.NoError(t, err)
	require.Equal(t, "hello", string(fr.Bytes()))
}

func TestZipContainerEntryIDStampedOnEveryEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.zip")
	buildFixture(t, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	require.NotEmpty(t, zr.File)
	var firstID string
	for i, f := range zr.File {
		id, ok := EntryID(f)
		require.True(t, ok, "entry %s missing EntryID", f.Name)
		require.NotEmpty(t, id)
		if i == 0 {
			firstID = id
		} else {
			require.Equal(t, firstID, id, "all entries from one writer share its writerID")
		}
	}
}

func TestZipContainerMissingEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.zip")
	buildFixture(t, path)

	src := openFixture(t, path)
	r, err := Open(src)
	require.NoError(t, err)

	rootStruct, err := r.GetStructure("root")
	require.NoError(t, err)
	_, err = rootStruct.GetRegion("nonexistent")
	require.Error(t, err)
}
