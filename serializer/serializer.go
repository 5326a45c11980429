// Package serializer implements the MappedSerializer capability: allocate
// writable bytes, freeze them, copy a frozen region into this serializer's
// storage, and capture an output stream into a frozen region on close.
// Grounded on the MappedSerializer / MemorySerializer split in
// _examples/original_source/plugins/memory_region.cc.
package serializer

import "github.com/StephanKalika/mldb/region"

// MappedSerializer is the allocate-and-freeze capability. Concrete
// backends (MemorySerializer here, filearena.FileSerializer, and the
// zip-entry delegate in package zipcontainer) each implement it.
type MappedSerializer interface {
	region.Freezer

	// AllocateWritable returns a region of exactly bytesRequired bytes
	// whose first byte is aligned to max(alignment, word size). A
	// zero-byte request yields an empty region. Failures on the
	// underlying allocator/mmap/ftruncate surface as
	// mldberr.ErrResourceExhausted.
	AllocateWritable(bytesRequired uint64, alignment uint64) (region.WritableRegion, error)

	// Commit flushes backend state. The default for in-memory backends is
	// a no-op.
	Commit() error
}

// Copy allocates src.Len() bytes from m and copies src into them,
// rehoming an arbitrary FrozenRegion into m's own storage. Every
// MappedSerializer gets this behavior for free, the same way the C++ base
// class implements MappedSerializer::copy once for all backends.
func Copy(m MappedSerializer, src region.FrozenRegion) (region.FrozenRegion, error) {
	w, err := m.AllocateWritable(uint64(src.Len()), 1)
	if err != nil {
		return region.FrozenRegion{}, err
	}
	copy(w.Bytes(), src.Bytes())
	return w.Freeze()
}
