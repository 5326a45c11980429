package serializer

import "github.com/StephanKalika/mldb/region"

const wordSize = 8

// MemorySerializer is a heap-backed MappedSerializer. Each allocation is
// an independently owned buffer; freezing it is O(1) because a Go slice
// keeps its backing array alive for as long as any sub-slice of it is
// reachable, so the frozen region needs no release function of its own —
// unlike filearena's mmap-backed regions, ordinary heap memory is already
// managed by the Go runtime.
type MemorySerializer struct{}

// NewMemorySerializer returns a ready-to-use heap-backed serializer.
func NewMemorySerializer() *MemorySerializer {
	return &MemorySerializer{}
}

// AllocateAligned posix_memalign's a fresh block by over-allocating and
// slicing to the first alignment boundary, mirroring
// MemorySerializer::allocateWritable's posix_memalign call. It is
// exported so other heap-backed MappedSerializer implementations — such
// as zipcontainer's per-entry delegate — get the same alignment behavior
// without embedding a *MemorySerializer whose Freeze would bypass their
// own.
func AllocateAligned(bytesRequired uint64, alignment uint64) []byte {
	if alignment < wordSize {
		alignment = wordSize
	}
	if bytesRequired == 0 {
		return nil
	}

	raw := make([]byte, bytesRequired+alignment-1)
	base := uintptr(byteAddr(raw))
	aligned := (base + uintptr(alignment) - 1) &^ (uintptr(alignment) - 1)
	offset := aligned - base
	return raw[offset : offset+uintptr(bytesRequired) : offset+uintptr(bytesRequired)]
}

// AllocateWritable returns a region.WritableRegion over AllocateAligned's
// bytes, owned by m.
func (m *MemorySerializer) AllocateWritable(bytesRequired uint64, alignment uint64) (region.WritableRegion, error) {
	buf := AllocateAligned(bytesRequired, alignment)
	return region.NewWritableRegion(buf, region.Handle{}, m), nil
}

// Freeze reuses the WritableRegion's handle and pointer: freezing a
// memory-backed region never copies.
func (m *MemorySerializer) Freeze(w *region.WritableRegion) (region.FrozenRegion, error) {
	return region.NewFrozenRegion(w.Bytes(), w.Handle()), nil
}

// Commit is a no-op for the in-memory backend.
func (m *MemorySerializer) Commit() error {
	return nil
}
