// Package region implements the immutable FrozenRegion and mutable
// WritableRegion views over byte ranges that back the rest of the
// serialization substrate. It is grounded on the FrozenMemoryRegion /
// MutableMemoryRegion pair in
// _examples/original_source/plugins/memory_region.cc, translated to Go's
// slice-plus-explicit-lifetime idiom per that file's design notes.
package region

import (
	"fmt"

	"github.com/StephanKalika/mldb/mldberr"
)

// Freezer is implemented by whatever produced a WritableRegion. Freeze
// converts the region's bytes into an immutable FrozenRegion, deciding how
// to construct the resulting lifetime handle (reuse the arena's handle for
// a file-backed region, or take ownership of a heap block for a
// memory-backed one).
type Freezer interface {
	Freeze(w *WritableRegion) (FrozenRegion, error)
}

// FrozenRegion is an immutable, shareable, sub-rangeable view over bytes
// whose backing storage is kept alive by handle. The zero value is an
// empty region with no backing storage.
type FrozenRegion struct {
	bytes  []byte
	handle Handle
}

// NewFrozenRegion constructs a FrozenRegion directly over bytes, owning
// handle. Serializer implementations use this to hand out freshly frozen
// or memory-mapped regions.
func NewFrozenRegion(bytes []byte, handle Handle) FrozenRegion {
	return FrozenRegion{bytes: bytes, handle: handle}
}

// Len returns the region's length in bytes.
func (r FrozenRegion) Len() int {
	return len(r.bytes)
}

// Bytes returns the region's bytes. The caller must not write through the
// returned slice; doing so violates the freeze invariant.
func (r FrozenRegion) Bytes() []byte {
	return r.bytes
}

// Range returns the sub-region [start, end), sharing this region's
// lifetime handle. It fails with mldberr.ErrInvalidArgument if the bounds
// are inverted or exceed the region's length.
func (r FrozenRegion) Range(start, end int) (FrozenRegion, error) {
	if start < 0 || end < start || end > len(r.bytes) {
		return FrozenRegion{}, mldberr.Wrap(mldberr.ErrInvalidArgument,
			fmt.Sprintf("region.Range(%d, %d) out of bounds for length %d", start, end, len(r.bytes)),
			nil)
	}
	return FrozenRegion{
		bytes:  r.bytes[start:end],
		handle: r.handle.Clone(),
	}, nil
}

// Clone returns an independent reference to the same bytes, bumping the
// underlying lifetime handle's refcount. Use this when a FrozenRegion is
// handed to more than one owner that will each call Release.
func (r FrozenRegion) Clone() FrozenRegion {
	return FrozenRegion{bytes: r.bytes, handle: r.handle.Clone()}
}

// Release drops this region's reference to its backing storage. When the
// last reference across every clone and sub-range is released, the
// backing storage (heap block, mmap, parent region) is freed.
func (r FrozenRegion) Release() {
	r.handle.Release()
}

// WritableRegion is a mutable view over bytes tied to the serializer that
// produced it. No two live WritableRegions may alias overlapping bytes;
// that invariant is enforced by construction, not by this type.
type WritableRegion struct {
	bytes  []byte
	handle Handle
	owner  Freezer
	frozen bool
}

// NewWritableRegion constructs a WritableRegion over bytes owned by
// handle, produced by owner's allocation path.
func NewWritableRegion(bytes []byte, handle Handle, owner Freezer) WritableRegion {
	return WritableRegion{bytes: bytes, handle: handle, owner: owner}
}

// Len returns the region's length in bytes.
func (w *WritableRegion) Len() int {
	return len(w.bytes)
}

// Bytes returns the mutable backing slice. Calling this after Freeze
// panics: the region has already been consumed.
func (w *WritableRegion) Bytes() []byte {
	if w.frozen {
		panic("region: WritableRegion used after freeze")
	}
	return w.bytes
}

// Handle exposes the region's lifetime handle so a serializer's Freeze
// implementation can reuse it (the file-backed case, where freezing is
// zero-copy) rather than always taking ownership of a fresh block.
func (w *WritableRegion) Handle() Handle {
	return w.handle
}

// Freeze delegates to the owning serializer, which decides how to build
// the resulting FrozenRegion's lifetime handle. After Freeze returns, w
// must not be used again.
func (w *WritableRegion) Freeze() (FrozenRegion, error) {
	if w.frozen {
		panic("region: WritableRegion frozen twice")
	}
	fr, err := w.owner.Freeze(w)
	if err != nil {
		return FrozenRegion{}, err
	}
	w.frozen = true
	return fr, nil
}
