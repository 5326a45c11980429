package filearena

// arena is a contiguous mmap'd span of the backing file, bump-allocated.
// Grounded on FileSerializer::Itl::Arena in memory_region.cc.
type arena struct {
	data        []byte // the mmap'd span; len(data) is the arena's mapped length
	startOffset int64  // offset of this arena within the file
	writeOffset int64  // bump pointer, writeOffset <= len(data)
}

// allocate bump-allocates bytesRequired bytes aligned to alignment. It
// returns the offset (within the arena) of the allocation and true on
// success, or false if the arena has no room.
func (a *arena) allocate(bytesRequired uint64, alignment uint64) (int64, bool) {
	pad := int64(0)
	if rem := a.writeOffset % int64(alignment); rem != 0 {
		pad = int64(alignment) - rem
	}
	need := pad + int64(bytesRequired)
	if a.writeOffset+need > int64(len(a.data)) {
		return 0, false
	}
	off := a.writeOffset + pad
	a.writeOffset += need
	return off, true
}

func (a *arena) freeSpace() int64 {
	return int64(len(a.data)) - a.writeOffset
}
