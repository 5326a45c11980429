package region

import "sync/atomic"

// Handle is the lifetime root shared by a FrozenRegion or WritableRegion and
// every sub-range derived from it. It mirrors the "shared pointer to void"
// pattern in memory_region.cc: a reference-counted token whose release
// function frees whatever backs the bytes — a heap allocation, an mmap, a
// parent region, or nothing at all for a borrowed region.
//
// Handle is a value type so it can be embedded directly in FrozenRegion /
// WritableRegion; Clone bumps the shared counter and must be paired with a
// Release, exactly as a shared_ptr copy must be paired with its destructor
// running.
type Handle struct {
	state *handleState
}

type handleState struct {
	refs    int32
	release func()
}

// NewHandle wraps release in a fresh, single-owner lifetime handle. release
// may be nil for regions that own nothing (the zero-byte allocation case).
func NewHandle(release func()) Handle {
	return Handle{state: &handleState{refs: 1, release: release}}
}

// Clone returns a new reference to the same underlying storage, bumping the
// shared refcount. The caller owns the returned Handle and must Release it
// independently of the original.
func (h Handle) Clone() Handle {
	if h.state == nil {
		return h
	}
	atomic.AddInt32(&h.state.refs, 1)
	return h
}

// Release drops this reference. When the last reference is released, the
// handle's release function runs exactly once.
func (h Handle) Release() {
	if h.state == nil {
		return
	}
	if atomic.AddInt32(&h.state.refs, -1) == 0 {
		if h.state.release != nil {
			h.state.release()
		}
	}
}
