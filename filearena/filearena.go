// Package filearena implements FileSerializer, the file-backed
// MappedSerializer whose allocations are bump-allocated out of a sequence
// of memory-mapped arenas grown by ftruncate+mmap+mremap. It is the hard
// component of the substrate: allocations must hand out stable pointers
// that survive later growth, and growth must never relocate an arena that
// already has outstanding pointers into it. Grounded on
// FileSerializer::Itl in
// _examples/original_source/plugins/memory_region.cc, translated to Go's
// golang.org/x/sys/unix mmap/mremap primitives.
package filearena

import (
	"fmt"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/StephanKalika/mldb/mldberr"
	"github.com/StephanKalika/mldb/region"
	"github.com/StephanKalika/mldb/zapx"
)

const wordSize = 8

// mremap is a variable so tests can force the in-place expansion path to
// fail deterministically (spec.md §8 scenario S3), the Go analogue of
// "wrapping the remap primitive."
var mremap = unix.Mremap

// FileSerializer backs every allocation with a single growable file. A
// mutex serializes allocation; freeze is lock-free because it only
// packages an already-stable pointer.
type FileSerializer struct {
	mu     sync.Mutex
	cfg    Config
	log    zapx.Logger
	file   *os.File
	path   string
	arenas []*arena
	total  int64 // sum of arena lengths == tracked file size
}

// Option configures a FileSerializer at construction.
type Option func(*FileSerializer)

// WithConfig overrides the default page-size/arena-size limits.
func WithConfig(cfg Config) Option {
	return func(f *FileSerializer) { f.cfg = cfg }
}

// WithLogger attaches a logger for arena creation/expansion/commit
// diagnostics.
func WithLogger(log zapx.Logger) Option {
	return func(f *FileSerializer) { f.log = log }
}

// New creates a FileSerializer backed by path, truncating any existing
// file there, mirroring FileSerializer::Itl's O_CREAT|O_RDWR|O_TRUNC open.
func New(path string, opts ...Option) (*FileSerializer, error) {
	f := &FileSerializer{cfg: DefaultConfig(), path: path}
	for _, opt := range opts {
		opt(f)
	}
	f.log = zapx.Default(f.log)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, mldberr.Wrap(mldberr.ErrResourceExhausted, "filearena: open "+path, err)
	}
	f.file = file
	return f, nil
}

// AllocateWritable implements serializer.MappedSerializer. See spec.md
// §4.5 for the five-step algorithm.
func (f *FileSerializer) AllocateWritable(bytesRequired uint64, alignment uint64) (region.WritableRegion, error) {
	if alignment < wordSize {
		alignment = wordSize
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if bytesRequired == 0 {
		return region.NewWritableRegion(nil, region.Handle{}, f), nil
	}

	off, ar, err := f.allocateLocked(bytesRequired, alignment)
	if err != nil {
		return region.WritableRegion{}, err
	}

	end := off + int64(bytesRequired)
	buf := ar.data[off:end:end]
	if len(buf) > 0 && uintptr(unsafe.Pointer(&buf[0]))%uintptr(alignment) != 0 {
		return region.WritableRegion{}, mldberr.Wrap(mldberr.ErrInternal, "filearena: misaligned allocation", nil)
	}
	// The handle is empty: like the original's no-op deleter for arena
	// pointers, validity of buf is scoped to the FileSerializer's own
	// lifetime (see Close), not to a per-region refcount.
	return region.NewWritableRegion(buf, region.Handle{}, f), nil
}

func (f *FileSerializer) allocateLocked(bytesRequired, alignment uint64) (int64, *arena, error) {
	if len(f.arenas) == 0 {
		if err := f.createArena(bytesRequired + alignment); err != nil {
			return 0, nil, err
		}
	}

	for {
		last := f.arenas[len(f.arenas)-1]
		if off, ok := last.allocate(bytesRequired, alignment); ok {
			return off, last, nil
		}
		if !f.expandLastArena(bytesRequired + alignment) {
			if err := f.createArena(bytesRequired + alignment); err != nil {
				return 0, nil, err
			}
		}
	}
}

// createArena maps a fresh arena sized to fit bytesRequired, enforcing
// the geometric-growth floor from spec.md §4.5: at least
// total/(8*pageSize) pages, so the file roughly doubles every four
// allocations.
func (f *FileSerializer) createArena(bytesRequired uint64) error {
	if err := f.verifyLength(); err != nil {
		return err
	}

	pageSize := f.cfg.pageSize()
	numPages := ceilDiv(int64(bytesRequired), pageSize)
	if numPages < f.cfg.minArenaPages() {
		numPages = f.cfg.minArenaPages()
	}
	if geometric := ceilDiv(f.total, pageSize) / 8; numPages < geometric {
		numPages = geometric
	}
	newLength := numPages * pageSize

	if err := f.file.Truncate(f.total + newLength); err != nil {
		return mldberr.Wrap(mldberr.ErrResourceExhausted, "filearena: ftruncate (create arena)", err)
	}

	data, err := unix.Mmap(int(f.file.Fd()), f.total, int(newLength),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return mldberr.Wrap(mldberr.ErrResourceExhausted, "filearena: mmap (create arena)", err)
	}

	f.log.Debugf("filearena: new arena of %d bytes at offset %d", newLength, f.total)

	f.arenas = append(f.arenas, &arena{data: data, startOffset: f.total})
	f.total += newLength

	return f.verifyLength()
}

// expandLastArena attempts an in-place mremap of the last arena to a
// larger length. If the kernel cannot satisfy the remap without
// relocating it, the truncate is reverted and false is returned so the
// caller falls back to creating a fresh arena; outstanding pointers into
// the arena must never be invalidated by relocation.
func (f *FileSerializer) expandLastArena(bytesRequired uint64) bool {
	if err := f.verifyLength(); err != nil {
		return false
	}

	last := f.arenas[len(f.arenas)-1]
	pageSize := f.cfg.pageSize()
	grow := ceilDiv(int64(bytesRequired), pageSize)
	if grow < f.cfg.minExpansionPages() {
		grow = f.cfg.minExpansionPages()
	}
	growBytes := grow * pageSize
	newLength := int64(len(last.data)) + growBytes

	if err := f.file.Truncate(f.total + growBytes); err != nil {
		return false
	}

	// flags=0 forbids relocation: this either grows last.data in place or
	// fails, it never returns a different address.
	newData, err := mremap(last.data, int(newLength), 0)
	if err != nil {
		f.log.Debugf("filearena: in-place expansion failed (%v), falling back to new arena", err)
		if terr := f.file.Truncate(f.total); terr != nil {
			f.log.Errorf("filearena: failed to revert truncate after failed expansion: %v", terr)
		}
		_ = f.verifyLength()
		return false
	}

	f.log.Debugf("filearena: expanded arena from %d to %d bytes", len(last.data), newLength)

	f.total += growBytes
	last.data = newData

	return f.verifyLength() == nil
}

// verifyLength checks the fstat invariant from spec.md §4.5: on-disk size
// must equal tracked total at every externally observable point.
func (f *FileSerializer) verifyLength() error {
	st, err := f.file.Stat()
	if err != nil {
		return mldberr.Wrap(mldberr.ErrIOFailure, "filearena: fstat", err)
	}
	if st.Size() != f.total {
		return mldberr.Wrap(mldberr.ErrIOFailure,
			fmt.Sprintf("filearena: fstat size %d does not match tracked total %d", st.Size(), f.total), nil)
	}
	return nil
}

// Freeze packages the WritableRegion's already-stable pointer into a
// FrozenRegion. It never copies: the arena mapping backing w.Bytes() is
// already read/write shared memory and stays valid for the lifetime of
// the FileSerializer.
func (f *FileSerializer) Freeze(w *region.WritableRegion) (region.FrozenRegion, error) {
	return region.NewFrozenRegion(w.Bytes(), w.Handle()), nil
}

// Commit truncates the file down to the populated length: the last
// arena's startOffset+writeOffset, discarding any slack past that point.
// Calling Commit more than once is equivalent to calling it once.
func (f *FileSerializer) Commit() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.commitLocked()
}

func (f *FileSerializer) commitLocked() error {
	if len(f.arenas) == 0 {
		return nil
	}
	last := f.arenas[len(f.arenas)-1]
	realLength := last.startOffset + last.writeOffset
	if err := f.file.Truncate(realLength); err != nil {
		return mldberr.Wrap(mldberr.ErrResourceExhausted, "filearena: ftruncate (commit)", err)
	}
	f.log.Debugf("filearena: committed at %d bytes", realLength)
	return nil
}

// Close commits (mirroring the original destructor's commit-on-drop
// behavior when any arena was allocated), unmaps every arena, and closes
// the file descriptor. Close is not safe to call concurrently with
// AllocateWritable.
func (f *FileSerializer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var commitErr error
	if len(f.arenas) > 0 {
		commitErr = f.commitLocked()
	}

	for _, ar := range f.arenas {
		if err := unix.Munmap(ar.data); err != nil {
			f.log.Errorf("filearena: munmap failed for arena at offset %d: %v", ar.startOffset, err)
		}
	}
	f.arenas = nil

	closeErr := f.file.Close()
	if commitErr != nil {
		return commitErr
	}
	return closeErr
}
