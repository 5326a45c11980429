// Package mapfile implements the mapFile entry point from
// _examples/original_source/plugins/memory_region.cc: given a file:// URL
// and an arbitrary [startOffset, startOffset+length) span, it opens the
// file read-only, memory-maps the page-aligned span that covers it, and
// returns a FrozenRegion sliced down to exactly [startOffset,
// startOffset+length), whose lifetime handle owns both the mapping and
// the file descriptor.
package mapfile

import (
	"fmt"
	"net/url"
	"os"

	"golang.org/x/sys/unix"

	"github.com/StephanKalika/mldb/mldberr"
	"github.com/StephanKalika/mldb/region"
	"github.com/StephanKalika/mldb/zapx"
)

// LengthToEOF tells Open to map from startOffset to the file's end, the
// Go spelling of the original's length == -1 sentinel.
const LengthToEOF int64 = -1

// Option configures Open.
type Option func(*options)

type options struct {
	log zapx.Logger
}

// WithLogger attaches a logger for mapping-arithmetic diagnostics,
// replacing the original's cerr tracing (SPEC_FULL.md §5.3).
func WithLogger(log zapx.Logger) Option {
	return func(o *options) { o.log = log }
}

// Open maps rawURL, which must have scheme file://, and returns a
// FrozenRegion over [startOffset, startOffset+length). If length is
// LengthToEOF, the span runs to the file's current size.
func Open(rawURL string, startOffset int64, length int64, opts ...Option) (region.FrozenRegion, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	o.log = zapx.Default(o.log)

	u, err := url.Parse(rawURL)
	if err != nil {
		return region.FrozenRegion{}, mldberr.Wrap(mldberr.ErrInvalidArgument, "mapfile: parse URL "+rawURL, err)
	}
	if u.Scheme != "file" {
		return region.FrozenRegion{}, mldberr.Wrap(mldberr.ErrUnsupported,
			"mapfile: only file:// URLs can be memory mapped, got scheme "+u.Scheme, nil)
	}

	file, err := os.OpenFile(u.Path, os.O_RDONLY, 0)
	if err != nil {
		return region.FrozenRegion{}, mldberr.Wrap(mldberr.ErrResourceExhausted, "mapfile: open "+u.Path, err)
	}

	if length == LengthToEOF {
		st, err := file.Stat()
		if err != nil {
			file.Close()
			return region.FrozenRegion{}, mldberr.Wrap(mldberr.ErrResourceExhausted, "mapfile: stat "+u.Path, err)
		}
		length = st.Size() - startOffset
	}

	o.log.Debugf("mapfile: file span is %d for %d bytes", startOffset, length)

	pageSize := int64(unix.Getpagesize())
	mapOffset := startOffset &^ (pageSize - 1)
	mapLength := (startOffset - mapOffset + length + pageSize - 1) &^ (pageSize - 1)

	o.log.Debugf("mapfile: mapping from %d for %d bytes", mapOffset, mapLength)

	if mapLength == 0 {
		file.Close()
		return region.NewFrozenRegion(nil, region.Handle{}), nil
	}

	data, err := unix.Mmap(int(file.Fd()), mapOffset, int(mapLength), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		file.Close()
		return region.FrozenRegion{}, mldberr.Wrap(mldberr.ErrResourceExhausted, "mapfile: mmap "+u.Path, err)
	}

	skip := startOffset % pageSize
	o.log.Debugf("mapfile: taking off %d bytes, length = %d", skip, length)

	handle := region.NewHandle(func() {
		if err := unix.Munmap(data); err != nil {
			o.log.Errorf("mapfile: munmap %s: %v", u.Path, err)
		}
		if err := file.Close(); err != nil {
			o.log.Errorf("mapfile: close %s: %v", u.Path, err)
		}
	})

	end := skip + length
	if end > int64(len(data)) {
		handle.Release()
		return region.FrozenRegion{}, mldberr.Wrap(mldberr.ErrInternal,
			fmt.Sprintf("mapfile: mapped span too short: need %d bytes from offset %d, got %d", length, skip, len(data)), nil)
	}

	return region.NewFrozenRegion(data[skip:end], handle), nil
}
