package serializer

import (
	"bytes"

	"github.com/StephanKalika/mldb/mldberr"
	"github.com/StephanKalika/mldb/region"
)

// Sink is the scoped-release byte-sink capability described in
// memory_region.cc's SerializerStreamHandler: bytes written to it are
// buffered, and on Close the buffered bytes are allocated and copied into
// a fresh FrozenRegion owned by the serializer that produced the sink. Go
// has no destructors, so callers must `defer sink.Close()` to get the
// "guaranteed freeze on every exit path" property the original gets from
// scope exit; Close is idempotent, matching SPEC_FULL.md's completion of
// the original's scoped-release pattern.
type Sink struct {
	owner  MappedSerializer
	buf    bytes.Buffer
	closed bool
	region region.FrozenRegion
	err    error
}

// NewSink returns a Sink whose bytes will be captured into a frozen
// region allocated from owner when the sink is closed.
func NewSink(owner MappedSerializer) *Sink {
	return &Sink{owner: owner}
}

// Write buffers p. It fails only if the sink is already closed;
// allocation failures surface at Close when the buffered bytes are
// allocated into the owning serializer.
func (s *Sink) Write(p []byte) (int, error) {
	if s.closed {
		return 0, mldberr.Wrap(mldberr.ErrIOFailure, "serializer: write to closed sink", nil)
	}
	return s.buf.Write(p)
}

// Close allocates and freezes the buffered bytes. A second call is a
// no-op and returns the error, if any, from the first call.
func (s *Sink) Close() error {
	if s.closed {
		return s.err
	}
	s.closed = true

	w, err := s.owner.AllocateWritable(uint64(s.buf.Len()), 1)
	if err != nil {
		s.err = err
		return err
	}
	copy(w.Bytes(), s.buf.Bytes())
	fr, err := w.Freeze()
	if err != nil {
		s.err = err
		return err
	}
	s.region = fr
	return nil
}

// Region returns the frozen region produced by Close. It is the zero
// FrozenRegion until Close has run successfully.
func (s *Sink) Region() region.FrozenRegion {
	return s.region
}
