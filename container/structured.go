package container

import (
	"github.com/StephanKalika/mldb/region"
	"github.com/StephanKalika/mldb/serializer"
)

// StructuredSerializer is the capability to build a hierarchical, named
// byte-blob tree: child structures, leaf entries (each a MappedSerializer
// in its own right), and streams. Concrete backends are
// zipcontainer.BaseSerializer and its relative-path delegates.
type StructuredSerializer interface {
	// NewStructure returns a logical child directory at name.
	NewStructure(name PathElement) (StructuredSerializer, error)

	// NewEntry returns a leaf serializer whose frozen output will be
	// stored under name.
	NewEntry(name PathElement) (serializer.MappedSerializer, error)

	// Commit finalizes this structure.
	Commit() error
}

// NewStream is sugar for a leaf entry whose bytes come from a stream: it
// opens an entry at name and wraps it in a Sink.
func NewStream(s StructuredSerializer, name PathElement) (*serializer.Sink, error) {
	entry, err := s.NewEntry(name)
	if err != nil {
		return nil, err
	}
	return serializer.NewSink(entry), nil
}

// AddRegion is sugar equivalent to NewEntry(name).Copy(region) followed by
// freeze: it rehomes an arbitrary FrozenRegion into a new leaf entry under
// name.
func AddRegion(s StructuredSerializer, src region.FrozenRegion, name PathElement) error {
	entry, err := s.NewEntry(name)
	if err != nil {
		return err
	}
	_, err = serializer.Copy(entry, src)
	return err
}
