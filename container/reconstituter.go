package container

import (
	"bytes"
	"io"

	"github.com/StephanKalika/mldb/mldberr"
	"github.com/StephanKalika/mldb/region"
)

// DirectoryEntry describes one immediate child of a StructuredReconstituter
// node: a leaf (GetBlock non-nil), a subtree (GetStructure non-nil), or
// both is never the case for the zip backend but is not prohibited by the
// abstraction.
type DirectoryEntry struct {
	Name         PathElement
	GetBlock     func() (region.FrozenRegion, error)
	GetStructure func() (StructuredReconstituter, error)
}

// StructuredReconstituter is the read-side inverse of StructuredSerializer:
// list children, fetch a named leaf as a FrozenRegion, descend into a
// named child structure, or open a read stream over a leaf.
type StructuredReconstituter interface {
	GetDirectory() ([]DirectoryEntry, error)
	GetRegion(name PathElement) (region.FrozenRegion, error)
	GetStructure(name PathElement) (StructuredReconstituter, error)
}

// GetRegionRecursive walks path one element at a time, descending via
// GetStructure until the last element, which is fetched with GetRegion.
func GetRegionRecursive(r StructuredReconstituter, path Path) (region.FrozenRegion, error) {
	if path.Empty() {
		return region.FrozenRegion{}, mldberr.Wrap(mldberr.ErrInvalidArgument, "container: GetRegionRecursive on empty path", nil)
	}
	if len(path) == 1 {
		return r.GetRegion(path[0])
	}
	child, err := r.GetStructure(path[0])
	if err != nil {
		return region.FrozenRegion{}, err
	}
	rest, err := path.Tail()
	if err != nil {
		return region.FrozenRegion{}, err
	}
	return GetRegionRecursive(child, rest)
}

// GetStructureRecursive descends into r one path element at a time,
// returning the structure found at the end of path.
func GetStructureRecursive(r StructuredReconstituter, path Path) (StructuredReconstituter, error) {
	current := r
	for _, el := range path {
		next, err := current.GetStructure(el)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

// GetStream returns a seekable byte source over the region at name,
// supporting absolute, relative, and from-end seeks via bytes.Reader —
// the Go standard library's equivalent of the original's custom
// ReconstituteStreamHandler streambuf.
func GetStream(r StructuredReconstituter, name PathElement) (io.ReadSeeker, error) {
	fr, err := r.GetRegion(name)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(fr.Bytes()), nil
}

// GetStreamRecursive is the recursive counterpart to GetStream.
func GetStreamRecursive(r StructuredReconstituter, path Path) (io.ReadSeeker, error) {
	fr, err := GetRegionRecursive(r, path)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(fr.Bytes()), nil
}
