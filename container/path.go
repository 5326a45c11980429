// Package container defines the hierarchical, named-blob abstractions —
// Path/PathElement, StructuredSerializer, and StructuredReconstituter —
// that sit above the MappedSerializer capability. Grounded on
// StructuredSerializer / StructuredReconstituter in
// _examples/original_source/plugins/memory_region.cc, with Path modeled
// after the prefix/path-composition helpers in
// massifs/storageschema/storagepaths.go (a string-prefix version of the
// same "compose a storage address from named segments" idea).
package container

import (
	"strings"

	"github.com/StephanKalika/mldb/mldberr"
)

// PathElement is one nonempty name in a Path.
type PathElement string

// Path is an ordered sequence of PathElements: the logical address of an
// entry within a StructuredSerializer/Reconstituter, and the archive-entry
// pathname in the zip backend. The empty Path denotes the root.
type Path []PathElement

// Separator joins PathElements into the flattened string form used for
// zip archive-entry pathnames.
const Separator = "/"

// ParsePath splits s on Separator into a Path. Empty segments (leading,
// trailing, or doubled separators) are dropped, so "/a//b/" parses the
// same as "a/b".
func ParsePath(s string) Path {
	parts := strings.Split(s, Separator)
	var p Path
	for _, part := range parts {
		if part == "" {
			continue
		}
		p = append(p, PathElement(part))
	}
	return p
}

// String renders the Path in its flattened archive-entry form.
func (p Path) String() string {
	elems := make([]string, len(p))
	for i, e := range p {
		elems[i] = string(e)
	}
	return strings.Join(elems, Separator)
}

// Empty reports whether the path has no elements (the root).
func (p Path) Empty() bool {
	return len(p) == 0
}

// Head returns the first element. It fails with mldberr.ErrInvalidArgument
// on the empty path.
func (p Path) Head() (PathElement, error) {
	if len(p) == 0 {
		return "", mldberr.Wrap(mldberr.ErrInvalidArgument, "container: Head of empty path", nil)
	}
	return p[0], nil
}

// Tail returns every element after the first. It fails with
// mldberr.ErrInvalidArgument on the empty path.
func (p Path) Tail() (Path, error) {
	if len(p) == 0 {
		return nil, mldberr.Wrap(mldberr.ErrInvalidArgument, "container: Tail of empty path", nil)
	}
	return p[1:], nil
}

// Append returns a new Path with name appended, leaving p unmodified.
func (p Path) Append(name PathElement) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = name
	return out
}

// Equal reports whether p and other have the same elements in the same
// order.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}
