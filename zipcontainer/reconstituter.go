package zipcontainer

import (
	"archive/zip"
	"bytes"
	"sort"
	"strings"

	"github.com/StephanKalika/mldb/container"
	"github.com/StephanKalika/mldb/mldberr"
	"github.com/StephanKalika/mldb/region"
)

// Reconstituter is the read side of a zip-backed structured tree. root
// keeps the whole archive's bytes alive for as long as any Reconstituter
// or region.FrozenRegion derived from it is in use; every returned region
// is a root.Range sub-region so release accounting stays correct no
// matter how deep the caller descended.
type Reconstituter struct {
	zr     *zip.Reader
	root   region.FrozenRegion
	prefix string
}

// Open builds a Reconstituter over src, which must hold a complete zip
// archive written by this package (or any Store-only zip writer).
// Open does not take ownership of src's release; callers still call
// src.Release() once every Reconstituter derived from it is done.
func Open(src region.FrozenRegion) (*Reconstituter, error) {
	zr, err := zip.NewReader(bytes.NewReader(src.Bytes()), int64(src.Len()))
	if err != nil {
		return nil, mldberr.Wrap(mldberr.ErrResourceExhausted, "zipcontainer: open archive", err)
	}
	return &Reconstituter{zr: zr, root: src}, nil
}

func (r *Reconstituter) join(name container.PathElement) string {
	if r.prefix == "" {
		return string(name)
	}
	return r.prefix + "/" + string(name)
}

// findFile returns the first archive entry whose name matches exactly,
// per SPEC_FULL.md §8's decision to let backends define duplicate-name
// behavior: this backend keeps the first writer.
func (r *Reconstituter) findFile(fullName string) *zip.File {
	for _, f := range r.zr.File {
		if f.Name == fullName {
			return f
		}
	}
	return nil
}

// GetDirectory lists the immediate children of this structure, sorted by
// name: for every entry whose name starts with the current prefix, the
// first remaining path segment becomes a leaf (if it is the last segment)
// or a subtree (if more segments follow); a repeated first segment
// collapses to one DirectoryEntry.
func (r *Reconstituter) GetDirectory() ([]container.DirectoryEntry, error) {
	seen := map[string]bool{}
	var out []container.DirectoryEntry

	for _, f := range r.zr.File {
		rest, ok := trimPrefix(f.Name, r.prefix)
		if !ok || rest == "" {
			continue
		}
		head := rest
		isLeaf := true
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			head = rest[:i]
			isLeaf = false
		}
		if seen[head] {
			continue
		}
		seen[head] = true

		name := container.PathElement(head)
		entry := container.DirectoryEntry{Name: name}
		if isLeaf {
			entry.GetBlock = func() (region.FrozenRegion, error) { return r.GetRegion(name) }
		} else {
			entry.GetStructure = func() (container.StructuredReconstituter, error) { return r.GetStructure(name) }
		}
		out = append(out, entry)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// trimPrefix strips prefix + "/" from name, reporting whether name is
// actually rooted at prefix.
func trimPrefix(name, prefix string) (string, bool) {
	if prefix == "" {
		return name, true
	}
	if !strings.HasPrefix(name, prefix+"/") {
		return "", false
	}
	return name[len(prefix)+1:], true
}

// GetRegion returns the archive payload for the leaf entry named name,
// zero-copy: it slices directly into root's mmap'd or in-memory bytes at
// the offset (*zip.File).DataOffset reports, the same mmap-friendliness
// property the original's block-pointer-subtraction trick existed to
// preserve.
func (r *Reconstituter) GetRegion(name container.PathElement) (region.FrozenRegion, error) {
	fullName := r.join(name)
	f := r.findFile(fullName)
	if f == nil {
		return region.FrozenRegion{}, mldberr.Wrap(mldberr.ErrNotFound, "zipcontainer: no entry "+fullName, nil)
	}
	if f.Method != zip.Store {
		return region.FrozenRegion{}, mldberr.Wrap(mldberr.ErrUnsupported,
			"zipcontainer: entry "+fullName+" is compressed, only Store is supported", nil)
	}

	offset, err := f.DataOffset()
	if err != nil {
		return region.FrozenRegion{}, mldberr.Wrap(mldberr.ErrResourceExhausted, "zipcontainer: locate entry "+fullName, err)
	}
	size := int64(f.UncompressedSize64)
	return r.root.Range(int(offset), int(offset+size))
}

// GetStructure returns a Reconstituter scoped to the subtree at name.
func (r *Reconstituter) GetStructure(name container.PathElement) (container.StructuredReconstituter, error) {
	return &Reconstituter{zr: r.zr, root: r.root, prefix: r.join(name)}, nil
}

// EntryID recovers the writer-identity string SPEC_FULL.md §5.4 stamps
// into every entry's extra field at write time, for out-of-band
// diagnostics. It returns ok=false if f carries no such field, which is
// expected for archives not written by this package.
func EntryID(f *zip.File) (id string, ok bool) {
	extra := f.Extra
	for len(extra) >= 4 {
		tag := uint16(extra[0]) | uint16(extra[1])<<8
		size := int(uint16(extra[2]) | uint16(extra[3])<<8)
		if len(extra) < 4+size {
			return "", false
		}
		if tag == entryIDExtraTag {
			return string(extra[4 : 4+size]), true
		}
		extra = extra[4+size:]
	}
	return "", false
}
