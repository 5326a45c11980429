package container

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/StephanKalika/mldb/mldberr"
)

// json is configured to match encoding/json's behavior exactly, the same
// drop-in configuration grafana-loki uses (pkg/util/build, among others)
// wherever it swaps json-iterator in for the standard library.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// NewObject serializes value to JSON and stores it at name, standing in
// for the original's ValueDescription-driven print. Unlike
// StructuredSerializer::newObject in memory_region.cc — which always
// wrote to the fixed child name "md" regardless of the name argument, a
// bug SPEC_FULL.md §5.2 flags rather than reproduces — this stores at the
// name the caller actually passed.
func NewObject(s StructuredSerializer, name PathElement, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return mldberr.Wrap(mldberr.ErrInvalidArgument, "container: marshal object for "+string(name), err)
	}

	entry, err := s.NewEntry(name)
	if err != nil {
		return err
	}
	w, err := entry.AllocateWritable(uint64(len(data)), 1)
	if err != nil {
		return err
	}
	copy(w.Bytes(), data)
	_, err = w.Freeze()
	return err
}

// GetObject fetches the region at name from r and JSON-parses it into out.
func GetObject(r StructuredReconstituter, name PathElement, out interface{}) error {
	fr, err := r.GetRegion(name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(fr.Bytes(), out); err != nil {
		return mldberr.Wrap(mldberr.ErrInvalidArgument, "container: unmarshal object at "+string(name), err)
	}
	return nil
}
