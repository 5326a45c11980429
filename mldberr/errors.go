// Package mldberr declares the error kinds shared across the memory-region
// serialization substrate. Kinds are sentinel values, not types, so callers
// use errors.Is against them the same way massifs/storage distinguishes
// ErrLogEmpty from ErrNotAvailable.
package mldberr

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument covers an unparseable URL, an inverted or
	// out-of-bounds sub-range, and an empty path passed to a recursive
	// lookup.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound covers a missing name in a StructuredReconstituter.
	ErrNotFound = errors.New("not found")

	// ErrResourceExhausted covers allocation, ftruncate, mmap, and archive
	// writer failures.
	ErrResourceExhausted = errors.New("resource exhausted")

	// ErrIOFailure covers short writes from a sink callback and an fstat
	// mismatch against tracked arena length.
	ErrIOFailure = errors.New("io failure")

	// ErrUnsupported covers a compressed zip entry encountered by the
	// reconstituter, and any non-file:// URL passed to mapfile.Open.
	ErrUnsupported = errors.New("unsupported")

	// ErrInternal covers invariant violations that a correct
	// implementation should never trigger.
	ErrInternal = errors.New("internal error")
)

// Wrap builds an error that chains context, a kind sentinel, and an
// optional underlying cause, so that errors.Is(err, kind) holds and, when
// cause is non-nil, errors.Is(err, cause) also holds.
func Wrap(kind error, context string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%s: %w", context, kind)
	}
	return fmt.Errorf("%s: %w: %w", context, kind, cause)
}
