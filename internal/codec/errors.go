// Package codec defines the error kinds shared by the binary format
// packages in this module. Concrete failures wrap one of these sentinels
// with a description of the step that failed; callers classify them with
// errors.Is.
package codec

import "errors"

var (
	// ErrNotFound is returned when an identifier is absent from every
	// archive in the caller-supplied order.
	ErrNotFound = errors.New("resource not found")

	// ErrMalformedHeader is returned for structurally invalid fixed fields.
	ErrMalformedHeader = errors.New("malformed header")

	// ErrSizeMismatch is returned when a decompressed length differs from
	// the declared length, or when paired streams disagree on entry count.
	ErrSizeMismatch = errors.New("size mismatch")

	// ErrInvalidEncoding is returned for string data that is not valid UTF-8.
	ErrInvalidEncoding = errors.New("invalid string encoding")

	// ErrUnrecognisedTag is returned for an unknown type byte in a typed
	// stream.
	ErrUnrecognisedTag = errors.New("unrecognised type tag")

	// ErrOutOfRange is returned for an index into a dependency list that
	// does not exist.
	ErrOutOfRange = errors.New("index out of range")

	// ErrOverflow is returned when a size or offset conversion exceeds the
	// width of the target integer.
	ErrOverflow = errors.New("integer overflow")
)
