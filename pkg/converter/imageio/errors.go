package imageio

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why an image could not be loaded.
type ErrorKind string

// Load failure kinds. Every kind is recoverable: the caller drops the file
// and continues with the rest of the batch.
const (
	KindEmptyDecode   ErrorKind = "empty_decode"
	KindDecodeFailure ErrorKind = "decode_failure"
	KindUnsupported   ErrorKind = "unsupported"
)

var (
	// ErrEmptyDecode indicates the decoder succeeded but produced a zero-sized raster.
	ErrEmptyDecode = errors.New("decoded image is empty")

	// ErrDecodeFailure indicates the file could not be opened or decoded.
	ErrDecodeFailure = errors.New("failed to decode image")

	// ErrUnsupported indicates the file extension is not a supported image format,
	// or no decoder is available for it.
	ErrUnsupported = errors.New("unsupported image format")
)

// LoadError describes a failed load of a single file. errors.Is matches the
// sentinel of its Kind as well as anything in the Cause chain.
type LoadError struct {
	Path  string
	Kind  ErrorKind
	Cause error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("load %s: %s", e.Path, e.Kind)
	}
	return fmt.Sprintf("load %s: %s: %v", e.Path, e.Kind, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *LoadError) Unwrap() error { return e.Cause }

// Is matches the sentinel corresponding to the error kind.
func (e *LoadError) Is(target error) bool {
	switch e.Kind {
	case KindEmptyDecode:
		return target == ErrEmptyDecode
	case KindDecodeFailure:
		return target == ErrDecodeFailure
	case KindUnsupported:
		return target == ErrUnsupported
	}
	return false
}

func newLoadError(path string, kind ErrorKind, cause error) *LoadError {
	return &LoadError{Path: path, Kind: kind, Cause: cause}
}
