package files

import (
	"errors"
	"fmt"
	"io/fs"
)

// Sentinel errors for typed error checking.
var (
	ErrNotFound    = errors.New("file not found")
	ErrIO          = errors.New("i/o failure")
	ErrInvalidName = errors.New("invalid file name")
	ErrOutsideRoot = errors.New("path escapes root")
)

// OpError wraps a failed file operation with the path it targeted.
type OpError struct {
	Op   string
	Path string
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if the error is a missing file.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// ioError classifies an os error into ErrNotFound or ErrIO, keeping the cause.
func ioError(op, path string, err error) error {
	kind := ErrIO
	if errors.Is(err, fs.ErrNotExist) {
		kind = ErrNotFound
	}
	return &OpError{Op: op, Path: path, Err: fmt.Errorf("%w: %v", kind, err)}
}
