// SPDX-License-Identifier: MPL-2.0

package validate

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrInvalidBinary is the sentinel error wrapped by InvalidBinaryError.
var ErrInvalidBinary = errors.New("invalid binary")

// binaryMagic is the DOS/PE header signature.
var binaryMagic = [2]byte{'M', 'Z'}

// InvalidBinaryError is returned by SniffBinary when a file does not look
// like a native executable.
type InvalidBinaryError struct {
	Path   string
	Reason string
}

// Error implements the error interface for InvalidBinaryError.
func (e *InvalidBinaryError) Error() string {
	return fmt.Sprintf("invalid binary %s: %s", e.Path, e.Reason)
}

// Unwrap returns ErrInvalidBinary for errors.Is() compatibility.
func (e *InvalidBinaryError) Unwrap() error { return ErrInvalidBinary }

// SniffBinary accepts path only if it is non-empty and starts with the "MZ"
// executable magic. It does not parse the rest of the file.
func SniffBinary(path string) (err error) {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return SniffBinaryReader(path, f)
}

// SniffBinaryReader is SniffBinary over an already-open stream. name is used
// in error messages only.
func SniffBinaryReader(name string, r io.Reader) error {
	var head [2]byte
	n, err := io.ReadFull(r, head[:])
	switch {
	case n == 0 && (err == io.EOF || err == nil):
		return &InvalidBinaryError{Path: name, Reason: "file is empty"}
	case errors.Is(err, io.ErrUnexpectedEOF):
		return &InvalidBinaryError{Path: name, Reason: "file is too short"}
	case err != nil:
		return fmt.Errorf("failed to read %s: %w", name, err)
	case head != binaryMagic:
		return &InvalidBinaryError{Path: name, Reason: "missing MZ header"}
	}
	return nil
}
