// SPDX-License-Identifier: MPL-2.0

package extract

import (
	"errors"
	"fmt"
)

var (
	// ErrSecurityViolation is the sentinel error wrapped by SecurityError.
	ErrSecurityViolation = errors.New("security violation")

	// ErrNotLoaderArchive is returned by DetectVariant when an archive lacks
	// the loader's core files.
	ErrNotLoaderArchive = errors.New("not a loader distribution archive")
)

// SecurityError is returned when an archive entry attempts to escape the
// extraction root.
type SecurityError struct {
	Entry  string
	Reason string
}

// Error implements the error interface for SecurityError.
func (e *SecurityError) Error() string {
	return fmt.Sprintf("security violation: archive entry %q %s", e.Entry, e.Reason)
}

// Unwrap returns ErrSecurityViolation for errors.Is() compatibility.
func (e *SecurityError) Unwrap() error { return ErrSecurityViolation }
