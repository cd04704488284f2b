// SPDX-License-Identifier: MPL-2.0

package layout

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/melonpatch/melonpatch/pkg/platform"
)

// DefaultPackage is the package identifier used when none is configured.
const DefaultPackage PackageID = "com.and.games505.TerrariaPaid"

// ErrInvalidPackageID is the sentinel error wrapped by InvalidPackageIDError.
var ErrInvalidPackageID = errors.New("invalid package identifier")

type (
	// PackageID identifies a target application, e.g. "com.and.games505.TerrariaPaid".
	// It doubles as the directory name of the game's subtree, so it must be a
	// single path segment.
	PackageID string

	// InvalidPackageIDError is returned when a PackageID cannot be used as a
	// directory name on every platform.
	InvalidPackageIDError struct {
		Value  PackageID
		Reason string
	}

	// GameRoot owns the directory subtree of one target application.
	// Base is the directory holding all game roots; the subtree itself lives
	// at Base/Package.
	GameRoot struct {
		Base    string
		Package PackageID
	}
)

// String returns the string representation of the PackageID.
func (p PackageID) String() string { return string(p) }

// IsValid returns whether the PackageID can be used as a directory name.
func (p PackageID) IsValid() (bool, []error) {
	s := string(p)
	switch {
	case strings.TrimSpace(s) == "":
		return false, []error{&InvalidPackageIDError{Value: p, Reason: "must be non-empty"}}
	case s == "." || s == "..":
		return false, []error{&InvalidPackageIDError{Value: p, Reason: "must not be a relative path segment"}}
	case strings.ContainsAny(s, `/\`):
		return false, []error{&InvalidPackageIDError{Value: p, Reason: "must not contain path separators"}}
	case platform.IsWindowsReservedName(s):
		return false, []error{&InvalidPackageIDError{Value: p, Reason: "is a reserved device name on Windows"}}
	case platform.HasTrailingDotOrSpace(s):
		return false, []error{&InvalidPackageIDError{Value: p, Reason: "must not end in a dot or space"}}
	}
	return true, nil
}

// Error implements the error interface for InvalidPackageIDError.
func (e *InvalidPackageIDError) Error() string {
	return fmt.Sprintf("invalid package identifier %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidPackageID for errors.Is() compatibility.
func (e *InvalidPackageIDError) Unwrap() error { return ErrInvalidPackageID }

// NewGameRoot returns the GameRoot for pkg under base.
func NewGameRoot(base string, pkg PackageID) (GameRoot, error) {
	if ok, errs := pkg.IsValid(); !ok {
		return GameRoot{}, errs[0]
	}
	if strings.TrimSpace(base) == "" {
		return GameRoot{}, errors.New("game root base directory must be non-empty")
	}
	return GameRoot{Base: filepath.Clean(base), Package: pkg}, nil
}

// Dir returns the absolute directory of the game subtree.
func (g GameRoot) Dir() string {
	return filepath.Join(g.Base, string(g.Package))
}

// Path returns the absolute path for role. See Resolve.
func (g GameRoot) Path(role Role, variant Variant, fileName string) string {
	return filepath.Join(g.Dir(), filepath.FromSlash(Resolve(role, variant, fileName)))
}

// Entry returns the CanonicalEntry for role.
func (g GameRoot) Entry(role Role, variant Variant, fileName string) CanonicalEntry {
	return CanonicalEntry{Role: role, Path: Resolve(role, variant, fileName)}
}

// LoaderDir returns the absolute path of the runtime's loader directory.
func (g GameRoot) LoaderDir() string {
	return g.Path(RoleLoader, VariantModern, "")
}

// Rel converts a slash-separated path relative to the game subtree into an
// absolute path.
func (g GameRoot) Rel(rel string) string {
	return filepath.Join(g.Dir(), filepath.FromSlash(rel))
}
