// SPDX-License-Identifier: MPL-2.0

package mods

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/melonpatch/melonpatch/pkg/layout"
)

// DisabledSuffix is appended to the file name of a disabled mod.
const DisabledSuffix = ".disabled"

// MaxModSize is the largest mod file Install accepts.
const MaxModSize = 50 << 20

// Kind values.
const (
	// KindAny matches every kind in List and selects detection in Install.
	KindAny Kind = iota
	KindDLL
	KindDEX
	KindJAR
)

// State values.
const (
	StateEnabled State = iota + 1
	StateDisabled
)

var (
	// ErrUnsupportedKind is returned for file names that are not mods.
	ErrUnsupportedKind = errors.New("unsupported mod file type")

	// ErrModNotFound is returned when no form of the named mod exists.
	ErrModNotFound = errors.New("mod not found")

	// ErrConflictingState is returned when both the enabled and the disabled
	// form of a mod exist.
	ErrConflictingState = errors.New("mod exists both enabled and disabled")

	// ErrModTooLarge is returned by Install for files above MaxModSize.
	ErrModTooLarge = errors.New("mod file too large")
)

type (
	// Kind is the mod file type.
	Kind uint8

	// State is whether a mod is loaded by the game.
	State uint8

	// Mod is one installed mod.
	Mod struct {
		// Name is the enabled file name, without DisabledSuffix.
		Name    string
		Kind    Kind
		State   State
		Path    string
		Size    int64
		ModTime time.Time
	}

	// ModError reports a failed operation on a single mod.
	ModError struct {
		Name string
		Err  error
	}
)

func (k Kind) String() string {
	switch k {
	case KindAny:
		return "any"
	case KindDLL:
		return "dll"
	case KindDEX:
		return "dex"
	case KindJAR:
		return "jar"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Role returns the canonical directory role holding mods of this kind.
func (k Kind) Role() layout.Role {
	if k == KindDLL {
		return layout.RoleModDLL
	}
	return layout.RoleModDEX
}

// ParseKind parses "dll", "dex", "jar" or "any".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any", "all":
		return KindAny, nil
	case "dll":
		return KindDLL, nil
	case "dex":
		return KindDEX, nil
	case "jar":
		return KindJAR, nil
	default:
		return KindAny, fmt.Errorf("%w: %q", ErrUnsupportedKind, s)
	}
}

func (s State) String() string {
	switch s {
	case StateEnabled:
		return "enabled"
	case StateDisabled:
		return "disabled"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

// Enabled reports whether the mod is loaded.
func (m Mod) Enabled() bool { return m.State == StateEnabled }

// FileName returns the on-disk name for the mod's current state.
func (m Mod) FileName() string {
	return fileName(m.Name, m.State)
}

// Error implements the error interface.
func (e *ModError) Error() string {
	return fmt.Sprintf("mod %s: %v", e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *ModError) Unwrap() error { return e.Err }

// Identify splits a file name into the mod name, its kind and its state.
func Identify(file string) (name string, kind Kind, state State, err error) {
	name, state = file, StateEnabled
	if base, ok := cutSuffixFold(file, DisabledSuffix); ok {
		name, state = base, StateDisabled
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".dll":
		kind = KindDLL
	case ".dex":
		kind = KindDEX
	case ".jar":
		kind = KindJAR
	default:
		return "", KindAny, 0, &ModError{Name: file, Err: ErrUnsupportedKind}
	}
	return name, kind, state, nil
}

func fileName(name string, state State) string {
	if state == StateDisabled {
		return name + DisabledSuffix
	}
	return name
}

func cutSuffixFold(s, suffix string) (string, bool) {
	if len(s) > len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix) {
		return s[:len(s)-len(suffix)], true
	}
	return s, false
}
