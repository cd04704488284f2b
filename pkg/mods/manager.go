// SPDX-License-Identifier: MPL-2.0

package mods

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"github.com/melonpatch/melonpatch/pkg/layout"
	"github.com/melonpatch/melonpatch/pkg/platform"
	"github.com/melonpatch/melonpatch/pkg/validate"
)

type (
	// Clock supplies the current time for backup names.
	Clock interface {
		Now() time.Time
	}

	// Manager operates on the mods of one game root.
	Manager struct {
		root   layout.GameRoot
		clock  Clock
		logger *log.Logger
	}

	// Option configures a Manager.
	Option func(*Manager)

	// Counts aggregates mods of one kind.
	Counts struct {
		Enabled  int
		Disabled int
		Size     int64
	}

	// Stats summarizes installed mods.
	Stats struct {
		Total  Counts
		ByKind map[Kind]Counts
	}

	systemClock struct{}
)

func (systemClock) Now() time.Time { return time.Now() }

// WithClock sets the clock used for backup timestamps.
func WithClock(c Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager returns a Manager for root.
func NewManager(root layout.GameRoot, opts ...Option) *Manager {
	m := &Manager{
		root:   root,
		clock:  systemClock{},
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Root returns the game root the manager operates on.
func (m *Manager) Root() layout.GameRoot { return m.root }

// Install copies the mod file at src into its bucket. The kind is detected
// from the file name when kind is KindAny. DLL mods must be PE binaries.
// A mod with the same name is replaced, whichever state it was in; the new
// file keeps the state encoded in src's name.
func (m *Manager) Install(src string, kind Kind) (Mod, error) {
	name, detected, state, err := Identify(filepath.Base(src))
	if err != nil {
		return Mod{}, err
	}
	if kind != KindAny && kind != detected {
		return Mod{}, &ModError{Name: name, Err: fmt.Errorf("%w: file is %s, not %s", ErrUnsupportedKind, detected, kind)}
	}
	if platform.IsWindowsReservedName(name) {
		return Mod{}, &ModError{Name: name, Err: fmt.Errorf("%s is a reserved device name on Windows", name)}
	}

	info, err := os.Stat(src)
	if err != nil {
		return Mod{}, &ModError{Name: name, Err: err}
	}
	if !info.Mode().IsRegular() {
		return Mod{}, &ModError{Name: name, Err: fmt.Errorf("%s is not a regular file", src)}
	}
	if info.Size() > MaxModSize {
		return Mod{}, &ModError{Name: name, Err: fmt.Errorf("%w: %d bytes (max %d)", ErrModTooLarge, info.Size(), MaxModSize)}
	}
	if detected == KindDLL {
		if err := validate.SniffBinary(src); err != nil {
			return Mod{}, &ModError{Name: name, Err: err}
		}
	}

	dir := m.root.Path(detected.Role(), 0, "")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Mod{}, &ModError{Name: name, Err: err}
	}

	// The previous copy stays in place until the new one is complete.
	tmp, err := stageFile(src, dir)
	if err != nil {
		return Mod{}, &ModError{Name: name, Err: err}
	}
	dest := filepath.Join(dir, fileName(name, state))
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return Mod{}, &ModError{Name: name, Err: err}
	}
	for _, s := range []State{StateEnabled, StateDisabled} {
		if s == state {
			continue
		}
		if err := os.Remove(filepath.Join(dir, fileName(name, s))); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Mod{}, &ModError{Name: name, Err: err}
		}
	}
	m.logger.Info("mod installed", "mod", name, "kind", detected, "state", state)
	return m.stat(name, detected, state, dest)
}

// List returns the installed mods of kind, sorted by name. KindAny lists
// every mod. Files that are not mods are ignored.
func (m *Manager) List(kind Kind) ([]Mod, error) {
	var roles []layout.Role
	switch kind {
	case KindAny:
		roles = []layout.Role{layout.RoleModDLL, layout.RoleModDEX}
	default:
		roles = []layout.Role{kind.Role()}
	}

	var mods []Mod
	for _, role := range roles {
		dir := m.root.Path(role, 0, "")
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to list %s: %w", dir, err)
		}
		for _, e := range entries {
			if !e.Type().IsRegular() {
				continue
			}
			name, k, state, err := Identify(e.Name())
			if err != nil || (kind != KindAny && k != kind) || k.Role() != role {
				continue
			}
			mod, err := m.stat(name, k, state, filepath.Join(dir, e.Name()))
			if err != nil {
				m.logger.Warn("cannot read mod", "file", e.Name(), "err", err)
				continue
			}
			mods = append(mods, mod)
		}
	}
	sort.Slice(mods, func(i, j int) bool {
		if mods[i].Name != mods[j].Name {
			return mods[i].Name < mods[j].Name
		}
		return mods[i].State < mods[j].State
	})
	return mods, nil
}

// Get returns the named mod. name may carry DisabledSuffix.
func (m *Manager) Get(name string) (Mod, error) {
	base, kind, _, err := Identify(name)
	if err != nil {
		return Mod{}, err
	}
	dir := m.root.Path(kind.Role(), 0, "")
	enabled := filepath.Join(dir, fileName(base, StateEnabled))
	disabled := filepath.Join(dir, fileName(base, StateDisabled))

	hasEnabled, hasDisabled := isFile(enabled), isFile(disabled)
	switch {
	case hasEnabled && hasDisabled:
		return Mod{}, &ModError{Name: base, Err: ErrConflictingState}
	case hasEnabled:
		return m.stat(base, kind, StateEnabled, enabled)
	case hasDisabled:
		return m.stat(base, kind, StateDisabled, disabled)
	default:
		return Mod{}, &ModError{Name: base, Err: ErrModNotFound}
	}
}

// Enable renames a disabled mod to its enabled form. Enabling an enabled
// mod is a no-op.
func (m *Manager) Enable(name string) (Mod, error) {
	return m.SetState(name, StateEnabled)
}

// Disable renames an enabled mod to its disabled form.
func (m *Manager) Disable(name string) (Mod, error) {
	return m.SetState(name, StateDisabled)
}

// Toggle flips the mod's state.
func (m *Manager) Toggle(name string) (Mod, error) {
	mod, err := m.Get(name)
	if err != nil {
		return Mod{}, err
	}
	next := StateDisabled
	if mod.State == StateDisabled {
		next = StateEnabled
	}
	return m.setState(mod, next)
}

// SetState moves the mod into state.
func (m *Manager) SetState(name string, state State) (Mod, error) {
	mod, err := m.Get(name)
	if err != nil {
		return Mod{}, err
	}
	return m.setState(mod, state)
}

func (m *Manager) setState(mod Mod, state State) (Mod, error) {
	if mod.State == state {
		return mod, nil
	}
	dest := filepath.Join(filepath.Dir(mod.Path), fileName(mod.Name, state))
	if err := os.Rename(mod.Path, dest); err != nil {
		return Mod{}, &ModError{Name: mod.Name, Err: err}
	}
	m.logger.Info("mod state changed", "mod", mod.Name, "state", state)
	mod.State = state
	mod.Path = dest
	return mod, nil
}

// Delete removes the named mod in whichever state it is.
func (m *Manager) Delete(name string) error {
	mod, err := m.Get(name)
	if err != nil {
		return err
	}
	if err := os.Remove(mod.Path); err != nil {
		return &ModError{Name: mod.Name, Err: err}
	}
	m.logger.Info("mod deleted", "mod", mod.Name)
	return nil
}

// Stats counts installed mods per kind and state.
func (m *Manager) Stats() (Stats, error) {
	mods, err := m.List(KindAny)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{ByKind: make(map[Kind]Counts)}
	for _, mod := range mods {
		c := st.ByKind[mod.Kind]
		c.add(mod)
		st.ByKind[mod.Kind] = c
		st.Total.add(mod)
	}
	return st, nil
}

func (c *Counts) add(mod Mod) {
	if mod.Enabled() {
		c.Enabled++
	} else {
		c.Disabled++
	}
	c.Size += mod.Size
}

// Count returns the number of mods counted.
func (c Counts) Count() int { return c.Enabled + c.Disabled }

func (m *Manager) stat(name string, kind Kind, state State, path string) (Mod, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Mod{}, err
	}
	return Mod{
		Name:    name,
		Kind:    kind,
		State:   state,
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// copyFile writes src to dest through a temporary file in dest's directory.
func copyFile(src, dest string) error {
	tmp, err := stageFile(src, filepath.Dir(dest))
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// stageFile copies src into a hidden temp file in dir and returns its path.
// Temp names never parse as mods, so List skips them.
func stageFile(src, dir string) (_ string, err error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer func() { _ = in.Close() }()

	tmp, err := os.CreateTemp(dir, ".mod-*")
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, in); err != nil {
		return "", err
	}
	if err = tmp.Close(); err != nil {
		return "", err
	}
	return tmp.Name(), nil
}
