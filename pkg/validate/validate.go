// SPDX-License-Identifier: MPL-2.0

package validate

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/melonpatch/melonpatch/pkg/layout"
	"github.com/melonpatch/melonpatch/pkg/lifecycle"
)

// State is the coarse health of a GameRoot.
type State uint8

const (
	// StateAbsent means the game's base directory does not exist.
	StateAbsent State = iota
	// StatePartial means the base exists but something required is missing.
	StatePartial
	// StateValid means directories, support files and one runtime variant are present.
	StateValid
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StatePartial:
		return "partial"
	case StateValid:
		return "valid"
	default:
		return "unknown"
	}
}

type (
	// Bucket reports how many of a bucket's required files exist with
	// non-zero length.
	Bucket struct {
		Found      int
		Needed     int
		Total      int
		Missing    []string
		Sufficient bool
	}

	// Result is a snapshot of a GameRoot's health.
	Result struct {
		BaseExists        bool
		LoaderExists      bool
		DependenciesExist bool
		DLLModsExist      bool
		DEXModsExist      bool

		Modern  Bucket
		Legacy  Bucket
		Support Bucket

		// Active is the variant a patch would use: modern if sufficient,
		// otherwise legacy if sufficient, otherwise nil.
		Active *layout.Variant

		// Deficiencies lists every failed check in a fixed order.
		Deficiencies []string
	}

	// Validator checks GameRoots against a set of Requirements.
	Validator struct {
		req       Requirements
		lifecycle *lifecycle.Lifecycle
		logger    *log.Logger
	}

	// Option configures a Validator.
	Option func(*Validator)

	// RepairReport describes what Repair did.
	RepairReport struct {
		// Init is the outcome of recreating the canonical directories.
		Init lifecycle.Result
		// Result is the post-repair validation.
		Result *Result
	}
)

// ModernSufficient reports whether the modern variant meets the threshold.
func (r *Result) ModernSufficient() bool { return r.Modern.Sufficient }

// LegacySufficient reports whether the legacy variant meets the threshold.
func (r *Result) LegacySufficient() bool { return r.Legacy.Sufficient }

// State derives the coarse state from the individual checks.
func (r *Result) State() State {
	switch {
	case !r.BaseExists:
		return StateAbsent
	case r.LoaderExists && r.DependenciesExist && r.DLLModsExist && r.DEXModsExist &&
		r.Support.Sufficient && r.Active != nil:
		return StateValid
	default:
		return StatePartial
	}
}

// Valid is shorthand for State() == StateValid.
func (r *Result) Valid() bool { return r.State() == StateValid }

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(v *Validator) { v.logger = l }
}

// WithLifecycle sets the lifecycle used by Repair.
func WithLifecycle(lc *lifecycle.Lifecycle) Option {
	return func(v *Validator) { v.lifecycle = lc }
}

// New returns a Validator for req. A zero Threshold means DefaultThreshold.
func New(req Requirements, opts ...Option) *Validator {
	if req.Threshold <= 0 {
		req.Threshold = DefaultThreshold
	}
	v := &Validator{req: req, logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(v)
	}
	if v.lifecycle == nil {
		v.lifecycle = lifecycle.New(v.logger)
	}
	return v
}

// Validate inspects root. Every check runs, so one call surfaces every problem.
func (v *Validator) Validate(root layout.GameRoot) *Result {
	res := &Result{}
	loader := root.LoaderDir()

	res.BaseExists = isDir(root.Dir())
	if !res.BaseExists {
		res.add("base directory does not exist: %s", root.Dir())
	}
	res.LoaderExists = isDir(loader)
	if !res.LoaderExists {
		res.add("loader directory does not exist: %s", loader)
	}
	res.DLLModsExist = isDir(root.Path(layout.RoleModDLL, 0, ""))
	if !res.DLLModsExist {
		res.add("DLL mods directory does not exist")
	}
	res.DEXModsExist = isDir(root.Path(layout.RoleModDEX, 0, ""))
	if !res.DEXModsExist {
		res.add("DEX mods directory does not exist")
	}

	res.Modern = v.bucket(loader, v.req.Modern)
	res.Legacy = v.bucket(loader, v.req.Legacy)
	switch {
	case res.Modern.Sufficient:
		active := layout.VariantModern
		res.Active = &active
	case res.Legacy.Sufficient:
		active := layout.VariantLegacy
		res.Active = &active
	}

	// Per-file gaps cover each variant up to and including the active one
	// in preference order. Without an active variant, all of them.
	res.addMissing(layout.VariantModern.String()+" runtime", res.Modern)
	if res.Active == nil || *res.Active == layout.VariantLegacy {
		res.addMissing(layout.VariantLegacy.String()+" runtime", res.Legacy)
	}
	if res.Active == nil {
		res.add("no sufficient runtime variant found (neither modern nor legacy)")
	}

	res.DependenciesExist = isDir(root.Path(layout.RoleDependencies, 0, ""))
	if !res.DependenciesExist {
		res.add("dependencies directory does not exist")
	}
	res.Support = v.bucket(loader, v.req.Support)
	if res.Support.Found == 0 {
		res.add("dependency support files are missing")
	} else {
		res.addMissing("dependency support", res.Support)
	}

	v.logger.Debug("validated game root",
		"root", root.Dir(),
		"state", res.State(),
		"modern", res.Modern.Sufficient,
		"legacy", res.Legacy.Sufficient,
		"deficiencies", len(res.Deficiencies))
	return res
}

// Repair recreates the canonical directories and validates again. The bool
// is true only when the post-repair state is Valid; callers should inspect
// the report rather than treat false as "nothing happened".
func (v *Validator) Repair(root layout.GameRoot) (RepairReport, bool) {
	rep := RepairReport{Init: v.lifecycle.Initialize(root)}
	rep.Result = v.Validate(root)
	return rep, rep.Result.Valid()
}

func (v *Validator) bucket(loader string, required []string) Bucket {
	b := Bucket{Total: len(required), Needed: Needed(len(required), v.req.Threshold)}
	for _, rel := range required {
		info, err := os.Stat(filepath.Join(loader, filepath.FromSlash(rel)))
		if err == nil && info.Mode().IsRegular() && info.Size() > 0 {
			b.Found++
			continue
		}
		b.Missing = append(b.Missing, rel)
	}
	b.Sufficient = b.Total > 0 && b.Found >= b.Needed
	return b
}

func (r *Result) add(format string, args ...any) {
	r.Deficiencies = append(r.Deficiencies, fmt.Sprintf(format, args...))
}

// addMissing reports one deficiency per missing file of a bucket that has at
// least one file present.
func (r *Result) addMissing(label string, b Bucket) {
	if b.Found == 0 {
		return
	}
	for _, rel := range b.Missing {
		r.add("%s file missing: %s", label, rel)
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
