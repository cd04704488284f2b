// SPDX-License-Identifier: MPL-2.0

package inject

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/melonpatch/melonpatch/pkg/layout"
)

// DefaultABI is the native library directory runtime files are injected into.
const DefaultABI = "arm64-v8a"

type (
	// PlannedFile is one file to append to a package.
	PlannedFile struct {
		// Source is the absolute path on disk.
		Source string
		// Destination is the entry name inside the package.
		Destination string
		Size        int64
	}

	// Plan is the ordered set of files to inject.
	Plan struct {
		Variant layout.Variant
		ABI     string
		Files   []PlannedFile
	}
)

// BuildPlan collects every non-empty regular file in the variant's runtime
// directory plus every .dll directly under SupportModules. Each maps to
// lib/<abi>/<filename>; when two files share a name, the runtime file wins.
// An empty abi means DefaultABI.
func BuildPlan(root layout.GameRoot, variant layout.Variant, abi string) (Plan, error) {
	if abi == "" {
		abi = DefaultABI
	}
	plan := Plan{Variant: variant, ABI: abi}
	seen := make(map[string]bool)

	add := func(dir string, accept func(name string) bool) error {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return fmt.Errorf("failed to scan %s: %w", dir, err)
		}
		for _, e := range entries {
			if !e.Type().IsRegular() || !accept(e.Name()) {
				continue
			}
			info, err := e.Info()
			if err != nil || info.Size() == 0 {
				continue
			}
			dest := path.Join("lib", abi, e.Name())
			if seen[dest] {
				continue
			}
			seen[dest] = true
			plan.Files = append(plan.Files, PlannedFile{
				Source:      filepath.Join(dir, e.Name()),
				Destination: dest,
				Size:        info.Size(),
			})
		}
		return nil
	}

	if err := add(root.Path(layout.RoleRuntimeCore, variant, ""), func(string) bool { return true }); err != nil {
		return Plan{}, err
	}
	if err := add(root.Path(layout.RoleSupportModule, 0, ""), func(name string) bool {
		return strings.EqualFold(path.Ext(name), ".dll")
	}); err != nil {
		return Plan{}, err
	}

	sort.Slice(plan.Files, func(i, j int) bool {
		return plan.Files[i].Destination < plan.Files[j].Destination
	})
	return plan, nil
}

// TotalSize returns the summed size of all planned files.
func (p Plan) TotalSize() int64 {
	var n int64
	for _, f := range p.Files {
		n += f.Size
	}
	return n
}

// Destinations returns the set of planned entry names.
func (p Plan) Destinations() map[string]bool {
	set := make(map[string]bool, len(p.Files))
	for _, f := range p.Files {
		set[f.Destination] = true
	}
	return set
}
