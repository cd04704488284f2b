// SPDX-License-Identifier: MPL-2.0

package extract

import (
	"fmt"
	"path"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/melonpatch/melonpatch/pkg/layout"
)

// minCoreFiles is how many of coreFiles an archive needs to count as a loader
// distribution.
const minCoreFiles = 2

var (
	coreFiles = []string{
		"MelonLoader.dll",
		"0Harmony.dll",
		"MelonLoader.deps.json",
		"MelonLoader.runtimeconfig.json",
	}
	modernSignatures = []string{
		"MelonLoader.deps.json",
		"MelonLoader.runtimeconfig.json",
		"Il2CppInterop.Runtime.dll",
	}
)

// DetectVariant inspects entry names of the archive at archivePath and
// reports which runtime variant it carries. Entry bodies are not read.
func DetectVariant(archivePath string) (variant layout.Variant, err error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return 0, fmt.Errorf("failed to open ZIP file: %w", err)
	}
	defer func() {
		if closeErr := zr.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return DetectVariantFromNames(names)
}

// DetectVariantFromNames is DetectVariant over a list of entry names.
func DetectVariantFromNames(names []string) (layout.Variant, error) {
	present := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.ReplaceAll(n, `\`, "/")
		if strings.HasSuffix(n, "/") {
			continue
		}
		present[path.Base(n)] = true
	}

	found := 0
	for _, name := range coreFiles {
		if present[name] {
			found++
		}
	}
	if found < minCoreFiles {
		return 0, fmt.Errorf("%w: found %d of %d core files", ErrNotLoaderArchive, found, len(coreFiles))
	}

	for _, name := range modernSignatures {
		if present[name] {
			return layout.VariantModern, nil
		}
	}
	return layout.VariantLegacy, nil
}
