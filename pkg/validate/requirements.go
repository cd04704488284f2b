// SPDX-License-Identifier: MPL-2.0

package validate

import "math"

// DefaultThreshold is the fraction of a bucket's required files that must be
// present for the bucket to count as sufficient.
const DefaultThreshold = 0.5

// Requirements lists the files each bucket needs, as slash-separated paths
// relative to the loader directory.
type Requirements struct {
	Modern    []string
	Legacy    []string
	Support   []string
	Threshold float64
}

// DefaultRequirements returns the required file lists for MelonLoader.
func DefaultRequirements() Requirements {
	return Requirements{
		Modern: []string{
			"net8/MelonLoader.dll",
			"net8/0Harmony.dll",
			"net8/MelonLoader.deps.json",
			"net8/MelonLoader.runtimeconfig.json",
		},
		Legacy: []string{
			"net35/MelonLoader.dll",
			"net35/0Harmony.dll",
			"net35/MonoMod.RuntimeDetour.dll",
			"net35/MonoMod.Utils.dll",
		},
		Support: []string{
			"Dependencies/SupportModules/Il2Cpp.dll",
			"Dependencies/SupportModules/Il2Cpp.deps.json",
			"Dependencies/SupportModules/Il2CppInterop.Runtime.dll",
			"Dependencies/SupportModules/Il2CppInterop.Runtime.xml",
			"Dependencies/SupportModules/Il2CppInterop.HarmonySupport.dll",
			"Dependencies/SupportModules/Il2CppInterop.HarmonySupport.xml",
			"Dependencies/AssemblyGenerator/Il2CppAssemblyGenerator.dll",
			"Dependencies/AssemblyGenerator/Il2CppAssemblyGenerator.deps.json",
		},
		Threshold: DefaultThreshold,
	}
}

// Needed returns how many of total files satisfy threshold: at least one, and
// at least floor(total * threshold).
func Needed(total int, threshold float64) int {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	n := int(math.Floor(float64(total) * threshold))
	return max(1, n)
}
