// SPDX-License-Identifier: MPL-2.0

package classify

// Rules is the data driving a Classifier. Name lists are matched
// case-sensitively against an entry's base name; extension lists are matched
// case-insensitively.
type Rules struct {
	// WrapperPrefixes are top-level directories stripped once from entry names.
	WrapperPrefixes []string
	// StripPrefixes are packaging prefixes stripped after the wrapper.
	StripPrefixes []string
	// Buckets are directory names that re-root an entry wherever they appear.
	// Earlier buckets take precedence.
	Buckets []string
	// BucketAliases rename a re-rooted prefix to its canonical spelling.
	// The first matching alias applies.
	BucketAliases []Alias

	CoreNames         []string
	CorePrefixes      []string
	SupportNames      []string
	SupportPrefixes   []string
	GeneratorMarkers  []string
	GeneratorNames    []string
	UnityPrefixes     []string
	CompatNames       []string
	ConfigExtensions  []string
	NativeExtensions  []string
	CatchAllExtension string

	// Architectures maps a path segment naming a CPU architecture to a native
	// runtime identifier. Matching is done segment by segment, in order.
	Architectures []Architecture
}

// Alias renames the From prefix of a re-rooted path to To.
type Alias struct {
	From string
	To   string
}

// Architecture maps a directory segment to a native runtime identifier.
type Architecture struct {
	Segment string
	RID     string
}

// DefaultRules returns the rules for MelonLoader distributions.
func DefaultRules() Rules {
	return Rules{
		WrapperPrefixes: []string{"MelonLoader/"},
		StripPrefixes:   []string{"assets/", "lib/"},
		Buckets:         []string{"net8", "net35", "Dependencies"},
		BucketAliases: []Alias{
			{From: "Dependencies/Il2CppAssemblyGenerator/", To: "Dependencies/AssemblyGenerator/"},
		},
		CoreNames:         []string{"MelonLoader.dll", "0Harmony.dll", "Il2CppInterop.Runtime.dll"},
		CorePrefixes:      []string{"MonoMod."},
		SupportNames:      []string{"Il2Cpp.dll", "Preload.dll", "Mono.dll"},
		SupportPrefixes:   []string{"Il2CppInterop."},
		GeneratorMarkers:  []string{"Il2CppAssemblyGenerator", "LibCpp2IL", "Cpp2IL"},
		GeneratorNames:    []string{"AsmResolver.dll", "Disarm.dll", "Iced.dll"},
		UnityPrefixes:     []string{"UnityEngine."},
		CompatNames:       []string{"Demeo.dll", "EOS.dll", "IPA.dll", "Muse_Dash_Mono.dll", "Stress_Level_Zero_Il2Cpp.dll"},
		ConfigExtensions:  []string{".json", ".cfg", ".xml"},
		NativeExtensions:  []string{".so", ".dylib"},
		CatchAllExtension: ".dll",
		Architectures: []Architecture{
			{Segment: "arm64-v8a", RID: "linux-arm64"},
			{Segment: "arm64", RID: "linux-arm64"},
			{Segment: "aarch64", RID: "linux-arm64"},
			{Segment: "armeabi-v7a", RID: "linux-arm"},
			{Segment: "arm", RID: "linux-arm"},
			{Segment: "x86_64", RID: "linux-x64"},
			{Segment: "x64", RID: "linux-x64"},
			{Segment: "x86", RID: "linux-x86"},
		},
	}
}
