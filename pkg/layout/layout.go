// SPDX-License-Identifier: MPL-2.0

package layout

import (
	"fmt"
	"path"
	"strings"
)

// RuntimeName is the directory name of the runtime under Loaders/.
const RuntimeName = "MelonLoader"

// Top-level and bucket directory names.
const (
	ModsDir         = "Mods"
	LoadersDir      = "Loaders"
	LogsDir         = "Logs"
	AppLogsDir      = "AppLogs"
	BackupsDir      = "Backups"
	ConfigDir       = "Config"
	DLLDir          = "DLL"
	DEXDir          = "DEX"
	ModernDir       = "net8"
	LegacyDir       = "net35"
	DependenciesDir = "Dependencies"
	PluginsDir      = "Plugins"
	UserLibsDir     = "UserLibs"

	SupportModulesDir      = "SupportModules"
	CompatibilityLayersDir = "CompatibilityLayers"
	AssemblyGeneratorDir   = "AssemblyGenerator"
	UnityDependenciesDir   = "UnityDependencies"
)

// Variant selects one of the two parallel runtime subtrees.
type Variant uint8

const (
	// VariantModern is the net8 runtime. It takes priority when both are installed.
	VariantModern Variant = iota + 1
	// VariantLegacy is the net35 runtime.
	VariantLegacy
)

// Variants returns every variant in priority order.
func Variants() []Variant {
	return []Variant{VariantModern, VariantLegacy}
}

// String returns the user-facing name of the variant.
func (v Variant) String() string {
	switch v {
	case VariantModern:
		return "modern"
	case VariantLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// Dir returns the bucket directory name of the variant. Unknown variants
// resolve to the modern bucket.
func (v Variant) Dir() string {
	if v == VariantLegacy {
		return LegacyDir
	}
	return ModernDir
}

// ParseVariant accepts "modern", "legacy" or a bucket name ("net8", "net35").
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "modern", ModernDir:
		return VariantModern, nil
	case "legacy", LegacyDir:
		return VariantLegacy, nil
	default:
		return 0, fmt.Errorf("unknown runtime variant %q (expected modern or legacy)", s)
	}
}

// Role is the logical purpose of a file or directory in the canonical tree.
type Role uint8

const (
	RoleLoader Role = iota + 1
	RoleRuntimeCore
	RoleDependencies
	RoleSupportModule
	RoleCompatibilityLayer
	RoleAssemblyGenerator
	RoleUnityDependency
	// RoleNativeRuntime expects a file name of the form "<rid>/<name>".
	RoleNativeRuntime
	RolePlugin
	RoleUserLib
	RoleModDLL
	RoleModDEX
	RoleGameLog
	RoleAppLog
	RoleBackup
	RoleConfig
)

var roleNames = map[Role]string{
	RoleLoader:             "loader",
	RoleRuntimeCore:        "runtime-core",
	RoleDependencies:       "dependencies",
	RoleSupportModule:      "support-module",
	RoleCompatibilityLayer: "compatibility-layer",
	RoleAssemblyGenerator:  "assembly-generator",
	RoleUnityDependency:    "unity-dependency",
	RoleNativeRuntime:      "native-runtime",
	RolePlugin:             "plugin",
	RoleUserLib:            "userlib",
	RoleModDLL:             "mod-dll",
	RoleModDEX:             "mod-dex",
	RoleGameLog:            "game-log",
	RoleAppLog:             "app-log",
	RoleBackup:             "backup",
	RoleConfig:             "config",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

// CanonicalEntry pairs a role with its slash-separated path relative to the
// GameRoot.
type CanonicalEntry struct {
	Role Role
	Path string
}

// NativeRuntimeIDs lists the per-OS/arch native directories of the assembly
// generator.
var NativeRuntimeIDs = []string{
	"linux-arm64", "linux-arm", "linux-x64", "linux-x86",
	"osx-arm64", "osx-x64",
	"win-arm64", "win-x64", "win-x86",
}

// assemblyGeneratorSubdirs are relative to the AssemblyGenerator bucket.
var assemblyGeneratorSubdirs = []string{
	"Cpp2IL",
	"Cpp2IL/cpp2il_out",
	"Il2CppInterop",
	"Il2CppInterop/Il2CppAssemblies",
	UnityDependenciesDir,
}

func loaderDir() string {
	return path.Join(LoadersDir, RuntimeName)
}

func dependenciesDir() string {
	return path.Join(loaderDir(), DependenciesDir)
}

// Resolve returns the slash-separated path of role relative to a GameRoot.
// The variant only matters for RoleRuntimeCore. An empty fileName yields the
// directory itself.
func Resolve(role Role, variant Variant, fileName string) string {
	var dir string
	switch role {
	case RoleLoader:
		dir = loaderDir()
	case RoleRuntimeCore:
		dir = path.Join(loaderDir(), variant.Dir())
	case RoleDependencies:
		dir = dependenciesDir()
	case RoleSupportModule:
		dir = path.Join(dependenciesDir(), SupportModulesDir)
	case RoleCompatibilityLayer:
		dir = path.Join(dependenciesDir(), CompatibilityLayersDir)
	case RoleAssemblyGenerator:
		dir = path.Join(dependenciesDir(), AssemblyGeneratorDir)
	case RoleUnityDependency:
		dir = path.Join(dependenciesDir(), AssemblyGeneratorDir, UnityDependenciesDir)
	case RoleNativeRuntime:
		rid, name, _ := strings.Cut(fileName, "/")
		dir = path.Join(dependenciesDir(), AssemblyGeneratorDir, "runtimes")
		if rid == "" {
			return dir
		}
		return path.Join(dir, rid, "native", name)
	case RolePlugin:
		dir = path.Join(loaderDir(), PluginsDir)
	case RoleUserLib:
		dir = path.Join(loaderDir(), UserLibsDir)
	case RoleModDLL:
		dir = path.Join(ModsDir, DLLDir)
	case RoleModDEX:
		dir = path.Join(ModsDir, DEXDir)
	case RoleGameLog:
		dir = LogsDir
	case RoleAppLog:
		dir = AppLogsDir
	case RoleBackup:
		dir = BackupsDir
	case RoleConfig:
		dir = ConfigDir
	default:
		dir = "."
	}
	if fileName == "" {
		return dir
	}
	return path.Join(dir, fileName)
}

// NativePath returns the path of a native library for rid.
func NativePath(rid, name string) string {
	return Resolve(RoleNativeRuntime, 0, rid+"/"+name)
}

// Directories returns every canonical directory, parents before children,
// relative to a GameRoot.
func Directories() []string {
	dirs := []string{
		ModsDir,
		Resolve(RoleModDLL, 0, ""),
		Resolve(RoleModDEX, 0, ""),
		LoadersDir,
		loaderDir(),
	}
	for _, v := range Variants() {
		dirs = append(dirs, Resolve(RoleRuntimeCore, v, ""))
	}
	dirs = append(dirs,
		Resolve(RoleDependencies, 0, ""),
		Resolve(RoleSupportModule, 0, ""),
		Resolve(RoleCompatibilityLayer, 0, ""),
		Resolve(RoleAssemblyGenerator, 0, ""),
	)
	for _, sub := range assemblyGeneratorSubdirs {
		dirs = append(dirs, Resolve(RoleAssemblyGenerator, 0, sub))
	}
	dirs = append(dirs, Resolve(RoleNativeRuntime, 0, ""))
	for _, rid := range NativeRuntimeIDs {
		dirs = append(dirs, path.Join(Resolve(RoleNativeRuntime, 0, ""), rid), NativePath(rid, ""))
	}
	dirs = append(dirs,
		Resolve(RolePlugin, 0, ""),
		Resolve(RoleUserLib, 0, ""),
		LogsDir,
		AppLogsDir,
		BackupsDir,
		ConfigDir,
	)
	return dirs
}

// UserFacingDirs returns the roles whose directories carry a README.
func UserFacingDirs() []Role {
	return []Role{RoleModDLL, RoleModDEX, RolePlugin, RoleUserLib, RoleGameLog, RoleAppLog}
}
