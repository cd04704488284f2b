// SPDX-License-Identifier: MPL-2.0

package lifecycle

import (
	"strings"

	"github.com/melonpatch/melonpatch/pkg/layout"
)

var readmeBodies = map[layout.Role][]string{
	layout.RoleModDLL: {
		"=== DLL Mods ===",
		"",
		"Place your .dll mod files here.",
		"Requires MelonLoader to be installed.",
		"",
		"Supported formats:",
		"- .dll files (enabled)",
		"- .dll.disabled files (disabled)",
	},
	layout.RoleModDEX: {
		"=== DEX/JAR Mods ===",
		"",
		"Place your .dex and .jar mod files here.",
		"",
		"Supported formats:",
		"- .dex and .jar files (enabled)",
		"- .dex.disabled and .jar.disabled files (disabled)",
	},
	layout.RolePlugin: {
		"=== MelonLoader Plugins ===",
		"",
		"Plugins extend MelonLoader itself.",
		"Place plugin .dll files and their configuration here.",
	},
	layout.RoleUserLib: {
		"=== MelonLoader UserLibs ===",
		"",
		"Shared libraries that mods depend on go here.",
	},
	layout.RoleGameLog: {
		"=== Game Logs ===",
		"",
		"Logs written by MelonLoader and mods while the patched game runs.",
		"Log.txt is the current log; Log1.txt to Log5.txt are previous runs.",
	},
	layout.RoleAppLog: {
		"=== Installer Logs ===",
		"",
		"Logs written by the installer.",
		"AppLog.txt is the current log; AppLog1.txt and up are previous runs.",
	},
}

func readmeText(role layout.Role, dir string) string {
	var sb strings.Builder
	for _, line := range readmeBodies[role] {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	sb.WriteString("\nPath: ")
	sb.WriteString(dir)
	sb.WriteByte('\n')
	return sb.String()
}
