// SPDX-License-Identifier: MPL-2.0

package platform

import "strings"

// reservedNames cannot be used as file or directory names on Windows,
// whatever their extension.
var reservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true,
	"COM5": true, "COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true,
	"LPT5": true, "LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// IsWindowsReservedName reports whether name is a reserved device name on
// Windows. Only the part before the first dot counts, so "nul.tar.gz" is
// reserved too.
func IsWindowsReservedName(name string) bool {
	stem, _, _ := strings.Cut(name, ".")
	return reservedNames[strings.ToUpper(stem)]
}

// HasTrailingDotOrSpace reports whether name ends in a dot or a space, which
// Windows silently strips from file names.
func HasTrailingDotOrSpace(name string) bool {
	return strings.HasSuffix(name, ".") || strings.HasSuffix(name, " ")
}
