// SPDX-License-Identifier: MPL-2.0

// Package platform holds the operating system names and file naming rules
// that game roots and mod files must satisfy on every platform.
package platform
