// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers shared by melonpatch tests: filesystem
// setup that fails the test on error, zip fixtures for loader archives and
// application packages, and a manually advanced clock for timestamped
// backups.
package testutil
