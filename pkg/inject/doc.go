// SPDX-License-Identifier: MPL-2.0

// Package inject embeds an installed runtime into an application package.
//
// A new package is written next to the destination and renamed into place
// only on success; the source package is never modified. Original entries are
// copied raw, so their bytes and compression are preserved. Entries that carry
// a reserved runtime marker are dropped first, which makes re-patching an
// already patched package produce the same entry set.
package inject
