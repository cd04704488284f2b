// SPDX-License-Identifier: MPL-2.0

// Command melonpatch installs MelonLoader into games and patches application packages.
package main

import cmd "github.com/melonpatch/melonpatch/cmd/melonpatch"

func main() {
	cmd.Execute()
}
