// SPDX-License-Identifier: MPL-2.0

package inject

import (
	"fmt"
	"strings"
)

// Preview describes what injecting plan would add to a package.
func Preview(plan Plan) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Runtime: %s (lib/%s)\n", plan.Variant, plan.ABI)
	if len(plan.Files) == 0 {
		sb.WriteString("No runtime files found; install the loader first.\n")
		return sb.String()
	}
	fmt.Fprintf(&sb, "Files to inject: %d (%s)\n", len(plan.Files), formatSize(plan.TotalSize()))
	for _, f := range plan.Files {
		fmt.Fprintf(&sb, "  %s (%s)\n", f.Destination, formatSize(f.Size))
	}
	fmt.Fprintf(&sb, "Generated entries:\n  %s\n  %s\n", BootstrapEntry, ConfigEntry)
	return sb.String()
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
