// SPDX-License-Identifier: MPL-2.0

package validate

import (
	"fmt"
	"strings"
)

// Report renders r as a multi-line plain-text report.
func Report(r *Result) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "State: %s\n", r.State())
	active := "none"
	if r.Active != nil {
		active = r.Active.String()
	}
	fmt.Fprintf(&sb, "Active runtime: %s\n\n", active)

	sb.WriteString("Directories:\n")
	writeCheck(&sb, "base", r.BaseExists)
	writeCheck(&sb, "loader", r.LoaderExists)
	writeCheck(&sb, "dependencies", r.DependenciesExist)
	writeCheck(&sb, "DLL mods", r.DLLModsExist)
	writeCheck(&sb, "DEX mods", r.DEXModsExist)

	sb.WriteString("\nRuntime files:\n")
	writeBucket(&sb, "modern", r.Modern)
	writeBucket(&sb, "legacy", r.Legacy)
	writeBucket(&sb, "support", r.Support)

	if len(r.Deficiencies) > 0 {
		sb.WriteString("\nDeficiencies:\n")
		for _, d := range r.Deficiencies {
			sb.WriteString("  - ")
			sb.WriteString(d)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func writeCheck(sb *strings.Builder, name string, ok bool) {
	mark := "missing"
	if ok {
		mark = "ok"
	}
	fmt.Fprintf(sb, "  %-13s %s\n", name, mark)
}

func writeBucket(sb *strings.Builder, name string, b Bucket) {
	status := "insufficient"
	if b.Sufficient {
		status = "sufficient"
	}
	fmt.Fprintf(sb, "  %-13s %d/%d (need %d) %s\n", name, b.Found, b.Total, b.Needed, status)
}
