// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/melonpatch/melonpatch/pkg/progress"
)

// reporter returns a Reporter that prints step updates to stderr in verbose
// mode. Repeated percentages are dropped.
func (s *session) reporter(label string) progress.Reporter {
	if !s.verbose {
		return progress.Nop()
	}
	last := progress.Unknown - 1
	return progress.Funcs{
		OnProgress: func(msg string, percent int) {
			if percent == last {
				return
			}
			last = percent
			if percent == progress.Unknown {
				fmt.Fprintf(s.stderr, "%s %s\n", VerboseStyle.Render(label+":"), msg)
				return
			}
			fmt.Fprintf(s.stderr, "%s %s %s\n", VerboseStyle.Render(label+":"), msg, VerboseStyle.Render(fmt.Sprintf("(%d%%)", percent)))
		},
		OnComplete: func(msg string) {
			fmt.Fprintf(s.stderr, "%s %s\n", SuccessStyle.Render(successIcon), msg)
		},
		OnFail: func(err error) {
			fmt.Fprintf(s.stderr, "%s %s: %v\n", ErrorStyle.Render(failIcon), label, err)
		},
	}
}
