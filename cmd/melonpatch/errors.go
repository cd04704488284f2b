// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/melonpatch/melonpatch/internal/fetch"
	"github.com/melonpatch/melonpatch/internal/issue"
	"github.com/melonpatch/melonpatch/pkg/extract"
	"github.com/melonpatch/melonpatch/pkg/inject"
	"github.com/melonpatch/melonpatch/pkg/mods"
	"github.com/melonpatch/melonpatch/pkg/validate"
)

// issueStyle is the glamour style used for catalog entries.
const issueStyle = "dark"

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// renderError writes err to w. In verbose mode the linked catalog entry is
// rendered below it.
func renderError(w io.Writer, err error, verbose bool) {
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, verbose))
	if !verbose {
		return
	}
	if entry := issue.IssueOf(err); entry != nil {
		rendered, rerr := entry.Render(issueStyle)
		if rerr != nil {
			fmt.Fprintln(w, WarningStyle.Render(fmt.Sprintf("failed to render help: %v", rerr)))
			return
		}
		fmt.Fprint(w, rendered)
	}
}

// classifyError maps a domain failure to its catalog entry. Zero means no
// specific entry applies.
func classifyError(err error) issue.Id {
	var statusErr *fetch.StatusError
	switch {
	case errors.Is(err, extract.ErrSecurityViolation):
		return issue.SecurityViolationId
	case errors.Is(err, extract.ErrNotLoaderArchive),
		errors.Is(err, fetch.ErrAssetNotFound),
		errors.Is(err, fetch.ErrReleaseNotFound),
		errors.As(err, &statusErr):
		return issue.ArchiveNotFoundId
	case errors.Is(err, inject.ErrNothingToInject):
		return issue.NothingToInjectId
	case errors.Is(err, validate.ErrInvalidBinary):
		return issue.InvalidModBinaryId
	case errors.Is(err, os.ErrPermission):
		return issue.PermissionDeniedId
	}
	return 0
}

// actionable wraps err in an ActionableError for op on resource, attaching
// the classified catalog entry and suggestions. ActionableErrors pass through.
func actionable(err error, op, resource string, suggestions ...string) error {
	if err == nil {
		return nil
	}
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return err
	}

	id := classifyError(err)
	switch {
	case errors.Is(err, mods.ErrModNotFound):
		suggestions = append(suggestions, "Run 'melonpatch mods list' to see installed mods")
	case errors.Is(err, mods.ErrConflictingState):
		suggestions = append(suggestions, "Delete either the enabled or the .disabled copy by hand")
	case id == issue.PermissionDeniedId:
		suggestions = append(suggestions, "Check the permissions of the game directory")
	}

	return issue.NewErrorContext().
		WithOperation(op).
		WithResource(resource).
		WithSuggestions(suggestions...).
		WithIssue(id).
		Wrap(err).
		BuildError()
}
