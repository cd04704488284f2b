// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"fmt"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

type (
	// ValidationError is one CUE error located in a document.
	ValidationError struct {
		// FilePath is the document being validated.
		FilePath string
		// CUEPath is the JSON path of the invalid value, e.g. "validation.threshold".
		CUEPath string
		Message string
	}

	// ValidationErrors collects every error reported for one document.
	ValidationErrors []*ValidationError
)

func (e *ValidationError) Error() string {
	if e.CUEPath != "" {
		return fmt.Sprintf("%s: %s: %s", e.FilePath, e.CUEPath, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.FilePath, e.Message)
}

func (es ValidationErrors) Error() string {
	if len(es) == 1 {
		return es[0].Error()
	}
	lines := make([]string, 0, len(es))
	for _, e := range es {
		if e.CUEPath != "" {
			lines = append(lines, e.CUEPath+": "+e.Message)
		} else {
			lines = append(lines, e.Message)
		}
	}
	return fmt.Sprintf("%s: validation failed:\n  %s", es[0].FilePath, strings.Join(lines, "\n  "))
}

// Unwrap exposes the individual errors to errors.As.
func (es ValidationErrors) Unwrap() []error {
	out := make([]error, len(es))
	for i, e := range es {
		out[i] = e
	}
	return out
}

// FormatError converts a CUE error into ValidationErrors whose messages are
// prefixed with the file path and the JSON path of the offending field:
//
//	config.cue: validation.threshold: invalid value 2 (out of bound <=1)
//
// Errors that carry no CUE detail are wrapped with the file path.
func FormatError(err error, filePath string) error {
	if err == nil {
		return nil
	}

	cueErrs := cueerrors.Errors(err)
	if len(cueErrs) == 0 {
		return fmt.Errorf("%s: %w", filePath, err)
	}

	out := make(ValidationErrors, 0, len(cueErrs))
	for _, e := range cueErrs {
		path := formatPath(cueerrors.Path(e))
		msg := e.Error()
		// CUE sometimes repeats the path in the message.
		if path != "" && strings.HasPrefix(msg, path) {
			msg = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, path), ":"))
		}
		out = append(out, &ValidationError{FilePath: filePath, CUEPath: path, Message: msg})
	}
	return out
}

// IsValidationError reports whether err carries CUE validation detail.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// formatPath converts a CUE error path such as ["validation", "modern_required", "0"]
// to JSON-path notation ("validation.modern_required[0]").
func formatPath(path []string) string {
	var sb strings.Builder
	for i, part := range path {
		if i > 0 && isIndex(part) {
			sb.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(part)
	}
	return sb.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// CheckFileSize returns an error when data is larger than maxSize.
func CheckFileSize(data []byte, maxSize int64, filename string) error {
	if int64(len(data)) > maxSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes",
			filename, len(data), maxSize)
	}
	return nil
}
