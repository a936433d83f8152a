// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCUEPath is the sentinel error wrapped by InvalidCUEPathError.
var ErrInvalidCUEPath = errors.New("invalid CUE path")

// CUEPath is a JSON-path-style pointer into a decoded CUE document (e.g.
// "cmds[0].name"), as produced by formatPath. It is a validated value type
// so callers constructing one outside of FormatError (tests, custom
// diagnostics) get the same non-empty, non-blank guarantee.
type CUEPath string

// InvalidCUEPathError is returned when a CUEPath is empty or whitespace-only.
type InvalidCUEPathError struct {
	Value CUEPath
}

// Error implements the error interface.
func (e *InvalidCUEPathError) Error() string {
	return fmt.Sprintf("invalid CUE path %q: must be non-empty", string(e.Value))
}

// Unwrap returns ErrInvalidCUEPath so callers can use errors.Is.
func (e *InvalidCUEPathError) Unwrap() error { return ErrInvalidCUEPath }

// Validate returns an error if the CUEPath is empty or whitespace-only.
func (p CUEPath) Validate() error {
	if strings.TrimSpace(string(p)) == "" {
		return &InvalidCUEPathError{Value: p}
	}
	return nil
}

// String returns the string representation of the CUEPath.
func (p CUEPath) String() string { return string(p) }
