// SPDX-License-Identifier: MPL-2.0

// Package grading evaluates a driven TestCase's event stream against its
// declared expectations and produces a GradeReport. Grade is a pure
// function: it never touches a sandbox, a PTY, or the filesystem, so it
// can be re-run offline against an archived internal/driver.Result.
package grading
