// SPDX-License-Identifier: MPL-2.0

// Package testcase defines the declarative test-case schema consumed by
// internal/driver and internal/grading: TestCaseList, TestCase, the
// Command tagged union, and Line output expectations. Parse validates a
// test-case file against an embedded CUE schema before decoding it.
package testcase
