// SPDX-License-Identifier: MPL-2.0

// Package driver drives one interactive shell session inside a sandbox
// and produces the event stream internal/grading evaluates. It owns the
// conversation end to end: sending each TestCase command, recognizing
// prompts, timing out, and tearing the sandbox down on every exit path.
package driver

import (
	"shellgrader/internal/eventlog"
	"shellgrader/pkg/testcase"
)

// Result is one driven TestCase: its full event stream plus the raw PTY
// byte log and a diagnostic log, ready for internal/grading and for
// archival regardless of pass/fail.
type Result struct {
	TestCase testcase.TestCase
	Events   []eventlog.Event
	RawLog   string
	DiagLog  string
}
