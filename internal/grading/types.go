// SPDX-License-Identifier: MPL-2.0

package grading

import "shellgrader/pkg/testcase"

// FailureReason pinpoints the first check that failed during grading.
// StepIndex is -1 for a failure that isn't attributable to one command
// (a global ERROR event). A command-count mismatch is reported at the
// index of the first unaccounted-for command, i.e. the number of commands
// that were actually executed.
type FailureReason struct {
	StepIndex int    `json:"step_index"`
	Command   string `json:"command"`
	Reason    string `json:"reason"`
	Expected  string `json:"expected,omitempty"`
	Actual    string `json:"actual,omitempty"`
}

// GradeReport is the grading verdict for one TestCase run.
type GradeReport struct {
	TestID      string           `json:"test_id"`
	Section     testcase.Section `json:"section"`
	Description string           `json:"description"`
	Passed      bool             `json:"passed"`
	Score       float64          `json:"score"`
	Failure     *FailureReason   `json:"failure,omitempty"`
}
