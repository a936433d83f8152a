// SPDX-License-Identifier: MPL-2.0

package grading

import (
	"fmt"
	"strings"
	"time"

	"shellgrader/internal/driver"
	"shellgrader/internal/eventlog"
	"shellgrader/pkg/testcase"
)

// eofLatencyBudget bounds how quickly EOF must follow a Ctrl+D: a
// hard-coded design constant, not derived from TestCase.Timeout.
const eofLatencyBudget = 500 * time.Millisecond

// Grade evaluates a driven TestCase's event stream against its
// expectations and returns the verdict. testID labels the report only; it
// plays no role in grading itself.
func Grade(testID string, res *driver.Result) *GradeReport {
	tc := res.TestCase
	report := &GradeReport{TestID: testID, Section: tc.Section, Description: tc.Description}

	if hasErrorEvent(res.Events) {
		report.Failure = &FailureReason{
			StepIndex: -1,
			Command:   "Global Execution",
			Reason:    "Test runner encountered an error (see raw logs).",
		}
		return report
	}

	stream := filterStream(res.Events)
	inputIdx := inputIndices(stream)

	if len(inputIdx) != len(tc.Commands) {
		report.Failure = &FailureReason{
			StepIndex: len(inputIdx),
			Command:   "Sequence Check",
			Reason:    fmt.Sprintf("Expected %d commands, but executed %d.", len(tc.Commands), len(inputIdx)),
		}
		return report
	}

	for cmdIdx, cmd := range tc.Commands {
		if _, ok := cmd.(testcase.StartShell); ok {
			continue
		}

		start := inputIdx[cmdIdx]
		end := len(stream)
		if cmdIdx+1 < len(inputIdx) {
			end = inputIdx[cmdIdx+1]
		}
		slice := stream[start:end]

		if failure := checkCommand(cmdIdx, cmd, tc, slice, stream); failure != nil {
			report.Failure = failure
			return report
		}
	}

	report.Passed = true
	report.Score = 1.0
	return report
}

// checkCommand runs every ordered check for one command's slice of the
// event stream and returns the first failure encountered, or nil if the
// command passes every check that applies to it.
func checkCommand(cmdIdx int, cmd testcase.Command, tc testcase.TestCase, slice, stream []eventlog.Event) *FailureReason {
	label := describeCmd(cmd)

	if cs, ok := cmd.(testcase.ControlSignal); ok && cs.Code == "d" {
		last := stream[len(stream)-1]
		if last.Type != eventlog.EOF {
			return &FailureReason{StepIndex: cmdIdx, Command: label, Reason: "Expected EOF after Ctrl+D, shell did not exit."}
		}
		if last.Time.Sub(slice[0].Time) > eofLatencyBudget {
			return &FailureReason{StepIndex: cmdIdx, Command: label, Reason: "Shell took too long to exit after Ctrl+D."}
		}
		return nil
	}

	promptText, actualLines := splitPrompt(slice)

	if !cmd.ExpectsExit() && !cmd.SkipsPromptCheck() && promptText == "" {
		return &FailureReason{StepIndex: cmdIdx, Command: label, Reason: "Prompt not found after command execution."}
	}

	if tc.StrictPrompt && !cmd.ExpectsExit() && !cmd.SkipsPromptCheck() {
		if promptText == "" {
			return &FailureReason{StepIndex: cmdIdx, Command: label, Reason: "Prompt not found after command execution."}
		}
		m := eventlog.StrictPromptPattern.FindStringSubmatch(strings.TrimSpace(promptText))
		if m == nil {
			return &FailureReason{StepIndex: cmdIdx, Command: label, Reason: "Prompt malformed.", Actual: promptText}
		}
		if gc, ok := cmd.(testcase.GenericCmd); ok && gc.CwdAfter != "" {
			cwd := m[3]
			if cwd != gc.CwdAfter {
				return &FailureReason{StepIndex: cmdIdx, Command: label, Reason: "Wrong CWD in prompt.", Expected: gc.CwdAfter, Actual: cwd}
			}
		}
	}

	linesToCheck := make([]string, len(actualLines))
	for i, l := range actualLines {
		linesToCheck[i] = strings.TrimSpace(l)
	}

	if cs, ok := cmd.(testcase.ControlSignal); ok {
		wantLen := 0
		if cs.Output != nil {
			wantLen = 1
		}
		if len(linesToCheck) != wantLen {
			return &FailureReason{
				StepIndex: cmdIdx, Command: label,
				Reason:   "Incorrect number of output lines for sequential check.",
				Expected: fmt.Sprintf("%d", wantLen), Actual: fmt.Sprintf("%d", len(linesToCheck)),
			}
		}
		if cs.Output == nil {
			return nil
		}
		actual := linesToCheck[0]
		isMatch := checkLineMatch(actual, cs.Output.Text, cs.Output.IsRegex)
		if cs.Output.NegativeMatch {
			if isMatch {
				return &FailureReason{StepIndex: cmdIdx, Command: label, Reason: "Found forbidden output.", Actual: actual}
			}
		} else if !isMatch {
			return &FailureReason{StepIndex: cmdIdx, Command: label, Reason: "Output mismatch.", Expected: cs.Output.Text, Actual: actual}
		}
		return nil
	}

	gc, ok := cmd.(testcase.GenericCmd)
	if !ok {
		return &FailureReason{StepIndex: cmdIdx, Command: label, Reason: "Unrecognized command type."}
	}

	for _, ns := range gc.NonsequentialOutputs {
		foundIdx := -1
		for i, line := range linesToCheck {
			if checkLineMatch(line, ns.Text, ns.IsRegex) {
				foundIdx = i
				break
			}
		}
		if ns.NegativeMatch {
			if foundIdx != -1 {
				return &FailureReason{
					StepIndex: cmdIdx, Command: label,
					Reason: fmt.Sprintf("Found forbidden output: %q", ns.Text), Actual: linesToCheck[foundIdx],
				}
			}
			continue
		}
		if foundIdx == -1 {
			return &FailureReason{
				StepIndex: cmdIdx, Command: label,
				Reason: fmt.Sprintf("Missing required non-sequential output: %q", ns.Text), Actual: strings.Join(actualLines, "\r\n"),
			}
		}
		linesToCheck = append(linesToCheck[:foundIdx], linesToCheck[foundIdx+1:]...)
	}

	if gc.IgnoreOutput {
		return nil
	}

	if len(linesToCheck) != len(gc.SequentialOutputs) {
		return &FailureReason{
			StepIndex: cmdIdx, Command: label,
			Reason:   "Incorrect number of output lines for sequential check.",
			Expected: fmt.Sprintf("%d", len(gc.SequentialOutputs)), Actual: fmt.Sprintf("%d", len(linesToCheck)),
		}
	}
	for i, seq := range gc.SequentialOutputs {
		actual := linesToCheck[i]
		isMatch := checkLineMatch(actual, seq.Text, seq.IsRegex)
		if seq.NegativeMatch {
			if isMatch {
				return &FailureReason{StepIndex: cmdIdx, Command: label, Reason: fmt.Sprintf("Found forbidden output at line %d.", i), Actual: actual}
			}
		} else if !isMatch {
			return &FailureReason{StepIndex: cmdIdx, Command: label, Reason: fmt.Sprintf("Output mismatch at line %d.", i), Expected: seq.Text, Actual: actual}
		}
	}

	return nil
}

// hasErrorEvent reports whether any event in the stream is an ERROR event,
// which short-circuits grading entirely regardless of which command
// produced it.
func hasErrorEvent(events []eventlog.Event) bool {
	for _, e := range events {
		if e.Type == eventlog.Error {
			return true
		}
	}
	return false
}

// filterStream drops everything but the event types grading cares about:
// INPUT marks command boundaries, OUTPUT/TIMEOUT/EOF are what gets graded.
func filterStream(events []eventlog.Event) []eventlog.Event {
	out := make([]eventlog.Event, 0, len(events))
	for _, e := range events {
		switch e.Type {
		case eventlog.Input, eventlog.Output, eventlog.Timeout, eventlog.EOF:
			out = append(out, e)
		}
	}
	return out
}

// inputIndices returns the index of every INPUT event in stream, in order.
func inputIndices(stream []eventlog.Event) []int {
	var idx []int
	for i, e := range stream {
		if e.Type == eventlog.Input {
			idx = append(idx, i)
		}
	}
	return idx
}

// splitPrompt separates a command's event slice (INPUT followed by zero or
// more OUTPUT/TIMEOUT/EOF events) into the trailing prompt text, if the
// last OUTPUT event looks like one, and the remaining content lines. The
// prompt check is a prefix match (the original's re.match semantics): text
// after the matched prompt is tolerated, text before it is not.
func splitPrompt(slice []eventlog.Event) (promptText string, actualLines []string) {
	var outputs []eventlog.Event
	for _, e := range slice[1:] {
		if e.Type == eventlog.Output {
			outputs = append(outputs, e)
		}
	}
	if len(outputs) == 0 {
		return "", nil
	}

	last := outputs[len(outputs)-1].Details
	if loc := eventlog.PromptPattern.FindStringIndex(last); loc != nil && loc[0] == 0 {
		promptText = last
		outputs = outputs[:len(outputs)-1]
	}

	actualLines = make([]string, len(outputs))
	for i, e := range outputs {
		actualLines[i] = e.Details
	}
	return promptText, actualLines
}

// describeCmd labels a command for a FailureReason, matching the original
// grader's "Ctrl+<code>" label for control signals and the literal command
// line for everything else.
func describeCmd(cmd testcase.Command) string {
	switch c := cmd.(type) {
	case testcase.GenericCmd:
		return c.Cmd
	case testcase.ControlSignal:
		return fmt.Sprintf("Ctrl+%s", c.Code)
	case testcase.StartShell:
		return "Restart Shell"
	default:
		return "Unknown Command"
	}
}
