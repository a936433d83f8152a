// SPDX-License-Identifier: MPL-2.0

package grading

import (
	"testing"
	"time"

	"shellgrader/internal/driver"
	"shellgrader/internal/eventlog"
	"shellgrader/pkg/testcase"
)

func ev(typ eventlog.EventType, details string) eventlog.Event {
	return eventlog.Event{Time: time.Now(), Type: typ, Details: details}
}

func evAt(typ eventlog.EventType, details string, at time.Time) eventlog.Event {
	return eventlog.Event{Time: at, Type: typ, Details: details}
}

const promptText = "<user@osntesting:/app>"

func TestGradePassesSequentialOutput(t *testing.T) {
	t.Parallel()

	tc := testcase.TestCase{
		Description: "echo a line",
		Commands: []testcase.Command{
			testcase.GenericCmd{
				Cmd:               "echo hi",
				SequentialOutputs: []testcase.Line{{Text: "hi"}},
			},
		},
	}
	res := &driver.Result{
		TestCase: tc,
		Events: []eventlog.Event{
			ev(eventlog.Output, promptText),
			ev(eventlog.Input, `{"cmd":"echo hi"}`),
			ev(eventlog.Output, "hi"),
			ev(eventlog.Output, promptText),
		},
	}

	report := Grade("1", res)
	if !report.Passed {
		t.Fatalf("expected pass, got failure: %+v", report.Failure)
	}
	if report.Score != 1.0 {
		t.Errorf("Score = %v, want 1.0", report.Score)
	}
}

func TestGradeFailsOnOutputMismatch(t *testing.T) {
	t.Parallel()

	tc := testcase.TestCase{
		Commands: []testcase.Command{
			testcase.GenericCmd{
				Cmd:               "echo hi",
				SequentialOutputs: []testcase.Line{{Text: "bye"}},
			},
		},
	}
	res := &driver.Result{
		TestCase: tc,
		Events: []eventlog.Event{
			ev(eventlog.Input, `{"cmd":"echo hi"}`),
			ev(eventlog.Output, "hi"),
			ev(eventlog.Output, promptText),
		},
	}

	report := Grade("1", res)
	if report.Passed {
		t.Fatal("expected failure")
	}
	if report.Failure == nil || report.Failure.StepIndex != 0 {
		t.Fatalf("unexpected failure: %+v", report.Failure)
	}
}

func TestGradeFailsOnCommandCountMismatch(t *testing.T) {
	t.Parallel()

	tc := testcase.TestCase{
		Commands: []testcase.Command{
			testcase.GenericCmd{Cmd: "echo one"},
			testcase.GenericCmd{Cmd: "echo two"},
		},
	}
	res := &driver.Result{
		TestCase: tc,
		Events: []eventlog.Event{
			ev(eventlog.Input, `{"cmd":"echo one"}`),
			ev(eventlog.Output, promptText),
		},
	}

	report := Grade("1", res)
	if report.Passed {
		t.Fatal("expected failure")
	}
	if report.Failure.Command != "Sequence Check" {
		t.Errorf("Failure.Command = %q, want %q", report.Failure.Command, "Sequence Check")
	}
}

func TestGradeShortCircuitsOnErrorEvent(t *testing.T) {
	t.Parallel()

	tc := testcase.TestCase{
		Commands: []testcase.Command{testcase.GenericCmd{Cmd: "echo hi"}},
	}
	res := &driver.Result{
		TestCase: tc,
		Events: []eventlog.Event{
			ev(eventlog.Input, `{"cmd":"echo hi"}`),
			ev(eventlog.Error, "sandbox startup failed"),
		},
	}

	report := Grade("1", res)
	if report.Passed {
		t.Fatal("expected failure")
	}
	if report.Failure.StepIndex != -1 {
		t.Errorf("StepIndex = %d, want -1", report.Failure.StepIndex)
	}
}

func TestGradeFailsOnMissingPrompt(t *testing.T) {
	t.Parallel()

	tc := testcase.TestCase{
		Commands: []testcase.Command{testcase.GenericCmd{Cmd: "echo hi"}},
	}
	res := &driver.Result{
		TestCase: tc,
		Events: []eventlog.Event{
			ev(eventlog.Input, `{"cmd":"echo hi"}`),
			ev(eventlog.Output, "hi"),
		},
	}

	report := Grade("1", res)
	if report.Passed {
		t.Fatal("expected failure")
	}
	if report.Failure.Reason != "Prompt not found after command execution." {
		t.Errorf("Reason = %q", report.Failure.Reason)
	}
}

func TestGradeControlSignalEOFLatency(t *testing.T) {
	t.Parallel()

	tc := testcase.TestCase{
		Commands: []testcase.Command{
			testcase.ControlSignal{Code: testcase.ControlSignalCode("d")},
		},
	}
	start := time.Now()
	res := &driver.Result{
		TestCase: tc,
		Events: []eventlog.Event{
			evAt(eventlog.Input, `{"code":"d"}`, start),
			evAt(eventlog.EOF, "EOF received from child", start.Add(100*time.Millisecond)),
		},
	}

	report := Grade("1", res)
	if !report.Passed {
		t.Fatalf("expected pass, got: %+v", report.Failure)
	}
}

func TestGradeControlSignalEOFTooSlow(t *testing.T) {
	t.Parallel()

	tc := testcase.TestCase{
		Commands: []testcase.Command{
			testcase.ControlSignal{Code: testcase.ControlSignalCode("d")},
		},
	}
	start := time.Now()
	res := &driver.Result{
		TestCase: tc,
		Events: []eventlog.Event{
			evAt(eventlog.Input, `{"code":"d"}`, start),
			evAt(eventlog.EOF, "EOF received from child", start.Add(800*time.Millisecond)),
		},
	}

	report := Grade("1", res)
	if report.Passed {
		t.Fatal("expected failure for slow EOF")
	}
}

func TestGradeNonsequentialThenSequential(t *testing.T) {
	t.Parallel()

	tc := testcase.TestCase{
		Commands: []testcase.Command{
			testcase.GenericCmd{
				Cmd: "ls",
				NonsequentialOutputs: []testcase.Line{
					{Text: "file2.txt"},
				},
				SequentialOutputs: []testcase.Line{
					{Text: "file1.txt"},
				},
			},
		},
	}
	res := &driver.Result{
		TestCase: tc,
		Events: []eventlog.Event{
			ev(eventlog.Input, `{"cmd":"ls"}`),
			ev(eventlog.Output, "file1.txt"),
			ev(eventlog.Output, "file2.txt"),
			ev(eventlog.Output, promptText),
		},
	}

	report := Grade("1", res)
	if !report.Passed {
		t.Fatalf("expected pass, got: %+v", report.Failure)
	}
}

func TestGradeIgnoreOutputSkipsAssertions(t *testing.T) {
	t.Parallel()

	tc := testcase.TestCase{
		Commands: []testcase.Command{
			testcase.GenericCmd{Cmd: "date", IgnoreOutput: true},
		},
	}
	res := &driver.Result{
		TestCase: tc,
		Events: []eventlog.Event{
			ev(eventlog.Input, `{"cmd":"date"}`),
			ev(eventlog.Output, "Wed Jul 30 00:00:00 UTC 2026"),
			ev(eventlog.Output, promptText),
		},
	}

	report := Grade("1", res)
	if !report.Passed {
		t.Fatalf("expected pass, got: %+v", report.Failure)
	}
}

func TestGradeStrictPromptChecksCwd(t *testing.T) {
	t.Parallel()

	tc := testcase.TestCase{
		StrictPrompt: true,
		Commands: []testcase.Command{
			testcase.GenericCmd{Cmd: "cd /tmp", CwdAfter: "/tmp"},
		},
	}
	res := &driver.Result{
		TestCase: tc,
		Events: []eventlog.Event{
			ev(eventlog.Input, `{"cmd":"cd /tmp"}`),
			ev(eventlog.Output, "<user@osntesting:/home>"),
		},
	}

	report := Grade("1", res)
	if report.Passed {
		t.Fatal("expected failure for wrong cwd")
	}
	if report.Failure.Reason != "Wrong CWD in prompt." {
		t.Errorf("Reason = %q", report.Failure.Reason)
	}
}
