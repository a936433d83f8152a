// SPDX-License-Identifier: MPL-2.0

package driver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"shellgrader/internal/eventlog"
	"shellgrader/internal/sandbox"
	"shellgrader/pkg/testcase"
)

// startupPromptTimeout bounds how long the driver waits for the very
// first prompt after a sandbox starts, independent of TestCase.Timeout.
const startupPromptTimeout = 5 * time.Second

// childExited is raised internally once an EOF or TIMEOUT event is
// produced, unwinding the command loop the same way pexpect's
// ChildProcessExited does in the source tester.
var childExited = errors.New("driver: child exited")

// Driver drives one interactive TestCase against a sandboxed candidate
// shell and produces a Result. A Driver is single-use: call Run once.
type Driver struct {
	engine      sandbox.Engine
	binary      string
	handle      *sandbox.SandboxHandle
	reader      *reader
	events      []eventlog.Event
	timeout     time.Duration
	diag        bytes.Buffer
	logger      *log.Logger
}

// New creates a Driver that will run the candidate binary through engine.
func New(engine sandbox.Engine, candidateBinary string) *Driver {
	d := &Driver{engine: engine, binary: candidateBinary}
	d.logger = log.NewWithOptions(&d.diag, log.Options{Prefix: "driver", ReportTimestamp: true})
	return d
}

// Run drives tc to completion (or exit, or timeout) and returns the
// resulting event stream, tearing the sandbox down on every exit path.
func (d *Driver) Run(ctx context.Context, tc testcase.TestCase) (*Result, error) {
	d.timeout = tc.Timeout
	if d.timeout <= 0 {
		d.timeout = time.Duration(testcase.DefaultTimeoutSeconds * float64(time.Second))
	}

	handle, err := sandbox.Start(ctx, d.engine, d.binary, tc.RequiresTestFolder)
	if err != nil {
		d.logger.Error("sandbox startup failed", "err", err)
		return d.finish(tc), fmt.Errorf("run testcase %q: %w", tc.Description, err)
	}
	d.handle = handle
	d.reader = newReader(handle.PTY)
	defer d.handle.Close(ctx)

	runErr := d.converse(ctx, tc)
	return d.finish(tc), runErr
}

// converse carries out the startup prompt wait, then drives each command
// in turn. It returns nil on an ordinary (possibly truncated) completion;
// the event list itself, not this error, is what callers grade.
func (d *Driver) converse(ctx context.Context, tc testcase.TestCase) error {
	if err := d.awaitPrompt(startupPromptTimeout); err != nil {
		if errors.Is(err, childExited) {
			return nil
		}
		return err
	}

	for i, cmd := range tc.Commands {
		if err := d.sendCmd(ctx, cmd); err != nil {
			if errors.Is(err, childExited) {
				return nil
			}
			d.addEvent(eventlog.Event{Time: time.Now(), Type: eventlog.Error, Details: fmt.Sprintf("cmd %d: %v", i, err)})
			return nil
		}
	}
	return nil
}

// sendCmd emits the INPUT event for cmd, carries out its side effect
// against the sandbox, and then awaits whatever the command's flags say
// it should await: exit, a prompt, or nothing.
func (d *Driver) sendCmd(ctx context.Context, cmd testcase.Command) error {
	d.addEvent(eventlog.Event{Time: time.Now(), Type: eventlog.Input, Details: serializeCmd(cmd)})

	switch c := cmd.(type) {
	case testcase.GenericCmd:
		if _, err := d.handle.PTY.Write([]byte(c.Cmd + "\n")); err != nil {
			return fmt.Errorf("write command: %w", err)
		}
	case testcase.ControlSignal:
		if err := d.sendControlSignal(ctx, c); err != nil {
			return err
		}
	case testcase.StartShell:
		d.logger.Info("restarting shell", "reason", c.Reason)
		if err := d.handle.Restart(ctx); err != nil {
			return fmt.Errorf("restart shell: %w", err)
		}
		prevLog := d.reader.rawLog()
		d.reader = newReader(d.handle.PTY)
		d.reader.log.WriteString(prevLog + "\n##### RESTARTED SHELL #####\n")
	default:
		d.addEvent(eventlog.Event{Time: time.Now(), Type: eventlog.Error, Details: "encountered unrecognized command type"})
		return childExited
	}

	switch {
	case cmd.ExpectsExit():
		return d.awaitExit()
	case !cmd.SkipsPromptCheck():
		return d.awaitPrompt(d.timeout)
	default:
		return nil
	}
}

// sendControlSignal delivers a mapped POSIX signal through the sandbox,
// or the raw control character through the PTY for unmapped codes.
func (d *Driver) sendControlSignal(ctx context.Context, c testcase.ControlSignal) error {
	if c.Code == "" {
		return nil
	}
	if name, ok := c.Code.SignalName(); ok {
		if err := d.handle.Signal(ctx, name); err != nil {
			d.logger.Error("failed to send signal", "signal", name, "err", err)
		}
		return nil
	}
	b := controlByte(c.Code[0])
	if _, err := d.handle.PTY.Write([]byte{b}); err != nil {
		return fmt.Errorf("write control character: %w", err)
	}
	return nil
}

// controlByte maps a lowercase letter to its control character, the same
// translation pexpect's sendcontrol() performs (Ctrl-A through Ctrl-Z).
func controlByte(letter byte) byte {
	return letter - 'a' + 1
}

// awaitPrompt consumes events until a prompt is seen or the child exits.
func (d *Driver) awaitPrompt(perEventTimeout time.Duration) error {
	for {
		ev := d.reader.next(perEventTimeout)
		d.addEvent(ev)
		if ev.IsExit() {
			return childExited
		}
		if ev.Type == eventlog.Output && eventlog.PromptPattern.MatchString(ev.Details) {
			return nil
		}
	}
}

// awaitExit consumes events until EOF or TIMEOUT, bounded by both a
// per-event timeout and an overall wall-clock budget equal to d.timeout.
func (d *Driver) awaitExit() error {
	deadline := time.Now().Add(d.timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			d.addEvent(eventlog.Event{Time: time.Now(), Type: eventlog.Timeout, Details: "timed out waiting for exit"})
			return childExited
		}
		ev := d.reader.next(minDuration(remaining, d.timeout))
		d.addEvent(ev)
		if ev.IsExit() {
			return childExited
		}
	}
}

func (d *Driver) addEvent(ev eventlog.Event) {
	d.events = append(d.events, ev)
}

func (d *Driver) finish(tc testcase.TestCase) *Result {
	raw := ""
	if d.reader != nil {
		raw = d.reader.rawLog()
	}
	return &Result{
		TestCase: tc,
		Events:   d.events,
		RawLog:   raw,
		DiagLog:  d.diag.String(),
	}
}

// serializeCmd renders a Command as the INPUT event's details, so the
// event stream carries exactly what was sent without the grading layer
// needing to re-derive it from the TestCase.
func serializeCmd(cmd testcase.Command) string {
	b, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Sprintf("%+v", cmd)
	}
	return string(b)
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
