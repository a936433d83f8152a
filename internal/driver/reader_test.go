// SPDX-License-Identifier: MPL-2.0

package driver

import (
	"os"
	"testing"
	"time"

	"shellgrader/internal/eventlog"
)

// newPipeReader wires a reader to the read end of an os.Pipe, standing in
// for a PTY: os.Pipe's *os.File supports SetReadDeadline on Linux the same
// way a pty device does, so next()'s deadline handling exercises the real
// code path without a container.
func newPipeReader(t *testing.T) (*reader, *os.File) {
	t.Helper()
	rf, wf, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe() error: %v", err)
	}
	t.Cleanup(func() { rf.Close() })
	return newReader(rf), wf
}

func TestReaderNextReturnsLineEvent(t *testing.T) {
	r, w := newPipeReader(t)
	defer w.Close()

	if _, err := w.WriteString("hello world\r\n"); err != nil {
		t.Fatalf("write: %v", err)
	}

	ev := r.next(time.Second)
	if ev.Type != eventlog.Output {
		t.Fatalf("event type = %v, want Output", ev.Type)
	}
	if ev.Details != "hello world" {
		t.Errorf("Details = %q, want %q", ev.Details, "hello world")
	}
}

func TestReaderNextReturnsPromptEvent(t *testing.T) {
	r, w := newPipeReader(t)
	defer w.Close()

	if _, err := w.WriteString("<user@host:/app>\r\n"); err != nil {
		t.Fatalf("write: %v", err)
	}

	ev := r.next(time.Second)
	if ev.Type != eventlog.Output {
		t.Fatalf("event type = %v, want Output", ev.Type)
	}
	if ev.Details != "<user@host:/app>" {
		t.Errorf("Details = %q, want %q", ev.Details, "<user@host:/app>")
	}
}

func TestReaderNextQueuesPendingPromptAfterBeforeText(t *testing.T) {
	r, w := newPipeReader(t)
	defer w.Close()

	if _, err := w.WriteString("ABC<user@host:/app>\r\n"); err != nil {
		t.Fatalf("write: %v", err)
	}

	first := r.next(time.Second)
	if first.Type != eventlog.Output || first.Details != "ABC" {
		t.Fatalf("first event = %+v, want Output{Details: ABC}", first)
	}

	second := r.next(time.Second)
	if second.Type != eventlog.Output || second.Details != "<user@host:/app>" {
		t.Fatalf("second event = %+v, want the queued prompt", second)
	}
}

func TestReaderNextReturnsEachLineBeforeEmbeddedPromptSeparately(t *testing.T) {
	r, w := newPipeReader(t)
	defer w.Close()

	// Two output lines followed immediately by the next prompt, all
	// delivered in a single PTY chunk: the line matches must each come
	// back as their own event before the prompt, not as one OUTPUT event
	// whose Details still contains an embedded "\r\n".
	if _, err := w.WriteString("file4.txt\r\nfile5.txt\r\n<user@host:/app>\r\n"); err != nil {
		t.Fatalf("write: %v", err)
	}

	first := r.next(time.Second)
	if first.Type != eventlog.Output || first.Details != "file4.txt" {
		t.Fatalf("first event = %+v, want Output{Details: file4.txt}", first)
	}

	second := r.next(time.Second)
	if second.Type != eventlog.Output || second.Details != "file5.txt" {
		t.Fatalf("second event = %+v, want Output{Details: file5.txt}", second)
	}

	third := r.next(time.Second)
	if third.Type != eventlog.Output || third.Details != "<user@host:/app>" {
		t.Fatalf("third event = %+v, want Output{Details: <user@host:/app>}", third)
	}
}

func TestReaderNextTimesOutWithNoData(t *testing.T) {
	r, w := newPipeReader(t)
	defer w.Close()

	ev := r.next(50 * time.Millisecond)
	if ev.Type != eventlog.Timeout {
		t.Fatalf("event type = %v, want Timeout", ev.Type)
	}
}

func TestReaderNextReportsEOFOnClosedPipe(t *testing.T) {
	r, w := newPipeReader(t)
	w.Close()

	ev := r.next(time.Second)
	if ev.Type != eventlog.EOF {
		t.Fatalf("event type = %v, want EOF", ev.Type)
	}
}

func TestReaderNextFlushesUnmatchedTextBeforeEOF(t *testing.T) {
	r, w := newPipeReader(t)

	if _, err := w.WriteString("partial"); err != nil {
		t.Fatalf("write: %v", err)
	}
	w.Close()

	first := r.next(time.Second)
	if first.Type != eventlog.Output || first.Details != "partial" {
		t.Fatalf("first event = %+v, want Output{Details: partial}", first)
	}

	second := r.next(time.Second)
	if second.Type != eventlog.EOF {
		t.Fatalf("second event = %v, want EOF", second.Type)
	}
}

func TestReaderRawLogAccumulatesAllBytesRead(t *testing.T) {
	r, w := newPipeReader(t)
	defer w.Close()

	w.WriteString("one\r\n")
	r.next(time.Second)
	w.WriteString("two\r\n")
	r.next(time.Second)

	if got := r.rawLog(); got != "one\r\ntwo\r\n" {
		t.Errorf("rawLog() = %q, want %q", got, "one\r\ntwo\r\n")
	}
}
