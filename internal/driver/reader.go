// SPDX-License-Identifier: MPL-2.0

package driver

import (
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"shellgrader/internal/eventlog"
)

// lineSep is the line terminator a prompt-driven shell is expected to
// write after every line of output, matching the candidate's PTY in
// cooked-but-echo-off mode.
const lineSep = "\r\n"

// reader incrementally accumulates PTY output and peels off one event's
// worth of text at a time: a prompt match, a \r\n-terminated line, EOF,
// or a per-call timeout. It mirrors pexpect's four-pattern expect() loop
// without requiring the whole stream to be buffered up front.
type reader struct {
	pty *os.File
	log strings.Builder // full raw output, for Result.RawLog
	cur string          // unconsumed bytes read so far

	pendingPrompt string // prompt text queued behind a just-emitted "before" event
}

func newReader(pty *os.File) *reader {
	return &reader{pty: pty}
}

// rawLog returns everything the PTY has produced since construction,
// including text not yet matched into an event, after any log text the
// driver carried over from earlier sessions on a restart.
func (r *reader) rawLog() string {
	return r.log.String()
}

// next reads from the PTY until it can produce exactly one eventlog.Event,
// the per-call deadline elapses, or the PTY reports EOF. next never
// blocks past deadline.
func (r *reader) next(deadline time.Duration) eventlog.Event {
	if r.pendingPrompt != "" {
		text := r.pendingPrompt
		r.pendingPrompt = ""
		return eventlog.Event{Time: time.Now(), Type: eventlog.Output, Details: text}
	}

	r.pty.SetReadDeadline(time.Now().Add(deadline))

	for {
		if ev, ok := r.tryMatch(); ok {
			return ev
		}

		chunk := make([]byte, 4096)
		n, err := r.pty.Read(chunk)
		if n > 0 {
			text := string(chunk[:n])
			r.log.WriteString(text)
			r.cur += text
			continue
		}
		if err != nil {
			if os.IsTimeout(err) || errors.Is(err, os.ErrDeadlineExceeded) {
				return eventlog.Event{Time: time.Now(), Type: eventlog.Timeout, Details: "no event within deadline"}
			}
			// Any other read error (EOF, closed pty, process exited) ends
			// the session. Flush whatever text never matched an event.
			leftover := r.cur
			r.cur = ""
			if leftover != "" {
				return eventlog.Event{Time: time.Now(), Type: eventlog.Output, Details: leftover}
			}
			if errors.Is(err, io.EOF) {
				return eventlog.Event{Time: time.Now(), Type: eventlog.EOF, Details: "EOF received from child"}
			}
			return eventlog.Event{Time: time.Now(), Type: eventlog.EOF, Details: "child closed: " + err.Error()}
		}
	}
}

// tryMatch checks the unconsumed buffer for a prompt match and a complete
// line, consuming and returning at most one event for whichever starts
// earliest in the buffer — mirroring pexpect's expect() leftmost-match
// rule, with ties (a prompt match starting at the very front of the
// buffer) broken toward the prompt, the same tie-break order as the
// original's [prompt_re, line_re, EOF, TIMEOUT] pattern list. Two output
// lines immediately followed by a prompt in one Read() must therefore
// come back as two separate OUTPUT events before the prompt, not one
// OUTPUT event whose Details still contains an embedded line break. A
// prompt match preceded by unterminated text queues that text's own
// OUTPUT event to be returned first via pendingPrompt.
func (r *reader) tryMatch() (eventlog.Event, bool) {
	loc := eventlog.PromptPattern.FindStringIndex(r.cur)
	lineEnd := strings.Index(r.cur, lineSep)

	if loc != nil && (lineEnd < 0 || loc[0] <= lineEnd) {
		return r.matchPrompt(loc)
	}
	if lineEnd >= 0 {
		return r.matchLine(lineEnd)
	}
	return eventlog.Event{}, false
}

func (r *reader) matchPrompt(loc []int) (eventlog.Event, bool) {
	before := r.cur[:loc[0]]
	matched := r.cur[loc[0]:loc[1]]
	r.cur = r.cur[loc[1]:]

	prompt := strings.TrimRight(matched, lineSep)
	if before != "" {
		if prompt != "" {
			r.pendingPrompt = prompt
		}
		return eventlog.Event{Time: time.Now(), Type: eventlog.Output, Details: before}, true
	}
	if prompt == "" {
		return eventlog.Event{}, false
	}
	return eventlog.Event{Time: time.Now(), Type: eventlog.Output, Details: prompt}, true
}

func (r *reader) matchLine(i int) (eventlog.Event, bool) {
	line := r.cur[:i+len(lineSep)]
	r.cur = r.cur[i+len(lineSep):]
	text := strings.TrimRight(line, lineSep)
	if text == "" {
		// Blank line: consumed silently, keep scanning.
		return r.tryMatch()
	}
	return eventlog.Event{Time: time.Now(), Type: eventlog.Output, Details: text}, true
}
