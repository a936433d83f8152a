// SPDX-License-Identifier: MPL-2.0

package testcase

import "testing"

const validTestCaseFile = `{
	"testcases": [
		{
			"section": "C.1",
			"description": "echo prints its argument",
			"cmds": [
				{"cmd": "echo hello", "sequential_outputs": [{"text": "hello"}]},
				{"code": "d"}
			],
			"timeout": 3
		}
	]
}`

func TestParseValidFile(t *testing.T) {
	t.Parallel()

	list, err := Parse([]byte(validTestCaseFile), "valid.json")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(list.TestCases) != 1 {
		t.Fatalf("len(TestCases) = %d, want 1", len(list.TestCases))
	}
	tc := list.TestCases[0]
	if tc.Section != SectionC1 {
		t.Errorf("Section = %q, want %q", tc.Section, SectionC1)
	}
	if len(tc.Commands) != 2 {
		t.Fatalf("len(Commands) = %d, want 2", len(tc.Commands))
	}
	gc, ok := tc.Commands[0].(GenericCmd)
	if !ok || gc.Cmd != "echo hello" {
		t.Errorf("Commands[0] = %+v, want GenericCmd{Cmd: echo hello}", tc.Commands[0])
	}
}

func TestParseRejectsUnknownSection(t *testing.T) {
	t.Parallel()

	data := []byte(`{"testcases":[{"section":"Z.9","description":"d","cmds":[]}]}`)
	if _, err := Parse(data, "bad-section.json"); err == nil {
		t.Fatal("Parse() = nil error, want a schema validation failure for an unrecognized section")
	}
}

func TestParseRejectsMalformedControlSignalCode(t *testing.T) {
	t.Parallel()

	data := []byte(`{"testcases":[{"section":"A.1","description":"d","cmds":[{"code":"ABC"}]}]}`)
	if _, err := Parse(data, "bad-code.json"); err == nil {
		t.Fatal("Parse() = nil error, want a schema validation failure for a multi-character code")
	}
}

func TestParseRejectsNonNumericTimeout(t *testing.T) {
	t.Parallel()

	data := []byte(`{"testcases":[{"section":"A.1","description":"d","cmds":[],"timeout":"soon"}]}`)
	if _, err := Parse(data, "bad-timeout.json"); err == nil {
		t.Fatal("Parse() = nil error, want a schema validation failure for a non-numeric timeout")
	}
}

func TestParseRejectsMissingRequiredFields(t *testing.T) {
	t.Parallel()

	data := []byte(`{"testcases":[{"section":"A.1"}]}`)
	if _, err := Parse(data, "missing-fields.json"); err == nil {
		t.Fatal("Parse() = nil error, want a schema validation failure for a missing description/cmds")
	}
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	t.Parallel()

	if _, err := Parse([]byte(`{not json`), "malformed.json"); err == nil {
		t.Fatal("Parse() = nil error, want a failure for malformed JSON")
	}
}

func TestParseEmptyTestCaseList(t *testing.T) {
	t.Parallel()

	list, err := Parse([]byte(`{"testcases":[]}`), "empty.json")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(list.TestCases) != 0 {
		t.Errorf("len(TestCases) = %d, want 0", len(list.TestCases))
	}
}
