// SPDX-License-Identifier: MPL-2.0

package testcase

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"shellgrader/pkg/cueutil"
)

//go:embed testcase_schema.cue
var schemaBytes []byte

// Parse validates a test-case file's bytes against the embedded CUE schema,
// then decodes it into a TestCaseList. CUE only validates shape and field
// constraints here — the Command tagged union is resolved afterward by
// encoding/json's UnmarshalJSON hooks (command_json.go), since CUE's native
// decoder does not invoke them.
func Parse(data []byte, filename string) (*TestCaseList, error) {
	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, filename); err != nil {
		return nil, err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileBytes(schemaBytes)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: failed to compile test-case schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(filename))
	if userValue.Err() != nil {
		return nil, cueutil.FormatError(userValue.Err(), filename)
	}

	schemaRoot := schemaValue.LookupPath(cue.ParsePath("#TestCaseList"))
	if schemaRoot.Err() != nil {
		return nil, fmt.Errorf("internal error: schema definition #TestCaseList not found: %w", schemaRoot.Err())
	}

	unified := schemaRoot.Unify(userValue)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, cueutil.FormatError(err, filename)
	}

	var list TestCaseList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode test-case file %s: %w", filename, err)
	}

	if err := list.Validate(); err != nil {
		return nil, fmt.Errorf("test-case file %s: %w", filename, err)
	}

	return &list, nil
}
