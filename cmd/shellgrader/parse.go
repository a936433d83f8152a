// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"

	"shellgrader/pkg/testcase"
)

// testcaseParse parses a test-case JSON file and returns its TestCases in
// order, wrapping the error with the offending path for CLI output.
func testcaseParse(data []byte, path string) ([]testcase.TestCase, error) {
	list, err := testcase.Parse(data, path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return list.TestCases, nil
}
