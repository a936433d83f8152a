// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"shellgrader/pkg/testcase"
)

var testcaseCmd = &cobra.Command{
	Use:   "testcase",
	Short: "Inspect and validate test-case files",
}

var testcaseValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a test-case JSON file against the test-case schema",
	Args:  cobra.ExactArgs(1),
	RunE:  runTestcaseValidate,
}

func init() {
	testcaseCmd.AddCommand(testcaseValidateCmd)
}

func runTestcaseValidate(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	list, err := testcase.Parse(data, path)
	if err != nil {
		return fmt.Errorf("%s %s", errorStyle.Render("invalid test-case file:"), err)
	}

	fmt.Printf("%s %s (%d test cases)\n", successStyle.Render("valid:"), path, len(list.TestCases))
	return nil
}
