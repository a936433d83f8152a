// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"shellgrader/internal/config"
	"shellgrader/internal/driver"
	"shellgrader/internal/grading"
	"shellgrader/internal/sandbox"
	"shellgrader/internal/summary"
	"shellgrader/pkg/testcase"
)

var (
	runBinary     string
	runTestcases  string
	runIndex      int
	runTestID     string
	runArchiveDir string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive one test case against one candidate binary",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&runBinary, "binary", "", "path to the candidate shell binary (required)")
	runCmd.Flags().StringVar(&runTestcases, "testcases", "", "path to a test-case JSON file (required)")
	runCmd.Flags().IntVar(&runIndex, "index", 0, "index of the test case to run within the file")
	runCmd.Flags().StringVar(&runTestID, "test-id", "", "identifier recorded in the grade report (defaults to the index)")
	runCmd.Flags().StringVar(&runArchiveDir, "archive-dir", "", "if set, write the raw Result and grade report JSON here")
	_ = runCmd.MarkFlagRequired("binary")
	_ = runCmd.MarkFlagRequired("testcases")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	tc, testID, err := loadSingleTestCase(runTestcases, runIndex, runTestID)
	if err != nil {
		return err
	}

	engine, err := resolveEngine()
	if err != nil {
		return fmt.Errorf("select container engine: %w", err)
	}

	cfg := config.Get()
	if err := sandbox.EnsureImage(ctx, engine, cfg.ForceRebuildImage); err != nil {
		return fmt.Errorf("ensure grading image: %w", err)
	}

	d := driver.New(engine, runBinary)
	res, err := d.Run(ctx, tc)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("driver failed:"), err)
		return err
	}

	report := grading.Grade(testID, res)
	printGradeReport(report)

	if runArchiveDir != "" {
		if err := archiveRun(runArchiveDir, testID, res, report); err != nil {
			return fmt.Errorf("archive run: %w", err)
		}
	}

	if !report.Passed {
		os.Exit(1)
	}
	return nil
}

// loadSingleTestCase reads a test-case file and returns the TestCase at
// index, along with the test ID to report it under.
func loadSingleTestCase(path string, index int, testID string) (testcase.TestCase, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return testcase.TestCase{}, "", fmt.Errorf("read %s: %w", path, err)
	}
	list, err := testcaseParse(data, path)
	if err != nil {
		return testcase.TestCase{}, "", err
	}
	if index < 0 || index >= len(list) {
		return testcase.TestCase{}, "", fmt.Errorf("index %d out of range: %s has %d test cases", index, path, len(list))
	}
	if testID == "" {
		testID = fmt.Sprintf("%d", index)
	}
	return list[index], testID, nil
}

func printGradeReport(report *grading.GradeReport) {
	status := successStyle.Render("PASS")
	if !report.Passed {
		status = errorStyle.Render("FAIL")
	}
	fmt.Printf("[%s] %s %s: %s\n", status, report.TestID, report.Section, report.Description)
	if report.Failure != nil {
		fmt.Printf("  %s\n", report.Failure.Reason)
		if report.Failure.Expected != "" || report.Failure.Actual != "" {
			fmt.Printf("  expected: %q\n  actual:   %q\n", report.Failure.Expected, report.Failure.Actual)
		}
	}
}

func archiveRun(dir, testID string, res *driver.Result, report *grading.GradeReport) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	resultPath := filepath.Join(dir, fmt.Sprintf("%s_result.json", testID))
	f, err := os.Create(resultPath)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "    ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return summary.WriteReportFile(dir, report)
}
