// SPDX-License-Identifier: MPL-2.0

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"shellgrader/internal/driver"
	"shellgrader/internal/grading"
	"shellgrader/internal/summary"
)

var (
	gradeTestID string
	gradeOutDir string
)

var gradeCmd = &cobra.Command{
	Use:   "grade <result.json>",
	Short: "Evaluate an archived driver.Result without re-running the candidate",
	Args:  cobra.ExactArgs(1),
	RunE:  runGrade,
}

func init() {
	gradeCmd.Flags().StringVar(&gradeTestID, "test-id", "", "identifier recorded in the grade report (defaults to the file name)")
	gradeCmd.Flags().StringVar(&gradeOutDir, "out", "", "if set, also write the grade report JSON into this directory as <test-id>_grade.json")
}

func runGrade(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	var res driver.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return fmt.Errorf("parse %s as a driver.Result: %w", path, err)
	}

	testID := gradeTestID
	if testID == "" {
		testID = filepath.Base(path)
	}

	report := grading.Grade(testID, &res)
	printGradeReport(report)

	if gradeOutDir != "" {
		if err := summary.WriteReportFile(gradeOutDir, report); err != nil {
			return fmt.Errorf("write grade report: %w", err)
		}
	}

	if !report.Passed {
		os.Exit(1)
	}
	return nil
}
