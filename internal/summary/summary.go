// SPDX-License-Identifier: MPL-2.0

// Package summary aggregates internal/grading.GradeReport values into a
// GradeSummary and writes both per-test and aggregate JSON reports to disk.
package summary

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"shellgrader/internal/grading"
)

// GradeSummary aggregates every GradeReport produced for one candidate.
type GradeSummary struct {
	Results     []*grading.GradeReport `json:"results"`
	TotalTests  int                    `json:"total_tests"`
	PassedTests int                    `json:"passed_tests"`
	FailedTests int                    `json:"failed_tests"`
}

// New builds a GradeSummary from reports, sorted by numeric test id (ties
// and non-numeric ids fall back to a lexical string comparison, and numeric
// ids sort before non-numeric ones, so the ordering is always total and
// deterministic).
func New(reports []*grading.GradeReport) *GradeSummary {
	sorted := append([]*grading.GradeReport(nil), reports...)
	sort.Slice(sorted, func(i, j int) bool {
		return testIDLess(sorted[i].TestID, sorted[j].TestID)
	})

	s := &GradeSummary{Results: sorted, TotalTests: len(sorted)}
	for _, r := range sorted {
		if r.Passed {
			s.PassedTests++
		} else {
			s.FailedTests++
		}
	}
	return s
}

func testIDLess(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	if errA == nil && errB == nil && na != nb {
		return na < nb
	}
	if (errA == nil) != (errB == nil) {
		return errA == nil
	}
	return a < b
}

// WriteReportJSON writes one GradeReport's indented JSON to w.
func WriteReportJSON(w io.Writer, report *grading.GradeReport) error {
	if w == nil {
		return errors.New("writer is nil")
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode grade report: %w", err)
	}
	return nil
}

// WriteSummaryJSON writes the aggregate summary's indented JSON to w.
func WriteSummaryJSON(w io.Writer, s *GradeSummary) error {
	if w == nil {
		return errors.New("writer is nil")
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return nil
}

// WriteReportFile writes report to "<dir>/<test_id>_grade.json", creating
// dir if needed.
func WriteReportFile(dir string, report *grading.GradeReport) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure grade report dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_grade.json", report.TestID))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create grade report file: %w", err)
	}
	defer f.Close()
	return WriteReportJSON(f, report)
}

// WriteSummaryFile writes s to "<dir>/summary.json", creating dir if needed.
func WriteSummaryFile(dir string, s *GradeSummary) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure summary dir: %w", err)
	}
	path := filepath.Join(dir, "summary.json")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create summary file: %w", err)
	}
	defer f.Close()
	return WriteSummaryJSON(f, s)
}
