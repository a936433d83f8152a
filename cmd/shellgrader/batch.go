// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"shellgrader/internal/batch"
	"shellgrader/internal/config"
	"shellgrader/internal/grading"
	"shellgrader/internal/sandbox"
	"shellgrader/internal/summary"
)

var (
	batchTestcases string
	batchPoolSize  int
	batchOutDir    string
)

var batchCmd = &cobra.Command{
	Use:   "batch <binary> [binary...]",
	Short: "Run every test case in a file against a list of candidate binaries",
	Long: `batch fans a roster-less list of candidate binaries out across a bounded
worker pool: each candidate binary is one job, its test cases run strictly
sequentially inside that job (one sandbox and PTY at a time), and different
candidates' jobs run concurrently with each other, up to the pool bound.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVar(&batchTestcases, "testcases", "", "path to a test-case JSON file (required)")
	batchCmd.Flags().IntVar(&batchPoolSize, "pool-size", 0, "max concurrent candidates (0 uses the config default, negative means unbounded)")
	batchCmd.Flags().StringVar(&batchOutDir, "out", "", "directory to write per-candidate grade reports and summaries into")
	_ = batchCmd.MarkFlagRequired("testcases")
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	data, err := os.ReadFile(batchTestcases)
	if err != nil {
		return fmt.Errorf("read %s: %w", batchTestcases, err)
	}
	list, err := testcaseParse(data, batchTestcases)
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

	poolSize := batchPoolSize
	if poolSize == 0 {
		poolSize = cfg.PoolSize
	}

	namedTestCases := make([]batch.NamedTestCase, len(list))
	for i, tc := range list {
		namedTestCases[i] = batch.NamedTestCase{TestID: fmt.Sprintf("%d", i), TestCase: tc}
	}

	// One job per candidate binary: batch.Run bounds concurrency across
	// jobs while running each job's test cases sequentially within it.
	jobs := make([]batch.Job, len(args))
	for i, binary := range args {
		jobs[i] = batch.Job{Binary: binary, TestCases: namedTestCases}
	}

	results := batch.Run(ctx, engine, jobs, poolSize)

	failures := 0
	for _, jobResult := range results {
		candidateName := filepath.Base(jobResult.Binary)
		fmt.Printf("%s\n", titleStyle.Render(candidateName))

		var reports []*grading.GradeReport
		for _, r := range jobResult.Results {
			if r.Err != nil {
				failures++
				fmt.Printf("  [%s] %s: %v\n", errorStyle.Render("ERROR"), r.TestID, r.Err)
				continue
			}
			printGradeReport(r.Report)
			if !r.Report.Passed {
				failures++
			}
			reports = append(reports, r.Report)
		}

		if batchOutDir != "" {
			candidateDir := filepath.Join(batchOutDir, candidateName)
			s := summary.New(reports)
			if err := summary.WriteSummaryFile(candidateDir, s); err != nil {
				return fmt.Errorf("write summary for %s: %w", candidateName, err)
			}
			for _, report := range reports {
				if err := summary.WriteReportFile(candidateDir, report); err != nil {
					return fmt.Errorf("write grade report for %s: %w", candidateName, err)
				}
			}
		}
	}

	if failures > 0 {
		os.Exit(1)
	}
	return nil
}
