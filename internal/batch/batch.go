// SPDX-License-Identifier: MPL-2.0

// Package batch fans a roster of candidate binaries out across a bounded
// worker pool: each job drives every TestCase for one candidate binary,
// in order, inside its own sandbox and PTY per test, and reports back
// independently of every other job in the batch. A single candidate's
// test sequence is a strictly ordered conversation; across candidates
// there is no ordering, only the pool's concurrency bound.
package batch

import (
	"context"

	"golang.org/x/sync/errgroup"

	"shellgrader/internal/driver"
	"shellgrader/internal/grading"
	"shellgrader/internal/sandbox"
	"shellgrader/pkg/testcase"
)

// NamedTestCase pairs a TestCase with the identifier its GradeReport and
// Result archive should be filed under.
type NamedTestCase struct {
	TestID   string
	TestCase testcase.TestCase
}

// Job is one candidate binary and the ordered list of test cases to run
// against it. Tests within a Job always run sequentially, one container
// and PTY at a time, never concurrently with each other.
type Job struct {
	Binary    string
	TestCases []NamedTestCase
}

// TestResult is one TestCase's outcome within a Job. Err is set only when
// the driver itself failed (sandbox startup failure, context
// cancellation); Result then holds the partial Result the driver returned
// and Report is nil. A failed grade is not an error, it is a GradeReport
// with Passed == false.
type TestResult struct {
	TestID string
	Result *driver.Result
	Report *grading.GradeReport
	Err    error
}

// JobResult is one candidate binary's full, in-order set of TestResults.
type JobResult struct {
	Binary  string
	Results []TestResult
}

// Run drives every Job against engine, at most poolSize Jobs concurrently,
// and returns one JobResult per Job in the same order as jobs. Within a
// single Job, TestCases run strictly sequentially. A poolSize of 0 or less
// means unbounded concurrency across Jobs. Run itself never returns an
// error; per-test failures are reported in each TestResult.Err.
func Run(ctx context.Context, engine sandbox.Engine, jobs []Job, poolSize int) []JobResult {
	results := make([]JobResult, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	if poolSize > 0 {
		g.SetLimit(poolSize)
	}

	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			results[i] = runJob(gctx, engine, job)
			return nil
		})
	}

	// Every job thunk above returns nil unconditionally, so Wait only
	// ever reports ctx cancellation, which every in-flight job already
	// observes for itself via gctx.
	_ = g.Wait()

	return results
}

// runJob drives every TestCase in job sequentially against one candidate
// binary, mirroring the single strictly-ordered conversation each student
// owns: one sandbox and PTY at a time, never shared or overlapped with a
// sibling test in the same job.
func runJob(ctx context.Context, engine sandbox.Engine, job Job) JobResult {
	testResults := make([]TestResult, len(job.TestCases))
	for i, tc := range job.TestCases {
		testResults[i] = runOne(ctx, engine, job.Binary, tc)
	}
	return JobResult{Binary: job.Binary, Results: testResults}
}

func runOne(ctx context.Context, engine sandbox.Engine, binary string, tc NamedTestCase) TestResult {
	d := driver.New(engine, binary)
	res, err := d.Run(ctx, tc.TestCase)
	if err != nil {
		return TestResult{TestID: tc.TestID, Result: res, Err: err}
	}
	report := grading.Grade(tc.TestID, res)
	return TestResult{TestID: tc.TestID, Result: res, Report: report}
}
