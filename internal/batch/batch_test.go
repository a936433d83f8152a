// SPDX-License-Identifier: MPL-2.0

package batch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"shellgrader/internal/sandbox"
	"shellgrader/pkg/testcase"
)

// fakeEngine implements sandbox.Engine for testing, following the same
// fluent WithX(...) builder pattern as internal/runtime/container_test.go's
// MockEngine in the teacher repo. Jobs that point at a nonexistent
// candidate binary never reach the engine at all (sandbox.NewWorkspace
// fails first trying to copy the binary), so these tests exercise
// Run/JobResult's bookkeeping rather than the engine calls themselves.
type fakeEngine struct {
	mu          sync.Mutex
	name        string
	available   bool
	imageExists bool

	buildCalls []sandbox.BuildOptions
	runCalls   []sandbox.RunOptions
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{name: "fake", available: true, imageExists: true}
}

func (e *fakeEngine) WithAvailable(available bool) *fakeEngine {
	e.available = available
	return e
}

func (e *fakeEngine) WithImageExists(exists bool) *fakeEngine {
	e.imageExists = exists
	return e
}

func (e *fakeEngine) Name() string    { return e.name }
func (e *fakeEngine) Available() bool { return e.available }

func (e *fakeEngine) Version(context.Context) (string, error) { return "0.0.0-fake", nil }

func (e *fakeEngine) Build(_ context.Context, opts sandbox.BuildOptions) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buildCalls = append(e.buildCalls, opts)
	return nil
}

func (e *fakeEngine) Run(_ context.Context, opts sandbox.RunOptions) (*sandbox.RunResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.runCalls = append(e.runCalls, opts)
	return &sandbox.RunResult{ExitCode: 0}, nil
}

func (e *fakeEngine) Remove(context.Context, string, bool) error        { return nil }
func (e *fakeEngine) ImageExists(context.Context, string) (bool, error) { return e.imageExists, nil }
func (e *fakeEngine) RemoveImage(context.Context, string, bool) error   { return nil }
func (e *fakeEngine) Signal(context.Context, string, string) error      { return nil }
func (e *fakeEngine) BinaryPath() string                                { return "/usr/bin/fake" }
func (e *fakeEngine) BuildRunArgs(opts sandbox.RunOptions) []string {
	args := []string{"run"}
	args = append(args, opts.Image)
	args = append(args, opts.Command...)
	return args
}

var _ sandbox.Engine = (*fakeEngine)(nil)

func simpleTestCase() testcase.TestCase {
	return testcase.TestCase{
		Section:     testcase.SectionMisc,
		Description: "batch test",
		Commands: []testcase.Command{
			testcase.GenericCmd{Cmd: "echo hi", SequentialOutputs: []testcase.Line{{Text: "hi"}}},
		},
		Timeout: 2 * time.Second,
	}
}

// missingBinaryJobs builds n single-candidate Jobs, each with testsPerJob
// TestCases, whose candidate binary path does not exist on disk, so
// sandbox.NewWorkspace fails deterministically while copying it,
// independent of whether a container engine is actually available in the
// test environment.
func missingBinaryJobs(n, testsPerJob int) []Job {
	jobs := make([]Job, n)
	for i := range jobs {
		tcs := make([]NamedTestCase, testsPerJob)
		for j := range tcs {
			tcs[j] = NamedTestCase{
				TestID:   string(rune('a'+j)) + "-" + string(rune('0'+i)),
				TestCase: simpleTestCase(),
			}
		}
		jobs[i] = Job{
			Binary:    "/nonexistent/shellgrader-test-binary-does-not-exist",
			TestCases: tcs,
		}
	}
	return jobs
}

func TestRunPreservesJobOrderAndReportsPerTestError(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine()
	jobs := missingBinaryJobs(5, 1)

	results := Run(context.Background(), engine, jobs, 2)

	if len(results) != len(jobs) {
		t.Fatalf("got %d results, want %d", len(results), len(jobs))
	}
	for i, r := range results {
		if r.Binary != jobs[i].Binary {
			t.Errorf("results[%d].Binary = %q, want %q (order not preserved)", i, r.Binary, jobs[i].Binary)
		}
		if len(r.Results) != 1 {
			t.Fatalf("results[%d].Results has %d entries, want 1", i, len(r.Results))
		}
		if r.Results[0].Err == nil {
			t.Errorf("results[%d].Results[0].Err = nil, want an error (binary does not exist)", i)
		}
		if r.Results[0].Report != nil {
			t.Errorf("results[%d].Results[0].Report = %+v, want nil on driver failure", i, r.Results[0].Report)
		}
	}
}

func TestRunKeepsEveryTestInAJobInOrder(t *testing.T) {
	t.Parallel()

	jobs := missingBinaryJobs(1, 4)
	results := Run(context.Background(), newFakeEngine(), jobs, 1)

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	got := results[0].Results
	if len(got) != len(jobs[0].TestCases) {
		t.Fatalf("got %d test results, want %d", len(got), len(jobs[0].TestCases))
	}
	for i, tr := range got {
		if tr.TestID != jobs[0].TestCases[i].TestID {
			t.Errorf("Results[%d].TestID = %q, want %q (order not preserved within job)", i, tr.TestID, jobs[0].TestCases[i].TestID)
		}
	}
}

func TestRunWithZeroJobsReturnsEmptySlice(t *testing.T) {
	t.Parallel()

	results := Run(context.Background(), newFakeEngine(), nil, 4)
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}

func TestRunCompletesAllJobsUnderBoundedPool(t *testing.T) {
	t.Parallel()

	jobs := missingBinaryJobs(8, 1)
	results := Run(context.Background(), newFakeEngine(), jobs, 1)

	if len(results) != len(jobs) {
		t.Fatalf("got %d results, want %d", len(results), len(jobs))
	}
	for i, r := range results {
		for j, tr := range r.Results {
			if tr.Err == nil {
				t.Errorf("results[%d].Results[%d].Err = nil, want an error", i, j)
			}
		}
	}
}

func TestRunUnboundedPoolSize(t *testing.T) {
	t.Parallel()

	jobs := missingBinaryJobs(3, 1)
	results := Run(context.Background(), newFakeEngine(), jobs, 0)

	if len(results) != len(jobs) {
		t.Fatalf("got %d results, want %d", len(results), len(jobs))
	}
}

func TestRunCancelledContextStillReturnsAllResults(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	jobs := missingBinaryJobs(3, 1)
	results := Run(ctx, newFakeEngine(), jobs, 2)

	if len(results) != len(jobs) {
		t.Fatalf("got %d results, want %d", len(results), len(jobs))
	}
	for i, r := range results {
		for j, tr := range r.Results {
			if tr.Err == nil {
				t.Errorf("results[%d].Results[%d].Err = nil, want an error under a cancelled context", i, j)
			}
		}
	}
}

func TestTestResultErrUnwrapsToWorkspaceStage(t *testing.T) {
	t.Parallel()

	results := Run(context.Background(), newFakeEngine(), missingBinaryJobs(1, 1), 1)
	if len(results) != 1 || len(results[0].Results) != 1 {
		t.Fatalf("got %+v, want exactly 1 job with 1 result", results)
	}

	var startupErr *sandbox.SandboxStartupError
	if !errors.As(results[0].Results[0].Err, &startupErr) {
		t.Fatalf("Err = %v, want it to unwrap to a *sandbox.SandboxStartupError", results[0].Results[0].Err)
	}
	if startupErr.Stage != "workspace" {
		t.Errorf("Stage = %q, want %q", startupErr.Stage, "workspace")
	}
}
