// SPDX-License-Identifier: MPL-2.0

package sandbox

import (
	"context"
	"errors"
	"testing"
)

// mockImageEngine implements just enough of Engine for EnsureImage, following
// the same fluent WithX(...) builder idiom as the teacher's MockEngine.
type mockImageEngine struct {
	Engine
	imageExists    bool
	imageExistsErr error
	buildErr       error
	buildErrsOnce  []error // if set, returned in order across successive Build calls
	buildCalls     []BuildOptions
}

func newMockImageEngine() *mockImageEngine {
	return &mockImageEngine{}
}

func (m *mockImageEngine) WithImageExists(exists bool) *mockImageEngine {
	m.imageExists = exists
	return m
}

func (m *mockImageEngine) WithBuildError(err error) *mockImageEngine {
	m.buildErr = err
	return m
}

func (m *mockImageEngine) ImageExists(context.Context, string) (bool, error) {
	return m.imageExists, m.imageExistsErr
}

func (m *mockImageEngine) WithBuildErrsOnce(errs ...error) *mockImageEngine {
	m.buildErrsOnce = errs
	return m
}

func (m *mockImageEngine) Build(_ context.Context, opts BuildOptions) error {
	m.buildCalls = append(m.buildCalls, opts)
	if len(m.buildErrsOnce) > 0 {
		err := m.buildErrsOnce[0]
		m.buildErrsOnce = m.buildErrsOnce[1:]
		return err
	}
	return m.buildErr
}

func TestEnsureImageSkipsBuildWhenImageExists(t *testing.T) {
	engine := newMockImageEngine().WithImageExists(true)

	if err := EnsureImage(context.Background(), engine, false); err != nil {
		t.Fatalf("EnsureImage() error: %v", err)
	}
	if len(engine.buildCalls) != 0 {
		t.Errorf("Build called %d times, want 0 when image already exists", len(engine.buildCalls))
	}
}

func TestEnsureImageBuildsWhenImageMissing(t *testing.T) {
	engine := newMockImageEngine().WithImageExists(false)

	if err := EnsureImage(context.Background(), engine, false); err != nil {
		t.Fatalf("EnsureImage() error: %v", err)
	}
	if len(engine.buildCalls) != 1 {
		t.Fatalf("Build called %d times, want 1", len(engine.buildCalls))
	}
	if engine.buildCalls[0].Tag != ImageName {
		t.Errorf("Tag = %q, want %q", engine.buildCalls[0].Tag, ImageName)
	}
}

func TestEnsureImageForceRebuildAlwaysBuilds(t *testing.T) {
	engine := newMockImageEngine().WithImageExists(true)

	if err := EnsureImage(context.Background(), engine, true); err != nil {
		t.Fatalf("EnsureImage() error: %v", err)
	}
	if len(engine.buildCalls) != 1 {
		t.Fatalf("Build called %d times, want 1 when forceRebuild is set", len(engine.buildCalls))
	}
	if !engine.buildCalls[0].NoCache {
		t.Error("expected NoCache to be set on a forced rebuild")
	}
}

func TestEnsureImageRetriesOnTransientBuildError(t *testing.T) {
	transient := errors.New("OCI runtime error: storage driver race")
	engine := newMockImageEngine().WithImageExists(false).WithBuildErrsOnce(transient, nil)

	if err := EnsureImage(context.Background(), engine, false); err != nil {
		t.Fatalf("EnsureImage() error: %v, want the retry to recover", err)
	}
	if len(engine.buildCalls) != 2 {
		t.Fatalf("Build called %d times, want 2 (one transient failure, one success)", len(engine.buildCalls))
	}
}

func TestEnsureImageDoesNotRetryNonTransientBuildError(t *testing.T) {
	permanent := errors.New("Dockerfile syntax error")
	engine := newMockImageEngine().WithImageExists(false).WithBuildError(permanent)

	err := EnsureImage(context.Background(), engine, false)
	if err == nil {
		t.Fatal("EnsureImage() = nil error, want the permanent build failure surfaced")
	}
	if len(engine.buildCalls) != 1 {
		t.Errorf("Build called %d times, want 1 (non-transient errors are not retried)", len(engine.buildCalls))
	}
}

func TestEnsureImagePropagatesBuildError(t *testing.T) {
	wantErr := errors.New("build failed")
	engine := newMockImageEngine().WithImageExists(false).WithBuildError(wantErr)

	err := EnsureImage(context.Background(), engine, false)
	if err == nil {
		t.Fatal("EnsureImage() = nil error, want the build error surfaced")
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("error = %v, want it to wrap %v", err, wantErr)
	}
	var startupErr *SandboxStartupError
	if !errors.As(err, &startupErr) || startupErr.Stage != "image" {
		t.Errorf("error = %v, want *SandboxStartupError{Stage: image}", err)
	}
}
