// SPDX-License-Identifier: MPL-2.0

package sandbox

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ImageName is the tag applied to the grading image built from
// dockerfileContent/entrypointContent below.
const ImageName = "shellgrader_sandbox:latest"

const (
	// maxBuildRetries is the number of attempts for the grading image build.
	maxBuildRetries = 3
	// baseBuildBackoff is the initial backoff duration between build retries.
	baseBuildBackoff = 2 * time.Second
)

//go:embed assets/Dockerfile
var dockerfileContent []byte

//go:embed assets/entrypoint.sh
var entrypointContent []byte

// EnsureImage builds the grading image if it does not already exist (or
// unconditionally, if forceRebuild is set). The build context is written
// to a temporary directory and removed afterward.
func EnsureImage(ctx context.Context, engine Engine, forceRebuild bool) error {
	if !forceRebuild {
		exists, err := engine.ImageExists(ctx, ImageName)
		if err == nil && exists {
			return nil
		}
	}

	buildDir, err := os.MkdirTemp("", "shellgrader-build-")
	if err != nil {
		return newImageError(fmt.Errorf("create build context: %w", err))
	}
	defer os.RemoveAll(buildDir)

	if err := os.WriteFile(filepath.Join(buildDir, "Dockerfile"), dockerfileContent, 0o644); err != nil {
		return newImageError(fmt.Errorf("write Dockerfile: %w", err))
	}
	if err := os.WriteFile(filepath.Join(buildDir, "entrypoint.sh"), entrypointContent, 0o755); err != nil {
		return newImageError(fmt.Errorf("write entrypoint.sh: %w", err))
	}

	opts := BuildOptions{
		ContextDir: buildDir,
		Tag:        ImageName,
		NoCache:    forceRebuild,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
	}
	// Build retries on transient engine errors (exit code 125, network
	// failures, storage driver races) rather than failing a whole grading
	// run over a race in the container runtime itself.
	retryErr := RetryWithBackoff(ctx, maxBuildRetries, baseBuildBackoff,
		func(attempt int) (bool, error) {
			buildErr := engine.Build(ctx, opts)
			if buildErr != nil {
				return IsTransientError(buildErr), buildErr
			}
			return false, nil
		})
	if retryErr != nil {
		return newImageError(fmt.Errorf("build %s: %w", ImageName, retryErr))
	}
	return nil
}
