// SPDX-License-Identifier: MPL-2.0

// Package sandbox provides a CLI-shelling abstraction over Docker/Podman
// used to run a candidate shell binary under a controlling PTY, plus the
// start/signal/stop/restart lifecycle of that sandboxed execution.
package sandbox

import (
	"context"
	"fmt"
	"io"
)

// Container engine type constants.
const (
	EngineTypePodman EngineType = "podman"
	EngineTypeDocker EngineType = "docker"
)

type (
	// EngineType identifies the container engine type
	EngineType string

	// Engine defines the interface for container operations needed to run
	// a candidate shell inside an isolated sandbox.
	Engine interface {
		// Name returns the engine name (docker or podman)
		Name() string
		// Available checks if the engine is available on the system
		Available() bool
		// Version returns the engine version
		Version(ctx context.Context) (string, error)

		// Build builds an image from a Dockerfile
		Build(ctx context.Context, opts BuildOptions) error
		// Run runs a command in a container, blocking until it exits
		Run(ctx context.Context, opts RunOptions) (*RunResult, error)
		// Remove removes a container
		Remove(ctx context.Context, containerID string, force bool) error
		// ImageExists checks if an image exists
		ImageExists(ctx context.Context, image string) (bool, error)
		// RemoveImage removes an image
		RemoveImage(ctx context.Context, image string, force bool) error
		// Signal delivers a named POSIX signal (e.g. "SIGINT") to a
		// container's init process.
		Signal(ctx context.Context, containerID string, signal string) error

		// BinaryPath returns the path to the container engine binary.
		// Used when preparing commands for PTY attachment.
		BinaryPath() string

		// BuildRunArgs builds the argument slice for a 'run' command
		// without executing it, so the driver can attach a PTY to the
		// subprocess directly instead of through Run's Stdin/Stdout/Stderr.
		BuildRunArgs(opts RunOptions) []string
	}

	// BuildOptions contains options for building an image
	BuildOptions struct {
		// ContextDir is the build context directory
		ContextDir string
		// Dockerfile is the path to the Dockerfile (relative to ContextDir)
		Dockerfile string
		// Tag is the image tag
		Tag string
		// BuildArgs are build-time variables
		BuildArgs map[string]string
		// NoCache disables the build cache
		NoCache bool
		// Stdout is where to write build output
		Stdout io.Writer
		// Stderr is where to write build errors
		Stderr io.Writer
	}

	// RunOptions contains options for running a container
	RunOptions struct {
		// Image is the image to run
		Image string
		// Command is the entrypoint command, e.g. the candidate binary path
		Command []string
		// WorkDir is the working directory inside the container
		WorkDir string
		// Env contains environment variables
		Env map[string]string
		// Volumes are volume mounts already formatted as "host:container[:opts]"
		Volumes []string
		// Remove automatically removes the container after exit
		Remove bool
		// Name is the container name
		Name string
		// Stdin is the standard input
		Stdin io.Reader
		// Stdout is where to write standard output
		Stdout io.Writer
		// Stderr is where to write standard error
		Stderr io.Writer
		// Interactive keeps stdin open (-i)
		Interactive bool
		// TTY allocates a pseudo-TTY (-t). The driver always sets this; the
		// host-side controlling PTY is attached by creack/pty around the
		// exec.Cmd built from BuildRunArgs, not by this flag alone.
		TTY bool
		// Hostname fixes the container's hostname. strict_prompt assertions
		// match against the host field of the candidate's prompt, so the
		// hostname must be stable across runs.
		Hostname string
		// Init runs a minimal init (PID 1) inside the container so stray
		// children forked by the candidate shell are reaped instead of
		// becoming zombies that hold the container open at teardown.
		Init bool
	}

	// RunResult contains the result of running a container
	RunResult struct {
		// ContainerID is the container ID
		ContainerID string
		// ExitCode is the exit code
		ExitCode int
		// Error contains any error
		Error error
	}

	// EngineNotAvailableError is returned when a container engine is not available
	EngineNotAvailableError struct {
		Engine string
		Reason string
	}
)

func (e *EngineNotAvailableError) Error() string {
	return fmt.Sprintf("container engine '%s' is not available: %s", e.Engine, e.Reason)
}

// Validate checks that BuildOptions carries what's needed to run a build.
func (o BuildOptions) Validate() error {
	if o.ContextDir == "" {
		return fmt.Errorf("build options: context directory is required")
	}
	return nil
}

// Validate checks that RunOptions carries what's needed to start a container.
func (o RunOptions) Validate() error {
	if o.Image == "" {
		return fmt.Errorf("run options: image is required")
	}
	return nil
}

// NewEngine creates a new container engine based on preference
func NewEngine(preferredType EngineType) (Engine, error) {
	switch preferredType {
	case EngineTypePodman:
		engine := NewPodmanEngine()
		if engine.Available() {
			return engine, nil
		}
		// Fall back to Docker
		dockerEngine := NewDockerEngine()
		if dockerEngine.Available() {
			return dockerEngine, nil
		}
		return nil, &EngineNotAvailableError{
			Engine: "podman",
			Reason: "podman is not installed or not accessible, and docker fallback is also not available",
		}

	case EngineTypeDocker:
		engine := NewDockerEngine()
		if engine.Available() {
			return engine, nil
		}
		// Fall back to Podman
		podmanEngine := NewPodmanEngine()
		if podmanEngine.Available() {
			return podmanEngine, nil
		}
		return nil, &EngineNotAvailableError{
			Engine: "docker",
			Reason: "docker is not installed or not accessible, and podman fallback is also not available",
		}

	default:
		return nil, fmt.Errorf("unknown container engine type: %s", preferredType)
	}
}

// AutoDetectEngine tries to find an available container engine
func AutoDetectEngine() (Engine, error) {
	// Try Podman first (more commonly available in rootless setups)
	podman := NewPodmanEngine()
	if podman.Available() {
		return podman, nil
	}

	// Try Docker
	docker := NewDockerEngine()
	if docker.Available() {
		return docker, nil
	}

	return nil, &EngineNotAvailableError{
		Engine: "any",
		Reason: "no container engine (podman or docker) is available on this system",
	}
}
