// SPDX-License-Identifier: MPL-2.0

// Package sandbox provides the isolated environment in which a candidate
// shell binary is exercised: a container engine abstraction (Docker/Podman),
// the fixture tree each test expects on disk, and the start/signal/stop/
// restart lifecycle of a running sandbox exposed to internal/driver as a PTY.
//
// The Engine interface defines the core CLI operations: Build, Run, Remove,
// ImageExists, RemoveImage, and Signal. Two implementations are provided,
// DockerEngine and PodmanEngine, both embedding BaseCLIEngine for shared CLI
// argument construction and command execution. Engine selection uses
// NewEngine(EngineType) with automatic fallback if the preferred engine is
// unavailable, or AutoDetectEngine() for preference-less detection (Podman is
// tried first, since rootless Podman is the more common grading-host setup).
//
// Start brings one sandbox up end to end: it builds the grading image if
// missing, materializes the fixture tree, and starts the container with a
// PTY attached via BuildRunArgs. The returned SandboxHandle tears it down
// with Stop and Close.
//
// IMPORTANT: only Linux containers are supported. Use debian:stable-slim as
// the base image; musl-based images are not supported because gosu (used to
// drop privileges to the invoking host user) is built against glibc.
package sandbox
