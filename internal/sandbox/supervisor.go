// SPDX-License-Identifier: MPL-2.0

package sandbox

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"strconv"
	"sync/atomic"

	"github.com/creack/pty"
)

// DefaultHostname is the fixed hostname every sandbox container runs
// under. strict_prompt assertions match the host field of a candidate's
// prompt, so the hostname must be stable across runs and restarts.
const DefaultHostname = "osntesting"

// SandboxHandle is a running sandbox: a container plus the host-side end
// of the PTY attached to its console. Start, Signal, Stop, Restart, and
// Close are the only lifecycle operations internal/driver needs.
type SandboxHandle struct {
	engine      Engine
	workspace   *Workspace
	containerID string
	containerNm string
	binaryPath  string

	PTY *os.File
	cmd *exec.Cmd
}

// Start materializes a scratch workspace, ensures the grading image
// exists, and spawns the candidate binary inside a fresh container with
// a controlling PTY attached. Fails with a SandboxStartupError naming
// which stage ("workspace", "image", or "spawn") failed.
func Start(ctx context.Context, engine Engine, candidateBinary string, withFixture bool) (*SandboxHandle, error) {
	ws, err := NewWorkspace(candidateBinary, withFixture)
	if err != nil {
		return nil, err
	}

	if err := EnsureImage(ctx, engine, false); err != nil {
		ws.Close()
		return nil, err
	}

	h := &SandboxHandle{
		engine:     engine,
		workspace:  ws,
		binaryPath: ws.BinaryName,
	}

	if err := h.spawn(ctx); err != nil {
		ws.Close()
		return nil, err
	}

	return h, nil
}

func (h *SandboxHandle) spawn(ctx context.Context) error {
	h.containerNm = fmt.Sprintf("shellgrader_%s", randomSuffix())

	opts := RunOptions{
		Image:       ImageName,
		Command:     []string{"/app/" + h.binaryPath},
		WorkDir:     "/app",
		Env:         hostIdentityEnv(),
		Volumes:     []string{h.workspace.BindMount()},
		Remove:      true,
		Name:        h.containerNm,
		Interactive: true,
		TTY:         true,
		Hostname:    DefaultHostname,
		Init:        true,
	}

	args := h.engine.BuildRunArgs(opts)
	cmd := exec.CommandContext(ctx, h.engine.BinaryPath(), args...)

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return newSpawnError(fmt.Errorf("start container %s under PTY: %w", h.containerNm, err))
	}

	h.PTY = ptmx
	h.cmd = cmd
	h.containerID = h.containerNm // container was started with a fixed --name
	return nil
}

// Signal delivers a named POSIX signal (e.g. "SIGINT") to the sandboxed
// process via the container runtime, not via the PTY's line discipline —
// `docker/podman kill --signal` reaches the container's init regardless
// of whether the candidate shell is currently reading from its tty.
func (h *SandboxHandle) Signal(ctx context.Context, signal string) error {
	return h.engine.Signal(ctx, h.containerID, signal)
}

// Stop closes the PTY and removes the container. It is safe to call more
// than once.
func (h *SandboxHandle) Stop(ctx context.Context) error {
	if h.PTY != nil {
		h.PTY.Close()
		h.PTY = nil
	}
	if h.cmd != nil && h.cmd.Process != nil {
		h.cmd.Wait()
	}
	if h.containerID == "" {
		return nil
	}
	// The container was started with --rm, so normal exit already removed
	// it; this call is a safety net for abnormal termination and its
	// "not found" error in the common case is not worth surfacing.
	h.engine.Remove(ctx, h.containerID, true)
	h.containerID = ""
	return nil
}

// Restart stops the current container and starts a fresh one on the same
// workspace contents: the workspace is preserved across a restart, and
// the fixture tree, if any, is not re-copied.
func (h *SandboxHandle) Restart(ctx context.Context) error {
	if err := h.Stop(ctx); err != nil {
		return err
	}
	return h.spawn(ctx)
}

// Close tears down the sandbox and removes its scratch workspace.
func (h *SandboxHandle) Close(ctx context.Context) error {
	stopErr := h.Stop(ctx)
	wsErr := h.workspace.Close()
	if stopErr != nil {
		return stopErr
	}
	return wsErr
}

// hostIdentityEnv passes the invoking host user's uid/gid/name to the
// entrypoint so it can create a matching user inside the container
// before dropping privileges with gosu; files the candidate writes into
// the bind-mounted workspace then end up owned by the host user, not root.
func hostIdentityEnv() map[string]string {
	env := map[string]string{}
	u, err := user.Current()
	if err != nil {
		return env
	}
	env["HOST_UID"] = u.Uid
	env["HOST_GID"] = u.Gid
	if u.Username != "" {
		env["HOST_USER"] = u.Username
	}
	return env
}

// containerSeq disambiguates container names spawned concurrently (batch
// grading) or in quick restart succession by the same process, since
// os.Getpid() alone is not unique across either case.
var containerSeq atomic.Int64

func randomSuffix() string {
	seq := containerSeq.Add(1)
	return strconv.FormatInt(int64(os.Getpid())<<20|seq, 36)
}
