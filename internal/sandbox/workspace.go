// SPDX-License-Identifier: MPL-2.0

package sandbox

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Workspace is the scratch directory bind-mounted into a sandboxed
// container at /app: the candidate binary alongside, optionally, the
// fixture tree under test/.
type Workspace struct {
	Dir        string // host path, bind-mounted at /app
	BinaryName string // candidate binary's basename inside Dir
}

// NewWorkspace materializes a fresh scratch directory containing a copy
// of the candidate binary and, if withFixtures is set, the standard
// fixture tree under test/. Each call produces an independent directory
// so fresh-container-per-test isolation extends to the host filesystem
// side of the bind mount too.
func NewWorkspace(candidateBinary string, withFixtures bool) (*Workspace, error) {
	dir, err := os.MkdirTemp("", "shellgrader-sandbox-")
	if err != nil {
		return nil, newWorkspaceError(fmt.Errorf("create scratch dir: %w", err))
	}

	ws := &Workspace{Dir: dir, BinaryName: filepath.Base(candidateBinary)}

	if err := copyBinary(candidateBinary, filepath.Join(dir, ws.BinaryName)); err != nil {
		os.RemoveAll(dir)
		return nil, newWorkspaceError(err)
	}

	if withFixtures {
		testDir := filepath.Join(dir, "test")
		if err := os.Mkdir(testDir, 0o755); err != nil {
			os.RemoveAll(dir)
			return nil, newWorkspaceError(fmt.Errorf("create test dir: %w", err))
		}
		if err := writeFixtureTree(testDir); err != nil {
			os.RemoveAll(dir)
			return nil, newWorkspaceError(fmt.Errorf("write fixture tree: %w", err))
		}
	}

	return ws, nil
}

// Close removes the workspace's scratch directory. It is safe to call
// more than once.
func (w *Workspace) Close() error {
	if w.Dir == "" {
		return nil
	}
	err := os.RemoveAll(w.Dir)
	w.Dir = ""
	return err
}

// BindMount formats this workspace as a Docker/Podman volume argument
// mounted at /app, the fixed working directory the container is started in.
func (w *Workspace) BindMount() string {
	return FormatVolumeMount(VolumeMount{
		HostPath:      HostFilesystemPath(w.Dir),
		ContainerPath: MountTargetPath("/app"),
	})
}

func copyBinary(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open candidate binary %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat candidate binary %s: %w", src, err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o755)
	if err != nil {
		return fmt.Errorf("create workspace copy of candidate binary: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy candidate binary: %w", err)
	}

	return out.Chmod(info.Mode().Perm() | 0o111)
}
