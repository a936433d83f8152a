// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"

	"shellgrader/internal/config"
	"shellgrader/internal/sandbox"
)

// resolveEngine picks a container engine per the loaded config's
// ContainerEngine preference, falling back to auto-detection when unset.
func resolveEngine() (sandbox.Engine, error) {
	cfg := config.Get()
	switch cfg.ContainerEngine {
	case config.ContainerEngineDocker:
		return sandbox.NewEngine(sandbox.EngineTypeDocker)
	case config.ContainerEnginePodman:
		return sandbox.NewEngine(sandbox.EngineTypePodman)
	case "":
		return sandbox.AutoDetectEngine()
	default:
		return nil, fmt.Errorf("unknown container_engine %q in config", cfg.ContainerEngine)
	}
}
