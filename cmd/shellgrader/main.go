// SPDX-License-Identifier: MPL-2.0

// Package main is shellgrader's entry point: a thin Cobra CLI wired over
// the driver/grading/batch/summary/sandbox packages. It drives one test or
// a whole batch, then writes grade reports; it is not itself a test runner
// library.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"shellgrader/internal/config"
)

// Build-time variables set via ldflags.
var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

var (
	verbose bool
	cfgFile string

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))
	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981"))
	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#EF4444"))
	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B"))
)

var rootCmd = &cobra.Command{
	Use:   "shellgrader",
	Short: "An autograder for student UNIX-shell implementations",
	Long: titleStyle.Render("shellgrader") + subtitleStyle.Render(" - drives a candidate shell through scripted test cases inside a sandboxed container") + `

Test cases are JSON files describing an interactive session: commands to
send, output to expect, and control signals to deliver. shellgrader drives
each candidate binary through a PTY inside a container, compares the
resulting transcript against the test case, and writes a JSON grade report.

` + subtitleStyle.Render("Examples:") + `
  shellgrader run --binary ./candidate --testcases tests.json
  shellgrader batch --testcases tests.json candidate1 candidate2 candidate3
  shellgrader testcase validate tests.json`,
}

func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

func main() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initRootConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is the shellgrader XDG config directory)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(gradeCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(testcaseCmd)
}

func initRootConfig() {
	cfg, err := config.Load()
	if err != nil {
		if verbose {
			fmt.Fprintln(os.Stderr, warningStyle.Render("Warning: ")+fmt.Sprintf("failed to load config: %v", err))
		}
		return
	}
	if !verbose {
		verbose = cfg.LogLevel == "debug"
	}
}
