// Package exec runs build scripts and helper tools as local subprocesses,
// streaming their output line by line.
package exec

import (
	"context"
	"time"
)

// Executor runs a command to completion.
type Executor interface {
	// Run executes cmd and returns its captured output.
	Run(ctx context.Context, cmd []string, opts *Opts) (Result, error)

	// RunStreaming executes cmd, handing each output line to the callbacks
	// in opts as it is written.
	RunStreaming(ctx context.Context, cmd []string, opts *Opts) (int, error)
}

// Opts contains options for command execution.
//
//nolint:govet // Configuration struct, logical grouping preferred
type Opts struct {
	// Env contains extra environment variables (KEY=VALUE format).
	Env []string

	// Timeout is the maximum duration for command execution. Zero means none.
	Timeout time.Duration

	// WorkDir is the working directory for the command.
	WorkDir string

	// OnStdoutLine and OnStderrLine receive output lines without the
	// trailing newline. Each is called from a single goroutine.
	OnStdoutLine func(line string)
	OnStderrLine func(line string)
}

// Result contains the result of command execution.
type Result struct {
	// Stdout contains the standard output.
	Stdout string

	// Stderr contains the standard error output.
	Stderr string

	// Duration is how long the command took to execute.
	Duration time.Duration

	// ExitCode is the exit code of the command, or -1 when it was killed
	// or never started.
	ExitCode int
}

// DefaultOpts returns default execution options.
func DefaultOpts() Opts {
	return Opts{}
}
