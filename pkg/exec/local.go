package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/Microsoft/Oryx-sub000/pkg/logx"
)

const (
	// maxLineSize bounds a single output line handed to a callback.
	maxLineSize = 1024 * 1024
	waitDelay   = 2 * time.Second
)

// LocalExec executes commands directly on the local system.
type LocalExec struct {
	logger *logx.Logger
}

var _ Executor = (*LocalExec)(nil)

// NewLocalExec creates a new LocalExec executor.
func NewLocalExec() *LocalExec {
	return &LocalExec{logger: logx.NewLogger("exec")}
}

// Run executes a command locally and captures its output. A non-zero exit
// is reported through Result.ExitCode, not as an error.
func (e *LocalExec) Run(ctx context.Context, cmd []string, opts *Opts) (Result, error) {
	var stdout, stderr strings.Builder
	local := Opts{}
	if opts != nil {
		local = *opts
	}
	userOut, userErr := local.OnStdoutLine, local.OnStderrLine
	local.OnStdoutLine = func(line string) {
		stdout.WriteString(line)
		stdout.WriteByte('\n')
		if userOut != nil {
			userOut(line)
		}
	}
	local.OnStderrLine = func(line string) {
		stderr.WriteString(line)
		stderr.WriteByte('\n')
		if userErr != nil {
			userErr(line)
		}
	}

	start := time.Now()
	exitCode, err := e.RunStreaming(ctx, cmd, &local)
	return Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
		ExitCode: exitCode,
	}, err
}

// RunStreaming executes a command locally, delivering output line by line,
// and blocks until it exits.
func (e *LocalExec) RunStreaming(ctx context.Context, cmd []string, opts *Opts) (int, error) {
	if len(cmd) == 0 {
		return -1, fmt.Errorf("command cannot be empty")
	}
	if opts == nil {
		opts = &Opts{}
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	execCmd := exec.CommandContext(ctx, cmd[0], cmd[1:]...)
	if opts.WorkDir != "" {
		if _, err := os.Stat(opts.WorkDir); os.IsNotExist(err) {
			return -1, fmt.Errorf("working directory does not exist: %s", opts.WorkDir)
		}
		execCmd.Dir = opts.WorkDir
	}
	if len(opts.Env) > 0 {
		execCmd.Env = append(os.Environ(), opts.Env...)
	}

	stdout := newLineWriter(opts.OnStdoutLine)
	stderr := newLineWriter(opts.OnStderrLine)
	execCmd.Stdout = stdout
	execCmd.Stderr = stderr
	// Bounds the wait for output copying once a killed process leaves
	// children holding the pipes open.
	execCmd.WaitDelay = waitDelay

	e.logger.Debug("Running %s in %q", strings.Join(cmd, " "), opts.WorkDir)
	if err := execCmd.Start(); err != nil {
		return -1, fmt.Errorf("failed to start %s: %w", cmd[0], err)
	}

	err := execCmd.Wait()
	stdout.Flush()
	stderr.Flush()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return -1, fmt.Errorf("%s did not complete: %w", cmd[0], ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("failed to run %s: %w", cmd[0], err)
	}
	return 0, nil
}

// lineWriter splits written bytes into lines for a callback. Writes come
// from the single goroutine os/exec copies a stream on.
type lineWriter struct {
	onLine func(string)
	buf    bytes.Buffer
}

func newLineWriter(onLine func(string)) *lineWriter {
	return &lineWriter{onLine: onLine}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	for {
		idx := bytes.IndexByte(w.buf.Bytes(), '\n')
		if idx < 0 {
			break
		}
		line := string(w.buf.Next(idx + 1))
		w.emit(strings.TrimRight(line, "\r\n"))
	}
	if w.buf.Len() > maxLineSize {
		w.Flush()
	}
	return len(p), nil
}

// Flush emits a trailing partial line.
func (w *lineWriter) Flush() {
	if w.buf.Len() == 0 {
		return
	}
	line := w.buf.String()
	w.buf.Reset()
	w.emit(line)
}

func (w *lineWriter) emit(line string) {
	if w.onLine != nil {
		w.onLine(line)
	}
}
