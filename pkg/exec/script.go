package exec

import (
	"context"
	"fmt"
)

// ScriptExecutor runs generated bash scripts.
type ScriptExecutor struct {
	exec Executor
}

// NewScriptExecutor creates a script executor backed by ex, or a LocalExec
// when ex is nil.
func NewScriptExecutor(ex Executor) *ScriptExecutor {
	if ex == nil {
		ex = NewLocalExec()
	}
	return &ScriptExecutor{exec: ex}
}

// SetExecutePermission marks the given files executable with chmod +x. A
// non-zero chmod exit is returned as-is.
func (s *ScriptExecutor) SetExecutePermission(ctx context.Context, paths ...string) (int, error) {
	if len(paths) == 0 {
		return 0, nil
	}
	return s.exec.RunStreaming(ctx, append([]string{"chmod", "+x"}, paths...), &Opts{})
}

// ExecuteScript makes scriptPath executable and runs it with args in
// workDir. The script's exit code is returned unchanged.
func (s *ScriptExecutor) ExecuteScript(ctx context.Context, scriptPath string, args []string, workDir string,
	onStdout, onStderr func(string)) (int, error) {
	exitCode, err := s.SetExecutePermission(ctx, scriptPath)
	if err != nil {
		return exitCode, fmt.Errorf("failed to make %s executable: %w", scriptPath, err)
	}
	if exitCode != 0 {
		return exitCode, nil
	}

	return s.exec.RunStreaming(ctx, append([]string{scriptPath}, args...), &Opts{
		WorkDir:      workDir,
		OnStdoutLine: onStdout,
		OnStderrLine: onStderr,
	})
}
