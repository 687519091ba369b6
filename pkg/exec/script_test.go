package exec

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "build.sh")
	// Written without the execute bit; ExecuteScript must add it.
	if err := os.WriteFile(path, []byte("#!/bin/bash\n"+body), 0o644); err != nil {
		t.Fatalf("Failed to write script: %v", err)
	}
	return path
}

func TestScriptExecutor_PassesArgsAndWorkDir(t *testing.T) {
	script := writeScript(t, "echo \"$1 $2\"\npwd\n")
	workDir := t.TempDir()

	var lines []string
	code, err := NewScriptExecutor(nil).ExecuteScript(context.Background(), script, []string{"src", "dest"}, workDir,
		func(line string) { lines = append(lines, line) }, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d", code)
	}
	if len(lines) != 2 || lines[0] != "src dest" {
		t.Fatalf("Unexpected output: %v", lines)
	}
	resolved, _ := filepath.EvalSymlinks(workDir)
	if lines[1] != workDir && lines[1] != resolved {
		t.Errorf("Expected work dir %s, got %s", workDir, lines[1])
	}
}

func TestScriptExecutor_PropagatesExitCode(t *testing.T) {
	script := writeScript(t, "echo failing >&2\nexit 42\n")

	var stderr []string
	code, err := NewScriptExecutor(nil).ExecuteScript(context.Background(), script, nil, "",
		nil, func(line string) { stderr = append(stderr, line) })
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if code != 42 {
		t.Errorf("Expected exit code 42, got %d", code)
	}
	if strings.Join(stderr, "") != "failing" {
		t.Errorf("Unexpected stderr: %v", stderr)
	}
}

func TestScriptExecutor_ChmodFailure(t *testing.T) {
	code, err := NewScriptExecutor(nil).ExecuteScript(context.Background(),
		filepath.Join(t.TempDir(), "missing.sh"), nil, "", nil, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if code == 0 {
		t.Error("Expected non-zero exit code from chmod")
	}
}
