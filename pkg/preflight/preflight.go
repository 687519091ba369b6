// Package preflight validates that the tools a generated build script
// depends on are available before the script is executed.
package preflight

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Tool is an external requirement of the build script.
type Tool string

// Tools the generated build script may invoke.
const (
	ToolBash    Tool = "bash"
	ToolChmod   Tool = "chmod"
	ToolRsync   Tool = "rsync"
	ToolTar     Tool = "tar"
	ToolStorage Tool = "sdk-storage"
)

// CheckResult represents the outcome of a single preflight check.
type CheckResult struct {
	Error   error
	Message string
	Tool    Tool
	Passed  bool
}

// Results contains all preflight check results.
type Results struct {
	Summary string
	Checks  []CheckResult
	Passed  bool
}

// Requirements describe what a build will do, which decides the tools it needs.
type Requirements struct {
	UsesIntermediateDir  bool
	CopiesToDestination  bool
	ZipsOutput           bool
	EnableDynamicInstall bool
	StorageBaseURL       string
}

// RequiredTools returns the tools needed for the given build.
func RequiredTools(req Requirements) []Tool {
	tools := []Tool{ToolBash, ToolChmod}
	if req.UsesIntermediateDir || (req.CopiesToDestination && !req.ZipsOutput) {
		tools = append(tools, ToolRsync)
	}
	if req.ZipsOutput {
		tools = append(tools, ToolTar)
	}
	if req.EnableDynamicInstall {
		tools = append(tools, ToolStorage)
	}
	return tools
}

// Checker runs preflight checks.
type Checker struct {
	lookPath func(string) (string, error)
}

// NewChecker creates a checker that resolves tools on PATH.
func NewChecker() *Checker {
	return &Checker{lookPath: defaultLookPath}
}

// Run executes all preflight checks for the required tools.
func (c *Checker) Run(ctx context.Context, req Requirements) *Results {
	required := RequiredTools(req)

	results := &Results{
		Checks: make([]CheckResult, 0, len(required)),
		Passed: true,
	}

	failed := 0
	for _, tool := range required {
		result := c.runCheck(ctx, tool, req)
		results.Checks = append(results.Checks, result)
		if !result.Passed {
			results.Passed = false
			failed++
		}
	}

	if results.Passed {
		results.Summary = fmt.Sprintf("All %d preflight checks passed", len(results.Checks))
	} else {
		results.Summary = fmt.Sprintf("%d of %d preflight checks failed", failed, len(results.Checks))
	}
	return results
}

func (c *Checker) runCheck(ctx context.Context, tool Tool, req Requirements) CheckResult {
	switch tool {
	case ToolBash, ToolChmod, ToolRsync, ToolTar:
		return c.checkBinary(ctx, tool)
	case ToolStorage:
		return checkStorage(req.StorageBaseURL)
	default:
		return CheckResult{
			Tool:    tool,
			Passed:  false,
			Message: "Unknown tool",
			Error:   fmt.Errorf("unknown tool: %s", tool),
		}
	}
}

// Validate runs the checks and returns an error naming every failed one.
func (c *Checker) Validate(ctx context.Context, req Requirements) error {
	results := c.Run(ctx, req)
	if results.Passed {
		return nil
	}

	var failed []string
	for i := range results.Checks {
		if !results.Checks[i].Passed {
			failed = append(failed, FormatCheckError(results.Checks[i]))
		}
	}
	return errors.New(strings.Join(failed, "\n"))
}
