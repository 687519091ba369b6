package preflight

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"strings"
)

func defaultLookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// checkBinary verifies a tool is on PATH.
func (c *Checker) checkBinary(ctx context.Context, tool Tool) CheckResult {
	result := CheckResult{Tool: tool}

	if err := ctx.Err(); err != nil {
		result.Message = "Check cancelled"
		result.Error = err
		return result
	}

	path, err := c.lookPath(string(tool))
	if err != nil {
		result.Message = fmt.Sprintf("%s was not found on PATH", tool)
		result.Error = err
		return result
	}

	result.Passed = true
	result.Message = fmt.Sprintf("found at %s", path)
	return result
}

// checkStorage verifies the SDK storage URL is usable for dynamic install.
func checkStorage(baseURL string) CheckResult {
	result := CheckResult{Tool: ToolStorage}

	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		result.Message = "ORYX_SDK_STORAGE_BASE_URL is not set"
		result.Error = fmt.Errorf("missing ORYX_SDK_STORAGE_BASE_URL")
		return result
	}

	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		result.Message = fmt.Sprintf("'%s' is not a valid storage URL", baseURL)
		result.Error = fmt.Errorf("invalid storage URL %q", baseURL)
		return result
	}

	result.Passed = true
	result.Message = fmt.Sprintf("using %s", u.Redacted())
	return result
}
