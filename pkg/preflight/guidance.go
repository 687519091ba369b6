package preflight

import (
	"fmt"
	"strings"
)

// FormatCheckError formats a failed check result with actionable guidance.
func FormatCheckError(check CheckResult) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("  %s: %s\n", check.Tool, check.Message))
	sb.WriteString(fmt.Sprintf("    %s\n", getGuidance(check.Tool)))

	return sb.String()
}

// FormatResults formats all preflight results for display.
func FormatResults(results *Results) string {
	var sb strings.Builder

	if results.Passed {
		sb.WriteString("Preflight checks passed\n")
		for i := range results.Checks {
			sb.WriteString(fmt.Sprintf("  [PASS] %s: %s\n", results.Checks[i].Tool, results.Checks[i].Message))
		}
		return sb.String()
	}

	sb.WriteString("Preflight checks failed\n\n")
	sb.WriteString("Failed checks:\n")
	for i := range results.Checks {
		if !results.Checks[i].Passed {
			sb.WriteString(FormatCheckError(results.Checks[i]))
			sb.WriteString("\n")
		}
	}

	sb.WriteString("Passed checks:\n")
	for i := range results.Checks {
		if results.Checks[i].Passed {
			sb.WriteString(fmt.Sprintf("  [PASS] %s: %s\n", results.Checks[i].Tool, results.Checks[i].Message))
		}
	}
	return sb.String()
}

// getGuidance returns actionable guidance for fixing a failed check.
func getGuidance(tool Tool) string {
	switch tool {
	case ToolBash:
		return "The build script runs under bash. Install it or run inside an Oryx build image."
	case ToolChmod:
		return "chmod (coreutils) is required to mark the build script executable."
	case ToolRsync:
		return "rsync copies sources to the intermediate directory and output to the destination. Install it with your package manager."
	case ToolTar:
		return "tar is required when the zip_all_output property is set."
	case ToolStorage:
		return "Set ORYX_SDK_STORAGE_BASE_URL to an http(s) SDK storage account, or disable dynamic install."
	default:
		return "Check the tool is installed."
	}
}
