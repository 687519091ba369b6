package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PreRunCommandEnv names the command run before the app starts.
const PreRunCommandEnv = "PRE_RUN_COMMAND"

// writePreRun adds the pre-run command block, run from the app directory.
func writePreRun(sb *strings.Builder, appPath, command string) {
	if command == "" {
		return
	}
	fmt.Fprintf(sb, "cd \"%s\"\n", appPath)
	sb.WriteString("echo 'Running the provided pre-run command...'\n")
	sb.WriteString(command + "\n")
	sb.WriteString("# End of pre-run command.\n")
}

// writeEnvDefault exports name as value, or as fallback when value is empty
// and the variable is not already set.
func writeEnvDefault(sb *strings.Builder, name, value, fallback string) {
	if value != "" {
		fmt.Fprintf(sb, "export %s=%s\n", name, value)
		return
	}
	fmt.Fprintf(sb, "if [ -z \"$%s\" ]; then\n\t\texport %s=%s\nfi\n\n", name, name, fallback)
}

// prepareUserCommand makes a script named by command executable when it
// lives in the app directory, and puts the app directory on PATH.
func prepareUserCommand(command, appPath string) (string, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return "", nil
	}
	candidate := fields[0]
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(appPath, candidate)
	}
	if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
		if err := os.Chmod(candidate, info.Mode()|0o111); err != nil {
			return "", fmt.Errorf("failed to make %s executable: %w", candidate, err)
		}
	}
	return fmt.Sprintf("PATH=\"$PATH:%s\" %s", appPath, command), nil
}
