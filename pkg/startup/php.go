package startup

import (
	"strings"

	"github.com/Microsoft/Oryx-sub000/pkg/logx"
)

// DefaultPhpStartupCommand runs Apache in the foreground.
const DefaultPhpStartupCommand = "apache2-foreground"

// PhpGenerator writes the entrypoint for PHP apps served by Apache.
type PhpGenerator struct {
	AppPath        string
	StartupCommand string
	PreRunCommand  string
}

// GenerateEntrypointScript returns the startup script.
func (g *PhpGenerator) GenerateEntrypointScript() string {
	logger := logx.NewLogger("php-startup")
	logger.Info("Generating script for source at '%s'", g.AppPath)

	sb := strings.Builder{}
	sb.WriteString("#!/bin/sh\n")
	writePreRun(&sb, g.AppPath, g.PreRunCommand)
	sb.WriteString("# Enter the source directory to make sure the script runs where the user expects\n")
	sb.WriteString("cd " + g.AppPath + "\n")
	sb.WriteString("export APACHE_DOCUMENT_ROOT='" + g.AppPath + "'\n")
	writeEnvDefault(&sb, "APACHE_PORT", "", "8080")

	command := g.StartupCommand
	if command == "" {
		command = DefaultPhpStartupCommand
	}
	sb.WriteString(command + "\n")
	return sb.String()
}
