package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Microsoft/Oryx-sub000/pkg/config"
	"github.com/Microsoft/Oryx-sub000/pkg/detector"
	"github.com/Microsoft/Oryx-sub000/pkg/exec"
	"github.com/Microsoft/Oryx-sub000/pkg/oryxerr"
	"github.com/Microsoft/Oryx-sub000/pkg/startup"
)

// newStartupScriptCmd creates the startup-script command
func newStartupScriptCmd() *cobra.Command {
	var (
		platform    string
		outputPath  string
		manifestDir string
		command     string
		py          startup.PythonGenerator
	)

	cmd := &cobra.Command{
		Use:   "startup-script [app-dir]",
		Short: "Generate the built-in startup script for a PHP or Python app",
		Long: `Generate the entrypoint script of a built PHP or Python app, using the
oryx-manifest.toml written by the build to locate virtual environments and packages.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appDir, err := resolveDir(firstArg(args))
			if err != nil {
				return err
			}
			if info, err := os.Stat(appDir); err != nil || !info.IsDir() {
				return oryxerr.NewInvalidUsage("Could not find the source directory '%s'.", appDir)
			}

			opts, err := config.Load(appDir)
			if err != nil {
				return err
			}
			manifest, err := startup.ReadManifest(manifestDir, appDir)
			if err != nil {
				return err
			}

			var script string
			switch strings.ToLower(platform) {
			case detector.PhpPlatform:
				script = (&startup.PhpGenerator{
					AppPath:        appDir,
					StartupCommand: command,
					PreRunCommand:  opts.PreRunCommand,
				}).GenerateEntrypointScript()
			case detector.PythonPlatform:
				py.AppPath = appDir
				py.UserStartupCommand = command
				py.PreRunCommand = opts.PreRunCommand
				py.Manifest = manifest
				script, err = py.GenerateEntrypointScript()
				if err != nil {
					return err
				}
			default:
				return oryxerr.NewUnsupportedLanguage("Platform '%s' is not supported.", platform)
			}

			if outputPath == "" {
				fmt.Fprint(cmd.OutOrStdout(), script)
				return nil
			}
			if err := os.WriteFile(outputPath, []byte(script), 0o755); err != nil {
				return fmt.Errorf("failed to write startup script: %w", err)
			}
			if code, err := exec.NewScriptExecutor(nil).SetExecutePermission(cmd.Context(), outputPath); err != nil || code != 0 {
				printWarning(cmd.ErrOrStderr(), "Could not make '%s' executable", outputPath)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Script written to '%s'\n", outputPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&platform, "platform", "", "php or python")
	cmd.Flags().StringVar(&outputPath, "output", "", "path to write the script to (default: stdout)")
	cmd.Flags().StringVar(&manifestDir, "manifest-dir", "", "directory holding oryx-manifest.toml (default: the app directory)")
	cmd.Flags().StringVar(&command, "user-startup-command", "", "command to start the app instead of the detected one")
	cmd.Flags().StringVar(&py.DefaultAppPath, "default-app-path", "", "app to serve when no Python app is detected")
	cmd.Flags().StringVar(&py.DefaultAppModule, "default-app-module", "application:app", "module of the default app")
	cmd.Flags().StringVar(&py.DebugAdapter, "debug-adapter", "", "enable remote debugging with the given adapter (ptvsd)")
	cmd.Flags().BoolVar(&py.DebugWait, "debug-wait", false, "wait for the debugger to attach")
	cmd.Flags().StringVar(&py.BindPort, "bind-port", "", "port gunicorn binds to")
	cmd.Flags().StringVar(&py.VirtualEnvName, "virtual-env-name", "", "virtual environment to activate (default: from the manifest)")
	cmd.Flags().StringVar(&py.PackageDirectory, "package-dir", "", "directory of installed packages (default: from the manifest)")
	cmd.Flags().BoolVar(&py.SkipVirtualEnvExtraction, "skip-virtualenv-extraction", false, "do not extract a compressed virtual environment")
	_ = cmd.MarkFlagRequired("platform")
	return cmd
}
