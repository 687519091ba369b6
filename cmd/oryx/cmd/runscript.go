package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Microsoft/Oryx-sub000/pkg/config"
	"github.com/Microsoft/Oryx-sub000/pkg/exec"
	"github.com/Microsoft/Oryx-sub000/pkg/oryxerr"
	"github.com/Microsoft/Oryx-sub000/pkg/runscript"
)

// newRunScriptCmd creates the run-script command
func newRunScriptCmd() *cobra.Command {
	var (
		platform   string
		outputPath string
		toolDir    string
	)

	cmd := &cobra.Command{
		Use:   "run-script [app-dir] [-- tool-args...]",
		Short: "Generate startup script for an app",
		Long: `Generate the startup script of an app with the platform's startup command
generator. Arguments after -- are passed to the generator unchanged.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			appArgs, extra := args, []string(nil)
			if dash := cmd.ArgsLenAtDash(); dash >= 0 {
				appArgs, extra = args[:dash], args[dash:]
			}
			if len(appArgs) > 1 {
				return oryxerr.NewInvalidUsage("Expected at most one app directory, got %d.", len(appArgs))
			}

			appDir, err := resolveDir(firstArg(appArgs))
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
			registry, closeRegistry := newRegistry(opts)
			defer closeRegistry()

			gen := runscript.NewGenerator(registry, exec.NewLocalExec())
			if toolDir != "" {
				gen.ToolDir = toolDir
			}

			target := outputPath
			if target == "" {
				target = runscript.DefaultOutputPath
			}
			script, err := gen.Generate(cmd.Context(), platform, appDir, target, extra)
			if err != nil {
				return err
			}
			if script == "" {
				return errors.New("Couldn't generate startup script.")
			}

			if outputPath == "" {
				fmt.Fprintln(cmd.OutOrStdout(), script)
				return nil
			}
			if code, err := exec.NewScriptExecutor(nil).SetExecutePermission(cmd.Context(), outputPath); err != nil || code != 0 {
				printWarning(cmd.ErrOrStderr(), "Could not make '%s' executable", outputPath)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Script written to '%s'\n", outputPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&platform, "platform", "", "the name of the platform, e.g. 'nodejs'")
	cmd.Flags().StringVar(&outputPath, "output", "", "path to write the script to (default: stdout)")
	cmd.Flags().StringVar(&toolDir, "tool-dir", runscript.DefaultToolDir, "directory holding the startup command generators")
	_ = cmd.MarkFlagRequired("platform")
	return cmd
}
