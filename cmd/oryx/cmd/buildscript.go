package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Microsoft/Oryx-sub000/pkg/buildscript"
	"github.com/Microsoft/Oryx-sub000/pkg/checkers"
	"github.com/Microsoft/Oryx-sub000/pkg/utils"
)

// newBuildScriptCmd creates the build-script command
func newBuildScriptCmd() *cobra.Command {
	var (
		flags      buildFlags
		scriptPath string
	)

	cmd := &cobra.Command{
		Use:   "build-script [source-dir]",
		Short: "Generate the build script without running it",
		Long: `Generate the bash build script for the app in source-dir. The script takes
the source, destination and intermediate directories as its arguments.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bctx, opts, err := newBuildContext(firstArg(args), &flags)
			if err != nil {
				return err
			}
			if err := bctx.Validate(); err != nil {
				return err
			}

			registry, closeRegistry := newRegistry(opts)
			defer closeRegistry()

			var messages []checkers.Message
			script, err := buildscript.NewGenerator(registry, checkers.Default()).
				GenerateBashScript(cmd.Context(), bctx, &messages)
			if len(messages) > 0 {
				var formatter utils.DefinitionListFormatter
				for _, msg := range messages {
					formatter.AddDefinition(msg.Level.String(), msg.Content)
				}
				fmt.Fprint(cmd.ErrOrStderr(), formatter.String())
			}
			if err != nil {
				return err
			}

			if scriptPath == "" {
				fmt.Fprint(cmd.OutOrStdout(), script)
				return nil
			}
			if err := os.WriteFile(scriptPath, []byte(script), 0o755); err != nil {
				return fmt.Errorf("failed to write build script: %w", err)
			}
			printSuccess(cmd.OutOrStdout(), "Script written to '%s'", scriptPath)
			return nil
		},
	}

	flags.register(cmd, true)
	cmd.Flags().StringVar(&scriptPath, "script-output", "", "write the script to this file instead of stdout")
	return cmd
}
