package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Microsoft/Oryx-sub000/pkg/buildscript"
	"github.com/Microsoft/Oryx-sub000/pkg/checkers"
	"github.com/Microsoft/Oryx-sub000/pkg/dockerfiles"
)

// newDockerfileCmd creates the dockerfile command
func newDockerfileCmd() *cobra.Command {
	var (
		flags      buildFlags
		outputPath string
	)

	cmd := &cobra.Command{
		Use:   "dockerfile [source-dir]",
		Short: "Generate a Dockerfile that builds and runs the app",
		Args:  cobra.MaximumNArgs(1),
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

			gen := dockerfiles.NewGenerator(buildscript.NewGenerator(registry, checkers.Default()))
			content, err := gen.GenerateDockerfile(cmd.Context(), bctx)
			if err != nil {
				return err
			}

			if outputPath == "" {
				fmt.Fprint(cmd.OutOrStdout(), content)
				return nil
			}
			if err := os.WriteFile(outputPath, []byte(content), 0o644); err != nil {
				return fmt.Errorf("failed to write Dockerfile: %w", err)
			}
			printSuccess(cmd.OutOrStdout(), "Dockerfile written to '%s'", outputPath)
			return nil
		},
	}

	flags.register(cmd, false)
	cmd.Flags().StringVar(&outputPath, "output", "", "path to write the Dockerfile to (default: stdout)")
	return cmd
}
