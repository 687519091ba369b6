package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/Microsoft/Oryx-sub000/pkg/version"
)

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	var (
		short bool
		json  bool
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if short {
				fmt.Fprintln(out, version.Version)
				return nil
			}

			if json {
				return outputJSON(out, map[string]string{
					"version": version.Version,
					"commit":  version.Commit,
					"built":   version.Date,
					"go":      runtime.Version(),
					"os":      runtime.GOOS,
					"arch":    runtime.GOARCH,
				})
			}

			printHeader(out, "oryx")
			fmt.Fprintf(out, "Version:    %s\n", version.Version)
			fmt.Fprintf(out, "Commit:     %s\n", version.Commit)
			fmt.Fprintf(out, "Built:      %s\n", version.Date)
			fmt.Fprintf(out, "Go Version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Show only version number")
	cmd.Flags().BoolVar(&json, "json", false, "Output version in JSON format")
	return cmd
}
