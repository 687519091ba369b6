package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Microsoft/Oryx-sub000/pkg/detector"
	"github.com/Microsoft/Oryx-sub000/pkg/logx"
	"github.com/Microsoft/Oryx-sub000/pkg/oryxerr"
	"github.com/Microsoft/Oryx-sub000/pkg/sourcerepo"
	"github.com/Microsoft/Oryx-sub000/pkg/utils"
)

const notDetected = "Not Detected"

// newDetectCmd creates the detect command
func newDetectCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "detect [source-dir]",
		Short: "Detect all platforms and versions in the given app source directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := validateFormat(output, "table", "json", "yaml")
			if err != nil {
				return err
			}
			sourceDir, err := resolveDir(firstArg(args))
			if err != nil {
				return err
			}
			if info, err := os.Stat(sourceDir); err != nil || !info.IsDir() {
				return oryxerr.NewInvalidUsage("Could not find the source directory: '%s'", sourceDir)
			}

			dctx := &detector.Context{
				SourceRepo: sourcerepo.New(sourceDir),
				Cache:      detector.NewCache(),
			}
			results, err := detector.NewDefaultDetector().DetectAll(cmd.Context(), dctx)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				logx.NewLogger("detect").Error("No platforms and versions detected from source directory: '%s'", sourceDir)
				printError(cmd.ErrOrStderr(), "No platforms and versions detected from source directory: '%s'", sourceDir)
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				if len(results) == 0 {
					fmt.Fprintln(out, "{}")
					return nil
				}
				return outputJSON(out, results)
			case "yaml":
				if len(results) == 0 {
					fmt.Fprintln(out, "{}")
					return nil
				}
				return outputYAML(out, results)
			}

			var defs utils.DefinitionListFormatter
			if len(results) == 0 {
				defs.AddDefinition("Platform", notDetected)
				defs.AddDefinition("PlatformVersion", notDetected)
			}
			for _, r := range results {
				defs.AddDefinition("Platform", r.Platform)
				defs.AddDefinition("PlatformVersion", orNotDetected(r.PlatformVersion))
				if r.ProjectFile != "" {
					defs.AddDefinition("ProjectFile", r.ProjectFile)
				}
				if r.AppType != "" {
					defs.AddDefinition("AppType", r.AppType)
				}
			}
			fmt.Fprint(out, defs.String())
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table, json or yaml")
	return cmd
}

func orNotDetected(v string) string {
	if v == "" {
		return notDetected
	}
	return v
}
