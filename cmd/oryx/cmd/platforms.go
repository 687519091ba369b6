package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Microsoft/Oryx-sub000/pkg/config"
	"github.com/Microsoft/Oryx-sub000/pkg/platforms"
	"github.com/Microsoft/Oryx-sub000/pkg/utils"
	"github.com/Microsoft/Oryx-sub000/pkg/versioning"
)

// platformInfo is the listing entry of one platform.
type platformInfo struct {
	Name           string   `json:"name" yaml:"name"`
	DefaultVersion string   `json:"defaultVersion" yaml:"defaultVersion"`
	Versions       []string `json:"versions" yaml:"versions"`
}

// newPlatformsCmd creates the platforms command
func newPlatformsCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "platforms",
		Short: "Show the supported platforms and their versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := validateFormat(output, "table", "json", "yaml")
			if err != nil {
				return err
			}
			opts, err := config.Load("")
			if err != nil {
				return err
			}

			registry, closeRegistry := newRegistry(opts)
			defer closeRegistry()

			pctx := &platforms.Context{
				Disabled:             opts.DisabledPlatforms,
				EnableDynamicInstall: opts.EnableDynamicInstall,
			}
			var infos []platformInfo
			for _, p := range registry.Enabled(pctx) {
				info, err := versionInfo(cmd.Context(), p)
				if err != nil {
					return err
				}
				infos = append(infos, platformInfo{
					Name:           p.Name(),
					DefaultVersion: info.DefaultVersion,
					Versions:       versioning.SortVersions(info.SupportedVersions),
				})
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				return outputJSON(out, infos)
			case "yaml":
				return outputYAML(out, infos)
			}

			for _, info := range infos {
				var defs utils.DefinitionListFormatter
				defs.AddDefinition("Platform", cyan(info.Name))
				defs.AddDefinition("Default version", info.DefaultVersion)
				defs.AddDefinition("Versions", strings.Join(info.Versions, "\n"))
				fmt.Fprintln(out, defs.String())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table, json or yaml")
	return cmd
}
