package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/Microsoft/Oryx-sub000/pkg/logx"
	"github.com/Microsoft/Oryx-sub000/pkg/oryxerr"
	"github.com/Microsoft/Oryx-sub000/pkg/version"
)

var (
	// Color functions
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	blue   = color.New(color.FgBlue).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// closeLog releases the --log-file handle opened for the current run.
var closeLog = func() {}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "oryx",
		Short: "oryx - Generate and run build scripts for multiple platforms",
		Long: `oryx detects the platforms and versions an app is written for, then
generates and runs the bash script that builds it.

Supported platforms: nodejs, python, dotnet, php, ruby, hugo, java.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			closeLog = initOutput(cmd.OutOrStdout())
			cmd.SetContext(logx.WithComponent(cmd.Context(), cmd.Name()))
		},
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	rootCmd.PersistentFlags().String("log-file", "", "write log lines to this file instead of stderr")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("no-color", rootCmd.PersistentFlags().Lookup("no-color"))
	_ = viper.BindPFlag("log-file", rootCmd.PersistentFlags().Lookup("log-file"))

	rootCmd.AddCommand(
		newBuildCmd(),
		newBuildScriptCmd(),
		newDetectCmd(),
		newPlatformsCmd(),
		newRunScriptCmd(),
		newStartupScriptCmd(),
		newDockerfileCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	return execute(newRootCmd(), os.Args[1:])
}

func execute(rootCmd *cobra.Command, args []string) int {
	viper.SetEnvPrefix("ORYX")
	viper.AutomaticEnv()

	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	closeLog()
	closeLog = func() {}
	if err == nil {
		return oryxerr.ExitSuccess
	}

	var exitErr *oryxerr.ExitError
	if !errors.As(err, &exitErr) {
		printError(rootCmd.ErrOrStderr(), "%v", err)
	}
	return oryxerr.ExitCode(err)
}

// initOutput applies the global output flags and returns a func that closes
// the log file, if one was opened. Color is off when stdout is not a terminal.
func initOutput(out io.Writer) func() {
	if viper.GetBool("no-color") {
		color.NoColor = true
	} else if f, ok := out.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		color.NoColor = true
	}

	if viper.GetBool("verbose") {
		logx.SetDebug(true)
	}
	if path := viper.GetString("log-file"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			printWarning(os.Stderr, "Could not open log file %s: %v", path, err)
			return func() {}
		}
		logx.SetOutput(f)
		return func() {
			logx.SetOutput(nil)
			_ = f.Sync()
			_ = f.Close()
		}
	}
	return func() {}
}

// Helper functions for consistent output

func printSuccess(w io.Writer, format string, a ...any) {
	fmt.Fprintf(w, "%s %s\n", green("[OK]"), fmt.Sprintf(format, a...))
}

func printError(w io.Writer, format string, a ...any) {
	fmt.Fprintf(w, "%s %s\n", red("[ERROR]"), fmt.Sprintf(format, a...))
}

func printWarning(w io.Writer, format string, a ...any) {
	fmt.Fprintf(w, "%s %s\n", yellow("[WARN]"), fmt.Sprintf(format, a...))
}

func printInfo(w io.Writer, format string, a ...any) {
	fmt.Fprintf(w, "%s %s\n", blue("[INFO]"), fmt.Sprintf(format, a...))
}

func printHeader(w io.Writer, text string) {
	fmt.Fprintln(w, bold(text))
}
