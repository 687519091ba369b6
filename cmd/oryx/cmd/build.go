package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Microsoft/Oryx-sub000/pkg/buildscript"
	"github.com/Microsoft/Oryx-sub000/pkg/checkers"
	"github.com/Microsoft/Oryx-sub000/pkg/config"
	"github.com/Microsoft/Oryx-sub000/pkg/exec"
	"github.com/Microsoft/Oryx-sub000/pkg/logx"
	"github.com/Microsoft/Oryx-sub000/pkg/metrics"
	"github.com/Microsoft/Oryx-sub000/pkg/oryxerr"
	"github.com/Microsoft/Oryx-sub000/pkg/preflight"
	"github.com/Microsoft/Oryx-sub000/pkg/textspan"
	"github.com/Microsoft/Oryx-sub000/pkg/utils"
	"github.com/Microsoft/Oryx-sub000/pkg/version"
)

const (
	buildScriptFileName = "build.sh"
	// maxLogChunk bounds a single debug log line of script output.
	maxLogChunk = 4096
)

// newBuildCmd creates the build command
func newBuildCmd() *cobra.Command {
	var (
		flags         buildFlags
		metricsFile   string
		skipPreflight bool
	)

	cmd := &cobra.Command{
		Use:   "build [source-dir]",
		Short: "Generate and run build scripts",
		Long: `Detect the platforms of the app in source-dir, generate the build script
and run it. Output is copied to --output when it differs from the source.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b := &builder{
				out:           cmd.OutOrStdout(),
				errOut:        cmd.ErrOrStderr(),
				flags:         &flags,
				metricsFile:   metricsFile,
				skipPreflight: skipPreflight,
				logger:        logx.NewLogger("build"),
			}
			return b.run(cmd.Context(), firstArg(args))
		},
	}

	flags.register(cmd, true)
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write build metrics in Prometheus text format to this file")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "do not check that bash, rsync and tar are available")
	return cmd
}

type builder struct {
	out           io.Writer
	errOut        io.Writer
	flags         *buildFlags
	metricsFile   string
	skipPreflight bool
	logger        *logx.Logger

	// mu serializes writes from the stdout and stderr readers.
	mu     sync.Mutex
	output strings.Builder
}

func (b *builder) run(ctx context.Context, sourceDir string) error {
	bctx, opts, err := newBuildContext(sourceDir, b.flags)
	if err != nil {
		return err
	}
	if err := bctx.Validate(); err != nil {
		return err
	}

	recorder := metrics.NewRecorder()
	metricsFile := b.metricsFile
	if metricsFile == "" {
		metricsFile = opts.MetricsFile
	}
	if metricsFile != "" {
		defer func() {
			if err := recorder.WriteTextfile(metricsFile); err != nil {
				b.logger.Warn("Failed to write metrics to %s: %v", metricsFile, err)
			}
		}()
	}

	bctx.OperationID = uuid.NewString()
	b.printBuildInfo(bctx, opts)

	if !b.skipPreflight {
		checker := preflight.NewChecker()
		if err := checker.Validate(ctx, preflight.Requirements{
			UsesIntermediateDir:  bctx.IntermediateDir != "",
			CopiesToDestination:  bctx.HasDestinationDir(),
			ZipsOutput:           bctx.PlatformContext().PropertyIsTrue(buildscript.ZipAllOutputProp),
			EnableDynamicInstall: bctx.EnableDynamicInstall,
			StorageBaseURL:       opts.SdkStorageBaseURL,
		}); err != nil {
			return fmt.Errorf("preflight checks failed:\n%w", err)
		}
	}

	registry, closeRegistry := newRegistry(opts)
	defer closeRegistry()
	generator := buildscript.NewGenerator(registry, checkers.Default())

	script, err := b.generate(ctx, generator, bctx, recorder)
	if err != nil {
		return err
	}

	tempDir, err := os.MkdirTemp("", "oryx-build-")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	scriptPath := filepath.Join(tempDir, buildScriptFileName)
	if err := os.WriteFile(scriptPath, []byte(script), 0o644); err != nil {
		return fmt.Errorf("failed to write build script: %w", err)
	}
	b.logger.Debug("Build script written to %s", scriptPath)
	if logx.IsDebugEnabled() {
		for _, chunk := range utils.Chunkify(script, maxLogChunk) {
			b.logger.Debug("Build script content:\n%s", chunk)
		}
	}

	return b.execute(ctx, bctx, opts, scriptPath, recorder)
}

func (b *builder) printBuildInfo(bctx *buildscript.Context, opts *config.Options) {
	fmt.Fprintln(b.out, "Build orchestrated by Microsoft Oryx, https://github.com/Microsoft/Oryx")
	fmt.Fprintln(b.out, "You can report issues at https://github.com/Microsoft/Oryx/issues")
	fmt.Fprintln(b.out)

	var info utils.DefinitionListFormatter
	info.AddDefinition("Oryx Version", fmt.Sprintf("%s, Commit: %s", version.Version, version.Commit))
	info.AddDefinition("Build Operation ID", bctx.OperationID)
	if opts.ScmCommitID != "" {
		info.AddDefinition("Repository Commit", opts.ScmCommitID)
	}
	if opts.BuildEnvFile != "" {
		info.AddDefinition("Build Environment File", opts.BuildEnvFile)
	}
	fmt.Fprintln(b.out, info.String())
}

// generate produces the build script and reports checker messages and
// the selected platforms.
func (b *builder) generate(ctx context.Context, generator *buildscript.Generator, bctx *buildscript.Context,
	recorder *metrics.Recorder) (string, error) {
	event := b.logger.StartTimedEvent("GenerateBuildScript", nil, nil)
	defer event.End()

	var messages []checkers.Message
	generated, err := generator.Generate(ctx, bctx, &messages)

	if len(messages) > 0 {
		var formatter utils.DefinitionListFormatter
		for _, msg := range messages {
			formatter.AddDefinition(msg.Level.String(), msg.Content)
			recorder.IncCheckerMessage(msg.Level.String())
		}
		fmt.Fprintln(b.out, formatter.String())
	} else {
		b.logger.Debug("No checker messages emitted")
	}
	if err != nil {
		return "", err
	}

	selected := make([]string, 0, len(generated.Platforms))
	for _, r := range generated.Platforms {
		recorder.IncPlatform(r.Platform.Name(), r.Detected.PlatformVersion)
		selected = append(selected, r.Platform.Name()+"="+r.Detected.PlatformVersion)
	}
	printInfo(b.out, "Building with %s", strings.Join(selected, ", "))
	return generated.Script, nil
}

func (b *builder) execute(ctx context.Context, bctx *buildscript.Context, opts *config.Options, scriptPath string,
	recorder *metrics.Recorder) error {
	scripts := exec.NewScriptExecutor(nil)

	var userScripts []string
	for _, p := range []string{bctx.PreBuildScriptPath, bctx.PostBuildScriptPath} {
		if p != "" {
			userScripts = append(userScripts, p)
		}
	}
	if code, err := scripts.SetExecutePermission(ctx, userScripts...); err != nil || code != 0 {
		b.logger.Warn("Could not make %v executable (exit code %d): %v", userScripts, code, err)
	}

	spans := textspan.NewEventLogger(textspan.Known(), recorder)
	event := spans.Start(textspan.RunBuildScript, map[string]string{
		"oryxVersion":  version.Version,
		"oryxCommitId": version.Commit,
		"commitId":     opts.ScmCommitID,
		"operationId":  bctx.OperationID,
		"scriptPath":   scriptPath,
	})

	root := bctx.SourceRepo.RootPath()
	exitCode, err := scripts.ExecuteScript(ctx, scriptPath,
		[]string{root, bctx.DestinationDir, bctx.IntermediateDir}, root,
		func(line string) {
			b.writeLine(b.out, line)
			spans.CheckString(line)
		},
		func(line string) {
			b.writeLine(b.errOut, line)
		})
	elapsed := event.End()
	recorder.ObserveBuild(exitCode, elapsed)
	b.logOutput()

	if err != nil {
		return fmt.Errorf("failed to run build script: %w", err)
	}
	if exitCode != oryxerr.ExitSuccess {
		b.logger.Error("Build script exited with %d", exitCode)
		return &oryxerr.ExitError{Code: exitCode}
	}

	b.logger.Info("Build completed in %s", elapsed.Round(time.Millisecond))
	return nil
}

func (b *builder) writeLine(w io.Writer, line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fmt.Fprintln(w, line)
	b.output.WriteString(line)
	b.output.WriteString("\n")
}

// logOutput writes the captured script output to the debug log with URL
// credentials masked.
func (b *builder) logOutput() {
	if !logx.IsDebugEnabled() {
		return
	}
	b.mu.Lock()
	output := utils.ReplaceURLUserInfo(b.output.String())
	b.mu.Unlock()
	for _, chunk := range utils.Chunkify(output, maxLogChunk) {
		b.logger.Debug("Build script output:\n%s", chunk)
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
