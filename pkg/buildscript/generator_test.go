package buildscript

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Microsoft/Oryx-sub000/pkg/checkers"
	"github.com/Microsoft/Oryx-sub000/pkg/detector"
	"github.com/Microsoft/Oryx-sub000/pkg/oryxerr"
	"github.com/Microsoft/Oryx-sub000/pkg/platforms"
	"github.com/Microsoft/Oryx-sub000/pkg/sourcerepo"
	"github.com/Microsoft/Oryx-sub000/pkg/versioning"
	"github.com/Microsoft/Oryx-sub000/pkg/versionprovider"
)

// fakePlatform is a scripted platform that counts detector invocations.
type fakePlatform struct {
	name           string
	versions       []string
	defaultVersion string
	detected       *detector.Result
	detectCalls    int
	snippet        *platforms.Snippet
	disabled       bool
	noMulti        bool
	excludes       []string
	outputExcludes []string
	installer      string
}

func newFakePlatform(name, snippet string) *fakePlatform {
	return &fakePlatform{
		name:     name,
		versions: []string{"1.0.0"},
		detected: &detector.Result{Platform: name, PlatformVersion: "1.0.0"},
		snippet:  &platforms.Snippet{BashBuildScriptSnippet: snippet},
	}
}

func (p *fakePlatform) Name() string { return p.name }

func (p *fakePlatform) VersionInfo(context.Context) (versionprovider.VersionInfo, error) {
	return versionprovider.VersionInfo{SupportedVersions: p.versions, DefaultVersion: p.defaultVersion}, nil
}

func (p *fakePlatform) Detect(context.Context, *platforms.Context) (*detector.Result, error) {
	p.detectCalls++
	if p.detected == nil {
		return nil, nil
	}
	out := *p.detected
	return &out, nil
}

func (p *fakePlatform) ResolveVersion(_ context.Context, version string) (string, error) {
	return versioning.Resolve(p.name, version, p.versions, p.defaultVersion).Unwrap()
}

func (p *fakePlatform) GenerateSnippet(context.Context, *platforms.Context, *detector.Result) (*platforms.Snippet, error) {
	return p.snippet, nil
}

func (p *fakePlatform) IsEnabled(*platforms.Context) bool { return !p.disabled }

func (p *fakePlatform) IsEnabledForMultiPlatformBuild(*platforms.Context) bool { return !p.noMulti }

func (p *fakePlatform) DirectoriesToExcludeFromCopyToIntermediateDir(*platforms.Context) []string {
	return p.excludes
}

func (p *fakePlatform) DirectoriesToExcludeFromCopyToBuildOutputDir(*platforms.Context, *detector.Result) []string {
	return p.outputExcludes
}

func (p *fakePlatform) InstallerSnippet(*platforms.Context, string) string { return p.installer }

func (p *fakePlatform) ToolsUsed(version string) map[string]string {
	return map[string]string{p.name: version}
}

type fakeChecker struct {
	messages []checkers.Message
	panics   bool
	tools    map[string]string
}

func (c *fakeChecker) CheckSourceRepo(sourcerepo.SourceRepo) ([]checkers.Message, error) {
	if c.panics {
		panic("checker blew up")
	}
	return c.messages, nil
}

func (c *fakeChecker) CheckToolVersions(tools map[string]string) ([]checkers.Message, error) {
	c.tools = tools
	return nil, errors.New("tool check failed")
}

func newContext() *Context {
	return &Context{SourceRepo: sourcerepo.NewFS("/repo", fstest.MapFS{"README.md": {}})}
}

func newTestGenerator(regs []checkers.Registration, ps ...platforms.Platform) *Generator {
	g := NewGenerator(platforms.NewRegistryOf(ps...), regs)
	g.newID = func() string { return "op-1" }
	return g
}

func TestNoPlatformDetected(t *testing.T) {
	p := newFakePlatform("test", "echo built")
	p.detected = nil
	g := newTestGenerator(nil, p)

	_, err := g.GenerateBashScript(context.Background(), newContext(), nil)
	require.Error(t, err)
	var langErr *oryxerr.UnsupportedLanguageError
	require.ErrorAs(t, err, &langErr)
	assert.Equal(t, "Could not detect the language from repo.", err.Error())
}

func TestSuppliedLanguageWithoutDetectableVersion(t *testing.T) {
	p := newFakePlatform("test", "echo built")
	p.detected = &detector.Result{Platform: "test"}
	g := newTestGenerator(nil, p)

	bctx := newContext()
	bctx.Language = "test"
	_, err := g.GenerateBashScript(context.Background(), bctx, nil)
	var versionErr *oryxerr.UnsupportedVersionError
	require.ErrorAs(t, err, &versionErr)
	assert.Equal(t, "Couldn't detect a version for the platform 'test' in the repo.", err.Error())
}

func TestUnsupportedLanguageListsEnabledPlatforms(t *testing.T) {
	g := newTestGenerator(nil, newFakePlatform("test1", ""))

	bctx := newContext()
	bctx.Language = "test2"
	bctx.LanguageVersion = "1.0.0"
	_, err := g.GenerateBashScript(context.Background(), bctx, nil)
	var langErr *oryxerr.UnsupportedLanguageError
	require.ErrorAs(t, err, &langErr)
	assert.Equal(t, "'test2' platform is not supported. Supported platforms are: test1", err.Error())
}

func TestDisabledPlatformIsUnsupported(t *testing.T) {
	p := newFakePlatform("test", "echo built")
	p.disabled = true
	other := newFakePlatform("other", "")
	g := newTestGenerator(nil, p, other)

	bctx := newContext()
	bctx.Language = "test"
	_, err := g.GenerateBashScript(context.Background(), bctx, nil)
	require.Error(t, err)
	assert.Equal(t, "'test' platform is not supported. Supported platforms are: other", err.Error())
}

func TestUnsupportedSuppliedVersion(t *testing.T) {
	p := newFakePlatform("test", "echo built")
	g := newTestGenerator(nil, p)

	bctx := newContext()
	bctx.Language = "test"
	bctx.LanguageVersion = "2.0.0"
	_, err := g.GenerateBashScript(context.Background(), bctx, nil)
	var versionErr *oryxerr.UnsupportedVersionError
	require.ErrorAs(t, err, &versionErr)
	assert.Equal(t, "The 'test' version '2.0.0' is not supported. Supported versions are: 1.0.0", err.Error())
	assert.Zero(t, p.detectCalls)
}

func TestSuppliedLanguageAndVersionSkipsDetection(t *testing.T) {
	p := newFakePlatform("test", "echo built-by-test")
	g := newTestGenerator(nil, p)

	bctx := newContext()
	bctx.Language = "TEST"
	bctx.LanguageVersion = "1"
	script, err := g.GenerateBashScript(context.Background(), bctx, nil)
	require.NoError(t, err)
	assert.Contains(t, script, "echo built-by-test")
	assert.Contains(t, script, `platforms="test=1.0.0"`)
	assert.Zero(t, p.detectCalls)
}

func TestSinglePlatformBuildDoesNotDetectOthers(t *testing.T) {
	p1 := newFakePlatform("lang1", "echo one")
	p2 := newFakePlatform("lang2", "echo two")
	g := newTestGenerator(nil, p1, p2)

	bctx := newContext()
	bctx.Language = "lang2"
	bctx.LanguageVersion = "1.0.0"
	script, err := g.GenerateBashScript(context.Background(), bctx, nil)
	require.NoError(t, err)
	assert.Contains(t, script, "echo two")
	assert.NotContains(t, script, "echo one")
	assert.Zero(t, p1.detectCalls)
	assert.Zero(t, p2.detectCalls)
}

func TestMultiPlatformBuildIncludesAllSnippets(t *testing.T) {
	p1 := newFakePlatform("lang1", "echo one")
	p2 := newFakePlatform("lang2", "echo two")
	g := newTestGenerator(nil, p1, p2)

	bctx := newContext()
	bctx.Language = "lang2"
	bctx.LanguageVersion = "1.0.0"
	bctx.EnableMultiPlatformBuild = true
	script, err := g.GenerateBashScript(context.Background(), bctx, nil)
	require.NoError(t, err)
	assert.Contains(t, script, "echo one")
	assert.Contains(t, script, "echo two")
	assert.Less(t, strings.Index(script, "echo one"), strings.Index(script, "echo two"))
	assert.Equal(t, 1, p1.detectCalls)
	assert.Zero(t, p2.detectCalls)
}

func TestDetectsAllPlatformsWithoutLanguage(t *testing.T) {
	p1 := newFakePlatform("lang1", "echo one")
	p2 := newFakePlatform("lang2", "echo two")
	p2.detected = nil
	g := newTestGenerator(nil, p1, p2)

	script, err := g.GenerateBashScript(context.Background(), newContext(), nil)
	require.NoError(t, err)
	assert.Contains(t, script, "echo one")
	assert.NotContains(t, script, "echo two")
	assert.Equal(t, 1, p1.detectCalls)
	assert.Equal(t, 1, p2.detectCalls)
}

func TestDetectedWithoutVersionUsesDefault(t *testing.T) {
	p := newFakePlatform("test", "echo built")
	p.detected = &detector.Result{Platform: "test"}
	p.defaultVersion = "1.0.0"
	g := newTestGenerator(nil, p)

	results, err := g.GetCompatiblePlatforms(context.Background(), newContext())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "1.0.0", results[0].Detected.PlatformVersion)
}

func TestFirstEnabledPlatformWithNameIsUsed(t *testing.T) {
	disabled := newFakePlatform("test", "echo disabled")
	disabled.disabled = true
	enabled := newFakePlatform("test", "echo enabled")
	g := newTestGenerator(nil, disabled, enabled)

	bctx := newContext()
	bctx.Language = "test"
	bctx.LanguageVersion = "1.0.0"
	script, err := g.GenerateBashScript(context.Background(), bctx, nil)
	require.NoError(t, err)
	assert.Contains(t, script, "echo enabled")
	assert.NotContains(t, script, "echo disabled")
}

func TestMultiPlatformOptOut(t *testing.T) {
	p1 := newFakePlatform("lang1", "echo one")
	p2 := newFakePlatform("lang2", "echo two")
	p2.noMulti = true
	g := newTestGenerator(nil, p1, p2)

	bctx := newContext()
	bctx.Language = "lang1"
	bctx.LanguageVersion = "1.0.0"
	bctx.EnableMultiPlatformBuild = true

	results, err := g.GetCompatiblePlatforms(context.Background(), bctx)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	script, err := g.GenerateBashScript(context.Background(), bctx, nil)
	require.NoError(t, err)
	assert.Contains(t, script, "echo one")
	assert.NotContains(t, script, "echo two")
}

func TestOptedOutPlatformBuildsAlone(t *testing.T) {
	p := newFakePlatform("lang1", "echo one")
	p.noMulti = true
	g := newTestGenerator(nil, p)

	script, err := g.GenerateBashScript(context.Background(), newContext(), nil)
	require.NoError(t, err)
	assert.Contains(t, script, "echo one")
}

func TestDeclinedSoleCandidateFails(t *testing.T) {
	p := newFakePlatform("test", "")
	p.snippet = nil
	g := newTestGenerator(nil, p)

	_, err := g.GenerateBashScript(context.Background(), newContext(), nil)
	assert.Equal(t, "Could not detect the language from repo.", err.Error())
}

func TestCheckersRunForSelectedPlatforms(t *testing.T) {
	p1 := newFakePlatform("lang1", "echo one")
	p2 := newFakePlatform("lang2", "echo two")
	p2.detected = nil
	selected := &fakeChecker{messages: []checkers.Message{{Level: checkers.LevelWarning, Content: "old runtime"}}}
	other := &fakeChecker{messages: []checkers.Message{{Content: "should not run"}}}
	broken := &fakeChecker{panics: true}
	regs := []checkers.Registration{
		{Platform: "lang1", Name: "selected", Checker: selected},
		{Platform: "lang2", Name: "other", Checker: other},
		{Platform: "lang1", Name: "broken", Checker: broken},
	}
	g := newTestGenerator(regs, p1, p2)

	bctx := newContext()
	bctx.EnableCheckers = true
	var sink []checkers.Message
	_, err := g.GenerateBashScript(context.Background(), bctx, &sink)
	require.NoError(t, err)
	assert.Equal(t, []checkers.Message{{Level: checkers.LevelWarning, Content: "old runtime"}}, sink)
	assert.Equal(t, map[string]string{"lang1": "1.0.0"}, selected.tools)
}

func TestCheckerMessagesKeptWhenGenerationFails(t *testing.T) {
	p := newFakePlatform("test", "")
	p.snippet = nil
	checker := &fakeChecker{messages: []checkers.Message{{Content: "advice"}}}
	g := newTestGenerator([]checkers.Registration{{Platform: "test", Name: "c", Checker: checker}}, p)

	bctx := newContext()
	bctx.EnableCheckers = true
	var sink []checkers.Message
	_, err := g.GenerateBashScript(context.Background(), bctx, &sink)
	require.Error(t, err)
	assert.Len(t, sink, 1)
}

func TestCheckersDisabled(t *testing.T) {
	checker := &fakeChecker{messages: []checkers.Message{{Content: "advice"}}}
	g := newTestGenerator([]checkers.Registration{{Platform: "test", Name: "c", Checker: checker}},
		newFakePlatform("test", "echo"))

	var sink []checkers.Message
	_, err := g.GenerateBashScript(context.Background(), newContext(), &sink)
	require.NoError(t, err)
	assert.Empty(t, sink)
}

func TestGenerateReportsBuildingPlatformsFromOneSelection(t *testing.T) {
	built := newFakePlatform("built", "echo built")
	optedOut := newFakePlatform("optedout", "echo skipped")
	optedOut.noMulti = true
	g := newTestGenerator(nil, built, optedOut)

	bctx := newContext()
	bctx.EnableMultiPlatformBuild = true
	generated, err := g.Generate(context.Background(), bctx, nil)
	require.NoError(t, err)
	assert.Contains(t, generated.Script, "echo built")
	assert.NotContains(t, generated.Script, "echo skipped")

	require.Len(t, generated.Platforms, 1)
	assert.Equal(t, "built", generated.Platforms[0].Platform.Name())
	assert.Equal(t, "1.0.0", generated.Platforms[0].Detected.PlatformVersion)
	assert.Equal(t, 1, built.detectCalls)
	assert.Equal(t, 1, optedOut.detectCalls)
}
