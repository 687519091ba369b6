package platforms

import (
	"context"

	"github.com/Microsoft/Oryx-sub000/pkg/detector"
	"github.com/Microsoft/Oryx-sub000/pkg/logx"
)

// Java defaults and manifest keys.
const (
	JavaDefaultVersion     = "11.0.8"
	MavenVersion           = "3.6.3"
	JavaVersionManifestKey = "javaVersion"
)

// JavaSupportedVersions is the fallback version list.
var JavaSupportedVersions = []string{"1.8.0", "11.0.8", "14.0.2"}

// JavaPlatform packages Maven or Gradle projects.
type JavaPlatform struct {
	*base
	maven *Installer
}

// NewJavaPlatform creates the Java platform.
func NewJavaPlatform(opts Options) *JavaPlatform {
	return &JavaPlatform{
		base: &base{
			name:          detector.JavaPlatform,
			detector:      detector.NewJavaDetector(),
			provider:      opts.provider(detector.JavaPlatform, "java", JavaSupportedVersions, JavaDefaultVersion),
			installer:     newInstaller(detector.JavaPlatform, "java", opts),
			multiPlatform: true,
			logger:        logx.NewLogger("java-platform"),
		},
		maven: newInstaller("maven", "maven", opts),
	}
}

type javaSnippetData struct {
	BinDir       string
	MavenBinDir  string
	BuildCommand string
	Wrapper      string
}

// GenerateSnippet prefers the project's wrappers, then system Maven or Gradle.
// Repos with only sources have nothing to package and are declined.
func (p *JavaPlatform) GenerateSnippet(_ context.Context, pctx *Context, detected *detector.Result) (*Snippet, error) {
	repo := pctx.Repo.SourceRepo
	data := javaSnippetData{
		BinDir:      p.binDir(detected.PlatformVersion, "bin"),
		MavenBinDir: p.maven.InstallDir(MavenVersion) + "/bin",
	}
	switch {
	case repo.FileExists("pom.xml") && repo.FileExists("mvnw"):
		data.BuildCommand = "./mvnw clean package -DskipTests"
		data.Wrapper = "mvnw"
	case repo.FileExists("pom.xml"):
		data.BuildCommand = "mvn clean package -DskipTests"
	case repo.FileExists("gradlew"):
		data.BuildCommand = "./gradlew build -x test"
		data.Wrapper = "gradlew"
	case repo.FileExists("build.gradle"), repo.FileExists("build.gradle.kts"):
		data.BuildCommand = "gradle build -x test"
	default:
		p.logger.Info("No Maven or Gradle build file found; skipping Java")
		return nil, nil
	}

	script, err := render("java.sh.tpl", data)
	if err != nil {
		return nil, err
	}
	return &Snippet{
		BashBuildScriptSnippet: script,
		BuildProperties:        map[string]string{JavaVersionManifestKey: detected.PlatformVersion},
	}, nil
}

// DirectoriesToExcludeFromCopyToIntermediateDir skips build output.
func (p *JavaPlatform) DirectoriesToExcludeFromCopyToIntermediateDir(_ *Context) []string {
	return []string{"target", "build", ".gradle"}
}

// ToolsUsed reports java and maven versions.
func (p *JavaPlatform) ToolsUsed(version string) map[string]string {
	return map[string]string{"java": version, "maven": MavenVersion}
}
