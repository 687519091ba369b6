package detector

import (
	"context"
	"encoding/xml"
	"regexp"
	"strings"

	"github.com/Microsoft/Oryx-sub000/pkg/logx"
)

var (
	gradleCompatRE  = regexp.MustCompile(`sourceCompatibility\s*=\s*['"]?(?:JavaVersion\.VERSION_)?([\d._]+)['"]?`)
	javaPropertyKey = []string{"java.version", "maven.compiler.release", "maven.compiler.source"}
)

type pomFile struct {
	Properties struct {
		Entries []struct {
			XMLName xml.Name
			Value   string `xml:",chardata"`
		} `xml:",any"`
	} `xml:"properties"`
}

// JavaDetector recognizes Maven, Gradle and plain Java source trees.
type JavaDetector struct {
	logger *logx.Logger
}

// NewJavaDetector creates a Java detector.
func NewJavaDetector() *JavaDetector {
	return &JavaDetector{logger: logx.NewLogger("java-detector")}
}

// Name returns the platform name.
func (d *JavaDetector) Name() string { return JavaPlatform }

// Detect reports Java and reads the compiler level from pom.xml or the
// Gradle build as the version hint.
func (d *JavaDetector) Detect(ctx context.Context, dctx *Context) (*Result, error) {
	repo := dctx.SourceRepo
	hasPom := repo.FileExists("pom.xml")
	gradleFile := ""
	for _, f := range []string{"build.gradle", "build.gradle.kts"} {
		if repo.FileExists(f) {
			gradleFile = f
			break
		}
	}
	if !hasPom && gradleFile == "" {
		sources, err := repo.EnumerateFiles("*.java", true)
		if err != nil {
			return nil, err
		}
		if len(sources) == 0 {
			logx.Debug(ctx, "detector", "no Java build files or sources in %s", repo.RootPath())
			return nil, nil
		}
	}

	version := dctx.RequestedVersion(JavaPlatform)
	if version == "" && hasPom {
		version = d.pomVersion(dctx)
	}
	if version == "" && gradleFile != "" {
		if content, err := repo.ReadFile(gradleFile); err == nil {
			if m := gradleCompatRE.FindStringSubmatch(content); m != nil {
				version = strings.ReplaceAll(m[1], "_", ".")
			}
		}
	}
	return &Result{Platform: JavaPlatform, PlatformVersion: NormalizeJavaVersion(version)}, nil
}

func (d *JavaDetector) pomVersion(dctx *Context) string {
	content, err := dctx.SourceRepo.ReadFile("pom.xml")
	if err != nil {
		return ""
	}
	var pom pomFile
	if err := xml.Unmarshal([]byte(content), &pom); err != nil {
		d.logger.Warn("Ignoring malformed pom.xml: %v", err)
		return ""
	}
	for _, key := range javaPropertyKey {
		for _, e := range pom.Properties.Entries {
			if e.XMLName.Local == key {
				if v := strings.TrimSpace(e.Value); v != "" && !strings.HasPrefix(v, "${") {
					return v
				}
			}
		}
	}
	return ""
}

// NormalizeJavaVersion maps bare pre-9 levels such as 8 onto the 1.x scheme.
func NormalizeJavaVersion(v string) string {
	switch v {
	case "5", "6", "7", "8":
		return "1." + v
	}
	return v
}
