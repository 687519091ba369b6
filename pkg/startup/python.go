package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/Microsoft/Oryx-sub000/pkg/logx"
)

// Python startup defaults.
const (
	SupportedDebugAdapter = "ptvsd"
	DefaultPtvsdPort      = "3000"
	DefaultHost           = "0.0.0.0"
	DefaultBindPort       = "80"
	DefaultPackagesDir    = "__oryx_packages__"
)

var flaskMainFiles = []string{"application.py", "app.py", "index.py", "server.py"}

// PythonGenerator writes the entrypoint for Python apps run with gunicorn.
type PythonGenerator struct {
	AppPath            string
	UserStartupCommand string
	DefaultAppPath     string
	DefaultAppModule   string
	// DebugAdapter selects a remote debugger; only ptvsd is supported.
	DebugAdapter string
	// DebugWait pauses the app until a debugger attaches.
	DebugWait                bool
	BindPort                 string
	VirtualEnvName           string
	PackageDirectory         string
	SkipVirtualEnvExtraction bool
	PreRunCommand            string
	Manifest                 *Manifest

	// CPUCount overrides runtime.NumCPU for the gunicorn worker count.
	CPUCount int
}

func (g *PythonGenerator) manifest() *Manifest {
	if g.Manifest == nil {
		return &Manifest{}
	}
	return g.Manifest
}

// GenerateEntrypointScript returns the startup script. A user startup
// command wins over Django, Flask and default app detection.
func (g *PythonGenerator) GenerateEntrypointScript() (string, error) {
	logger := logx.NewLogger("python-startup")
	logger.Info("Generating script for source at '%s'", g.AppPath)

	sb := strings.Builder{}
	sb.WriteString("#!/bin/sh\n")
	writePreRun(&sb, g.AppPath, g.PreRunCommand)
	sb.WriteString("\n# Enter the source directory to make sure the script runs where the user expects\n")
	sb.WriteString("cd " + g.AppPath + "\n\n")
	writeEnvDefault(&sb, "PORT", g.BindPort, DefaultBindPort)

	setup, err := g.packageSetup()
	if err != nil {
		return "", err
	}
	sb.WriteString(setup)

	var appType, appModule string
	command := g.UserStartupCommand
	if command != "" {
		if command, err = prepareUserCommand(command, g.AppPath); err != nil {
			return "", err
		}
	} else {
		appDir := g.AppPath
		if appModule, err = g.djangoModule(); err != nil {
			return "", err
		}
		switch {
		case appModule != "":
			appType = "Django"
		default:
			if appModule = g.flaskModule(); appModule != "" {
				appType = "Flask"
			} else {
				appType = "Default"
				appDir = g.DefaultAppPath
				appModule = g.DefaultAppModule
			}
		}
		logger.Info("Detected %s app", appType)

		if appModule != "" {
			if g.debugEnabled(logger) {
				command = g.ptvsdCommand(appModule, appDir)
			} else {
				command = g.gunicornCommand(appModule, appDir)
			}
		}
	}

	sb.WriteString(command + "\n")
	logger.Debug("Finalizing script: appType=%s appModule=%s venv=%s", appType, appModule, g.manifest().VirtualEnvName)
	return sb.String(), nil
}

// packageSetup makes the packages from the virtual environment or the
// package directory importable. Manifest values win over flags.
func (g *PythonGenerator) packageSetup() (string, error) {
	m := g.manifest()
	sb := strings.Builder{}

	venvName := m.VirtualEnvName
	if venvName == "" {
		venvName = g.VirtualEnvName
	}
	packageDir := m.PackageDir
	if packageDir == "" {
		packageDir = g.PackageDirectory
	}

	if venvName != "" {
		venvDir := filepath.Join(g.AppPath, venvName)
		if m.CompressedVirtualEnvFile == "" || g.SkipVirtualEnvExtraction {
			if pathExists(venvDir) {
				sb.WriteString(venvScript(venvName, venvDir))
			} else {
				packageDir = DefaultPackagesDir
				sb.WriteString("  echo WARNING: Could not find virtual environment directory '" + venvDir + "'.\n")
			}
		} else {
			compressed := m.CompressedVirtualEnvFile
			venvDir = "/" + venvName
			switch {
			case strings.HasSuffix(compressed, ".zip"):
				sb.WriteString("echo Found virtual environment .zip archive.\n")
				sb.WriteString("extractionCommand=\"unzip -q " + compressed + " -d " + venvDir + "\"\n")
			case strings.HasSuffix(compressed, ".tar.gz"):
				sb.WriteString("echo Found virtual environment .tar.gz archive.\n")
				sb.WriteString("extractionCommand=\"tar -xzf " + compressed + " -C " + venvDir + "\"\n")
			default:
				return "", fmt.Errorf("unrecognizable file '%s'; expected a file with a '.zip' or '.tar.gz' extension", compressed)
			}
			sb.WriteString("echo Removing existing virtual environment directory '" + venvDir + "'...\n")
			sb.WriteString("rm -fr " + venvDir + "\n")
			sb.WriteString("mkdir -p " + venvDir + "\n")
			sb.WriteString("echo Extracting to directory '" + venvDir + "'...\n")
			sb.WriteString("$extractionCommand\n")
			sb.WriteString(venvScript(venvName, venvDir))
		}
	}

	if packageDir != "" {
		dir := filepath.Join(g.AppPath, packageDir)
		if pathExists(dir) {
			sb.WriteString("echo Using package directory '" + dir + "'\n")
			sb.WriteString("SITE_PACKAGE_PYTHON_VERSION=$(python -c \"import sys; print(str(sys.version_info.major) + '.' + str(sys.version_info.minor))\")\n")
			sb.WriteString("SITE_PACKAGES_PATH=$HOME\"/.local/lib/python\"$SITE_PACKAGE_PYTHON_VERSION\"/site-packages\"\n")
			sb.WriteString("mkdir -p $SITE_PACKAGES_PATH\n")
			sb.WriteString("echo \"" + dir + "\" > $SITE_PACKAGES_PATH\"/oryx.pth\"\n")
			sb.WriteString("PATH=\"" + dir + "/bin:$PATH\"\n")
			sb.WriteString("echo \"Updated PATH to '$PATH'\"\n")
		} else {
			sb.WriteString("  echo WARNING: Could not find package directory '" + dir + "'.\n")
		}
	}
	return sb.String(), nil
}

// venvScript adds the venv's site-packages to PYTHONPATH instead of
// activating it, since the venv hardcodes the build image's python path.
func venvScript(name, dir string) string {
	sb := strings.Builder{}
	sb.WriteString("PYTHON_VERSION=$(python -c \"import sys; print(str(sys.version_info.major) + '.' + str(sys.version_info.minor))\")\n")
	sb.WriteString("echo Using packages from virtual environment '" + name + "' located at '" + dir + "'.\n")
	sb.WriteString("export PYTHONPATH=$PYTHONPATH:\"" + dir + "/lib/python$PYTHON_VERSION/site-packages\"\n")
	sb.WriteString("echo \"Updated PYTHONPATH to '$PYTHONPATH'\"\n")
	return sb.String()
}

// djangoModule returns "<dir>.wsgi" for the first top-level directory
// holding a wsgi.py, skipping the virtual environment.
func (g *PythonGenerator) djangoModule() (string, error) {
	entries, err := os.ReadDir(g.AppPath)
	if err != nil {
		return "", fmt.Errorf("couldn't read app directory '%s': %w", g.AppPath, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == g.manifest().VirtualEnvName {
			continue
		}
		info, err := os.Stat(filepath.Join(g.AppPath, entry.Name(), "wsgi.py"))
		if err == nil && !info.IsDir() {
			return entry.Name() + ".wsgi", nil
		}
	}
	return "", nil
}

// flaskModule returns "<module>:app" for the first known main file.
func (g *PythonGenerator) flaskModule() string {
	for _, file := range flaskMainFiles {
		if info, err := os.Stat(filepath.Join(g.AppPath, file)); err == nil && !info.IsDir() {
			return strings.TrimSuffix(file, ".py") + ":app"
		}
	}
	return ""
}

func (g *PythonGenerator) debugEnabled(logger *logx.Logger) bool {
	if g.DebugAdapter == "" {
		return false
	}
	if g.DebugAdapter != SupportedDebugAdapter {
		logger.Error("Unsupported debug adapter '%s'", g.DebugAdapter)
		return false
	}
	return true
}

// gunicornCommand runs module, "<dotted module>:<wsgi callable>", from appDir.
func (g *PythonGenerator) gunicornCommand(module, appDir string) string {
	args := []string{"--timeout 600", "--access-logfile '-'", "--error-logfile '-'", "--workers=" + g.workerCount()}
	if g.BindPort != "" {
		args = append(args, "--bind="+DefaultHost+":"+g.BindPort)
	}
	if appDir != "" {
		args = append(args, "--chdir="+appDir)
	}
	return "GUNICORN_CMD_ARGS=\"" + strings.Join(args, " ") + "\" gunicorn " + module
}

func (g *PythonGenerator) ptvsdCommand(module, appDir string) string {
	wait := ""
	if g.DebugWait {
		wait = " --wait"
	}
	cmd := "python -m ptvsd --host " + DefaultHost + " --port " + DefaultPtvsdPort + wait + " -m " + module
	if appDir != "" {
		return "cd " + appDir + " && " + cmd
	}
	return cmd
}

func (g *PythonGenerator) workerCount() string {
	cpus := g.CPUCount
	if cpus <= 0 {
		cpus = runtime.NumCPU()
	}
	return strconv.Itoa(2*cpus + 1)
}

func pathExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
