package checkers

import (
	"fmt"

	"github.com/Microsoft/Oryx-sub000/pkg/sourcerepo"
	"github.com/Microsoft/Oryx-sub000/pkg/versioning"
)

// PythonLtsVersion is the oldest Python release still receiving fixes.
const PythonLtsVersion = "3.8.0"

// PythonChecker warns about outdated Python versions.
type PythonChecker struct{}

// CheckSourceRepo has nothing to check for Python.
func (c *PythonChecker) CheckSourceRepo(_ sourcerepo.SourceRepo) ([]Message, error) {
	return nil, nil
}

// CheckToolVersions warns when python is older than the LTS release.
func (c *PythonChecker) CheckToolVersions(tools map[string]string) ([]Message, error) {
	return checkMinimumVersion("python", tools["python"], PythonLtsVersion)
}

func checkMinimumVersion(tool, used, minimum string) ([]Message, error) {
	if used == "" {
		return nil, nil
	}
	cmp, err := versioning.CompareVersions(used, minimum)
	if err != nil {
		return nil, fmt.Errorf("cannot compare %s version %q: %w", tool, used, err)
	}
	if cmp >= 0 {
		return nil, nil
	}
	return []Message{{
		Level: LevelWarning,
		Content: fmt.Sprintf("An outdated version of %s was detected (%s). Consider updating. "+
			"Versions supported by Oryx: https://github.com/microsoft/Oryx", tool, used),
	}}, nil
}
