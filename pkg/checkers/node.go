package checkers

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/Microsoft/Oryx-sub000/pkg/detector"
	"github.com/Microsoft/Oryx-sub000/pkg/sourcerepo"
)

// NodeLtsVersion is the oldest Node release still in long-term support.
const NodeLtsVersion = "12.16.1"

var sudoRE = regexp.MustCompile(`(^|[\s;&|])sudo\s`)

// NodeChecker warns about outdated Node versions and npm scripts using sudo.
type NodeChecker struct{}

// CheckSourceRepo flags package.json scripts that call sudo.
func (c *NodeChecker) CheckSourceRepo(repo sourcerepo.SourceRepo) ([]Message, error) {
	if !repo.FileExists("package.json") {
		return nil, nil
	}
	content, err := repo.ReadFile("package.json")
	if err != nil {
		return nil, err
	}
	scripts := detector.PackageJSONScripts(content)
	names := make([]string, 0, len(scripts))
	for name := range scripts {
		names = append(names, name)
	}
	sort.Strings(names)

	var messages []Message
	for _, name := range names {
		if sudoRE.MatchString(scripts[name]) {
			messages = append(messages, Message{
				Level:   LevelWarning,
				Content: fmt.Sprintf("The npm script '%s' uses 'sudo', which is not available in the build container.", name),
			})
		}
	}
	return messages, nil
}

// CheckToolVersions warns when node is older than the LTS release.
func (c *NodeChecker) CheckToolVersions(tools map[string]string) ([]Message, error) {
	return checkMinimumVersion("node", tools["node"], NodeLtsVersion)
}
