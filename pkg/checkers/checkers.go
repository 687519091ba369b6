// Package checkers inspects a repo and the tool versions chosen for a build
// and produces advisory messages. Checkers never fail a build.
package checkers

import (
	"context"
	"fmt"
	"strings"

	"github.com/Microsoft/Oryx-sub000/pkg/logx"
	"github.com/Microsoft/Oryx-sub000/pkg/sourcerepo"
)

// Level is the severity of a checker message.
type Level int

// Message levels.
const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Message is one piece of advice for the user.
type Message struct {
	Level   Level
	Content string
}

func (m Message) String() string {
	return fmt.Sprintf("%s: %s", m.Level, m.Content)
}

// Checker reviews a repo and the tool versions used to build it.
type Checker interface {
	CheckSourceRepo(repo sourcerepo.SourceRepo) ([]Message, error)
	CheckToolVersions(tools map[string]string) ([]Message, error)
}

// Registration binds a checker to the platform it applies to.
type Registration struct {
	Platform string
	Name     string
	Checker  Checker
}

// Default returns the built-in checkers.
func Default() []Registration {
	return []Registration{
		{Platform: "nodejs", Name: "node-version", Checker: &NodeChecker{}},
		{Platform: "python", Name: "python-version", Checker: &PythonChecker{}},
	}
}

var logger = logx.NewLogger("checkers")

// Run executes the checkers registered for the selected platforms. A checker
// that errors or panics is logged and skipped; the others still run.
func Run(ctx context.Context, regs []Registration, platforms []string, repo sourcerepo.SourceRepo, tools map[string]string) []Message {
	selected := make(map[string]bool, len(platforms))
	for _, p := range platforms {
		selected[strings.ToLower(p)] = true
	}

	var messages []Message
	for _, reg := range regs {
		if !selected[strings.ToLower(reg.Platform)] {
			continue
		}
		logx.Debug(ctx, "checkers", "running checker %s", reg.Name)
		messages = append(messages, runOne(reg, "source repo", func() ([]Message, error) {
			return reg.Checker.CheckSourceRepo(repo)
		})...)
		messages = append(messages, runOne(reg, "tool versions", func() ([]Message, error) {
			return reg.Checker.CheckToolVersions(tools)
		})...)
	}
	return messages
}

func runOne(reg Registration, what string, check func() ([]Message, error)) (messages []Message) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Checker %s panicked while checking %s: %v", reg.Name, what, r)
			messages = nil
		}
	}()
	messages, err := check()
	if err != nil {
		logger.Error("Checker %s failed while checking %s: %v", reg.Name, what, err)
		return nil
	}
	return messages
}
