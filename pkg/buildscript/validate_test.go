package buildscript

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Microsoft/Oryx-sub000/pkg/oryxerr"
	"github.com/Microsoft/Oryx-sub000/pkg/sourcerepo"
)

func TestValidateDirectories(t *testing.T) {
	src := t.TempDir()
	other := t.TempDir()

	require.NoError(t, ValidateDirectories(src, other, filepath.Join(other, "out")))

	err := ValidateDirectories(filepath.Join(src, "missing"), "", "")
	var usage *oryxerr.InvalidUsageError
	assert.ErrorAs(t, err, &usage)

	err = ValidateDirectories(src, filepath.Join(src, "sub", "dir"), "")
	require.ErrorAs(t, err, &usage)
	assert.Contains(t, err.Error(), "cannot be a sub-directory of source directory")

	assert.Error(t, ValidateDirectories(src, src, ""))

	// A sibling sharing the source's name as a prefix is not a sub-directory.
	assert.NoError(t, ValidateDirectories(src, src+"-intermediate", ""))

	file := filepath.Join(other, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	assert.Error(t, ValidateDirectories(src, "", file))
}

func TestContextValidate(t *testing.T) {
	src := t.TempDir()
	repo := sourcerepo.New(src)

	c := &Context{SourceRepo: repo, LanguageVersion: "3.8"}
	err := c.Validate()
	require.Error(t, err)
	assert.Equal(t, "Cannot use language version without specifying language name also.", err.Error())

	c = &Context{SourceRepo: repo, PreBuildCommand: "echo", PreBuildScriptPath: "/pre.sh"}
	assert.Error(t, c.Validate())

	c = &Context{SourceRepo: repo, Language: "python", LanguageVersion: "3.8", PostBuildCommand: "echo done"}
	assert.NoError(t, c.Validate())
}

func TestHasDestinationDir(t *testing.T) {
	c := &Context{SourceRepo: sourcerepo.New("/repo")}
	assert.False(t, c.HasDestinationDir())
	c.DestinationDir = "/repo"
	assert.False(t, c.HasDestinationDir())
	c.DestinationDir = "/out"
	assert.True(t, c.HasDestinationDir())
}
