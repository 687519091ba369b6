// Package sourcerepo provides a read-only view over an application source tree.
// Path matching is case-sensitive; nothing in this package mutates the tree.
package sourcerepo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// SourceRepo is the read-only contract every detector and platform consumes.
// Path segments are joined and interpreted relative to the repo root.
type SourceRepo interface {
	RootPath() string
	FileExists(paths ...string) bool
	DirExists(paths ...string) bool
	ReadFile(paths ...string) (string, error)
	// EnumerateFiles returns root-relative, slash-separated paths of regular
	// files whose name matches pattern, in lexical order.
	EnumerateFiles(pattern string, recursive bool) ([]string, error)
}

// Repo is a SourceRepo backed by an fs.FS.
type Repo struct {
	root string
	fsys fs.FS
}

// New creates a repo over the directory at root.
func New(root string) *Repo {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	return &Repo{root: abs, fsys: os.DirFS(abs)}
}

// NewFS creates a repo over fsys, reporting root as its identity. Used with
// testing/fstest.MapFS for in-memory repos.
func NewFS(root string, fsys fs.FS) *Repo {
	return &Repo{root: root, fsys: fsys}
}

// RootPath returns the identity of the repo, the absolute root for on-disk repos.
func (r *Repo) RootPath() string {
	return r.root
}

// FullPath returns the on-disk path of a repo-relative location.
func (r *Repo) FullPath(paths ...string) string {
	return filepath.Join(append([]string{r.root}, paths...)...)
}

func (r *Repo) stat(paths ...string) (fs.FileInfo, bool) {
	name, ok := relPath(paths...)
	if !ok {
		return nil, false
	}
	info, err := fs.Stat(r.fsys, name)
	if err != nil {
		return nil, false
	}
	return info, true
}

// FileExists reports whether a regular file exists at the joined path.
func (r *Repo) FileExists(paths ...string) bool {
	info, ok := r.stat(paths...)
	return ok && info.Mode().IsRegular()
}

// DirExists reports whether a directory exists at the joined path.
func (r *Repo) DirExists(paths ...string) bool {
	info, ok := r.stat(paths...)
	return ok && info.IsDir()
}

// ReadFile returns the content of the file at the joined path.
func (r *Repo) ReadFile(paths ...string) (string, error) {
	name, ok := relPath(paths...)
	if !ok {
		return "", fmt.Errorf("invalid repo path %q", strings.Join(paths, "/"))
	}
	data, err := fs.ReadFile(r.fsys, name)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", name, err)
	}
	return string(data), nil
}

// EnumerateFiles lists files matching pattern at the root, or anywhere in the
// tree when recursive is set.
func (r *Repo) EnumerateFiles(pattern string, recursive bool) ([]string, error) {
	if pattern == "" {
		return nil, errors.New("pattern cannot be empty")
	}
	glob := pattern
	if recursive {
		glob = "**/" + pattern
	}

	matches, err := doublestar.Glob(r.fsys, glob, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate %s: %w", glob, err)
	}
	sort.Strings(matches)
	return matches, nil
}

// relPath converts path segments to an fs.FS name. Absolute segments and
// escapes above the root are rejected.
func relPath(paths ...string) (string, bool) {
	parts := make([]string, 0, len(paths))
	for _, p := range paths {
		parts = append(parts, filepath.ToSlash(p))
	}
	name := path.Clean(path.Join(parts...))
	if name == "" || name == "." {
		return ".", true
	}
	if !fs.ValidPath(name) {
		return "", false
	}
	return name, true
}
