package utils

import (
	"path/filepath"
	"strings"
)

// AreSameDirectories reports whether two paths name the same directory,
// comparing their absolute forms case-sensitively.
func AreSameDirectories(dir1, dir2 string) bool {
	return absTrimmed(dir1) == absTrimmed(dir2)
}

// IsSubDirectory reports whether subDir lies strictly below parentDir. The
// comparison is per path segment and case-sensitive.
func IsSubDirectory(subDir, parentDir string) bool {
	parent := segments(parentDir)
	sub := segments(subDir)
	if len(sub) <= len(parent) {
		return false
	}
	for i := range parent {
		if parent[i] != sub[i] {
			return false
		}
	}
	return true
}

func segments(p string) []string {
	var out []string
	for _, s := range strings.Split(filepath.ToSlash(p), "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func absTrimmed(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		abs = filepath.Clean(p)
	}
	return strings.TrimRight(abs, string(filepath.Separator))
}
