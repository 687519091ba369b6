package utils

import (
	"regexp"
)

var urlUserInfoRE = regexp.MustCompile(`(?i)(https?|ftp|git|git\+ssh|git\+http|git\+https|git\+file)://([^\s/$.?#@]+)@[^\s/$.?#].[^\s]*`)

// ReplaceURLUserInfo masks the credentials of every URL in s with ***.
func ReplaceURLUserInfo(s string) string {
	matches := urlUserInfoRE.FindAllStringSubmatchIndex(s, -1)
	if matches == nil {
		return s
	}
	out := make([]byte, 0, len(s))
	pos := 0
	for _, m := range matches {
		// m[4], m[5] bound the userinfo group.
		out = append(out, s[pos:m[4]]...)
		out = append(out, "***"...)
		pos = m[5]
	}
	out = append(out, s[pos:]...)
	return string(out)
}

// Chunkify splits s into pieces of at most maxLength bytes.
func Chunkify(s string, maxLength int) []string {
	if maxLength <= 0 {
		return []string{s}
	}
	var chunks []string
	for i := 0; i < len(s); i += maxLength {
		end := i + maxLength
		if end > len(s) {
			end = len(s)
		}
		chunks = append(chunks, s[i:end])
	}
	return chunks
}
