// Package utils provides output formatting, path and string helpers shared by the CLI and the build pipeline.
package utils

import (
	"strings"
)

const headingSuffix = ": "

type definition struct {
	title string
	value string
}

// DefinitionListFormatter prints titled values with the titles padded to a
// common width. Multi-line values are indented under the first line.
type DefinitionListFormatter struct {
	rows []definition
}

// AddDefinition appends a row. Rows with a blank title are dropped.
func (f *DefinitionListFormatter) AddDefinition(title, value string) {
	if strings.TrimSpace(title) == "" {
		return
	}
	f.rows = append(f.rows, definition{title: title, value: value})
}

// AddDefinitions appends one row per entry of values, in the order of keys.
func (f *DefinitionListFormatter) AddDefinitions(keys []string, values map[string]string) {
	for _, k := range keys {
		f.AddDefinition(k, values[k])
	}
}

// String renders the list. A blank value leaves its title without a line break.
func (f *DefinitionListFormatter) String() string {
	width := 0
	for _, r := range f.rows {
		if len(r.title) > width {
			width = len(r.title)
		}
	}
	width++

	var b strings.Builder
	indent := strings.Repeat(" ", width+len(headingSuffix))
	for _, r := range f.rows {
		b.WriteString(r.title)
		b.WriteString(strings.Repeat(" ", width-len(r.title)))
		b.WriteString(headingSuffix)

		if strings.TrimSpace(r.value) == "" {
			continue
		}
		lines := strings.Split(strings.ReplaceAll(r.value, "\r\n", "\n"), "\n")
		b.WriteString(lines[0])
		b.WriteString("\n")
		for _, line := range lines[1:] {
			b.WriteString(indent)
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return b.String()
}
