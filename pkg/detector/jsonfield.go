package detector

import (
	"encoding/json"
)

// FieldState is the outcome of an optional field lookup in a config file.
type FieldState int

const (
	FieldAbsent FieldState = iota
	FieldPresent
	FieldMalformed
)

func (s FieldState) String() string {
	switch s {
	case FieldPresent:
		return "present"
	case FieldMalformed:
		return "malformed"
	default:
		return "absent"
	}
}

// LookupJSONString extracts the string at path from a JSON document. A
// document that does not parse, or a value that is not a string, is
// FieldMalformed; a missing key anywhere on the path is FieldAbsent.
func LookupJSONString(data []byte, path ...string) (string, FieldState) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", FieldMalformed
	}

	current := doc
	for _, key := range path {
		obj, ok := current.(map[string]any)
		if !ok {
			return "", FieldAbsent
		}
		next, ok := obj[key]
		if !ok || next == nil {
			return "", FieldAbsent
		}
		current = next
	}

	s, ok := current.(string)
	if !ok {
		return "", FieldMalformed
	}
	return s, FieldPresent
}
