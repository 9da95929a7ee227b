package generator

import (
	"errors"
	"regexp"
	"strings"
)

var fencePattern = regexp.MustCompile("```[a-zA-Z]*")

var errNoJSONObject = errors.New("no JSON object found in provider output")

// Sanitize strips markdown code fences and slices the text from the first '{'
// to the last '}'.
func Sanitize(raw string) (string, error) {
	cleaned := strings.TrimSpace(fencePattern.ReplaceAllString(raw, ""))

	first := strings.Index(cleaned, "{")
	last := strings.LastIndex(cleaned, "}")
	if first == -1 || last == -1 || last < first {
		return "", errNoJSONObject
	}
	return cleaned[first : last+1], nil
}
