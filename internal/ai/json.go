package ai

import "strings"

// CleanJSONString removes markdown code fences and any prose around the outermost
// JSON object. It returns "" when no object is present.
func CleanJSONString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "```json")
	input = strings.TrimPrefix(input, "```")
	input = strings.TrimSuffix(input, "```")
	input = strings.TrimSpace(input)

	start := strings.Index(input, "{")
	end := strings.LastIndex(input, "}")
	if start == -1 || end < start {
		return ""
	}
	return input[start : end+1]
}
