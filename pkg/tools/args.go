package tools

import "strings"

// argString reads a validated string argument; absent optional fields read as
// the empty string.
func argString(args map[string]any, name string) string {
	v, _ := args[name].(string)
	return v
}

// argInt reads a validated int argument, falling back to def when the
// optional field is absent.
func argInt(args map[string]any, name string, def int) int {
	if v, ok := args[name].(int); ok {
		return v
	}
	return def
}

// filterByKeyword keeps messages whose text contains keyword,
// case-insensitively.
func filterByKeyword(messages []map[string]any, keyword string) []map[string]any {
	needle := strings.ToLower(keyword)
	matched := make([]map[string]any, 0, len(messages))
	for _, msg := range messages {
		text, _ := msg["text"].(string)
		if strings.Contains(strings.ToLower(text), needle) {
			matched = append(matched, msg)
		}
	}
	return matched
}
