package handler

import "strings"

// stringVar returns the first non-empty string value found under any of the
// candidate keys.
func stringVar(vars map[string]interface{}, keys ...string) string {
	if vars == nil {
		return ""
	}
	for _, key := range keys {
		if s, ok := vars[key].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

// stringListVar normalizes the first value found under any of the candidate
// keys into a list of strings. Traffic reports these fields as a single
// string, a JSON array of strings, or a mixed array; non-string elements
// and empties are dropped.
func stringListVar(vars map[string]interface{}, keys ...string) []string {
	if vars == nil {
		return nil
	}
	for _, key := range keys {
		switch v := vars[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return []string{s}
			}
		case []interface{}:
			out := make([]string, 0, len(v))
			for _, item := range v {
				if s, ok := item.(string); ok {
					if s = strings.TrimSpace(s); s != "" {
						out = append(out, s)
					}
				}
			}
			if len(out) > 0 {
				return out
			}
		case []string:
			if len(v) > 0 {
				return v
			}
		}
	}
	return nil
}
