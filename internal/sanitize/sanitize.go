// Package sanitize scrubs payloads destined for raw-payload archival
// columns. It is shared with the platform's analytics pipeline, so it only
// depends on decoded JSON values, not on any event type.
package sanitize

import (
	"regexp"
	"sort"
	"strings"
)

// Fixed redaction tokens. Redacted output is still valid JSON and keeps the
// key present so downstream consumers can see what was removed.
const (
	RedactedValue = "[REDACTED]"
	RedactedEmail = "[REDACTED:email]"
	RedactedPhone = "[REDACTED:phone]"
)

// defaultSensitiveKeys are key substrings whose values are always redacted
// wholesale, regardless of type.
var defaultSensitiveKeys = []string{
	"email",
	"phone",
	"first_name",
	"last_name",
	"full_name",
	"transcript",
	"perception",
	"recording",
	"media_url",
	"address",
	"password",
	"secret",
	"token",
	"authorization",
}

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?\d[\d\s\-().]{6,}\d`)
)

// Options bound the sanitizer's output. Zero limits fall back to the
// defaults; extra sensitive keys extend, never replace, the built-in set.
type Options struct {
	SensitiveKeys []string
	MaxArrayLen   int
	MaxObjectKeys int
}

const (
	defaultMaxArrayLen   = 50
	defaultMaxObjectKeys = 100
)

// Sanitizer applies redaction and truncation to decoded JSON values.
type Sanitizer struct {
	sensitiveKeys []string
	maxArrayLen   int
	maxObjectKeys int
}

// New builds a Sanitizer from options.
func New(opts Options) *Sanitizer {
	s := &Sanitizer{
		sensitiveKeys: defaultSensitiveKeys,
		maxArrayLen:   opts.MaxArrayLen,
		maxObjectKeys: opts.MaxObjectKeys,
	}
	if s.maxArrayLen <= 0 {
		s.maxArrayLen = defaultMaxArrayLen
	}
	if s.maxObjectKeys <= 0 {
		s.maxObjectKeys = defaultMaxObjectKeys
	}
	for _, key := range opts.SensitiveKeys {
		s.sensitiveKeys = append(s.sensitiveKeys, strings.ToLower(key))
	}
	return s
}

// Sanitize recursively walks a decoded JSON value. Values under sensitive
// keys are replaced with a fixed token, email and phone substrings inside
// free text are replaced in place, arrays and objects are truncated to the
// configured bounds. A nil stays nil and keys are never dropped, only
// redacted.
func (s *Sanitizer) Sanitize(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		return s.sanitizeObject(v)
	case []interface{}:
		return s.sanitizeArray(v)
	case string:
		return scrubText(v)
	default:
		// Numbers, booleans and nulls pass through unchanged.
		return v
	}
}

func (s *Sanitizer) sanitizeObject(obj map[string]interface{}) map[string]interface{} {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > s.maxObjectKeys {
		keys = keys[:s.maxObjectKeys]
	}

	out := make(map[string]interface{}, len(keys))
	for _, k := range keys {
		if obj[k] == nil {
			out[k] = nil
			continue
		}
		if s.isSensitiveKey(k) {
			out[k] = RedactedValue
			continue
		}
		out[k] = s.Sanitize(obj[k])
	}
	return out
}

func (s *Sanitizer) sanitizeArray(arr []interface{}) []interface{} {
	if len(arr) > s.maxArrayLen {
		arr = arr[:s.maxArrayLen]
	}
	out := make([]interface{}, len(arr))
	for i, item := range arr {
		if item == nil {
			out[i] = nil
			continue
		}
		out[i] = s.Sanitize(item)
	}
	return out
}

func (s *Sanitizer) isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, sensitive := range s.sensitiveKeys {
		if strings.Contains(lower, sensitive) {
			return true
		}
	}
	return false
}

// scrubText replaces email-like and phone-like substrings inside free text
// while preserving the rest of the string.
func scrubText(text string) string {
	scrubbed := emailPattern.ReplaceAllString(text, RedactedEmail)
	return phonePattern.ReplaceAllString(scrubbed, RedactedPhone)
}
