package ledger

import (
	"regexp"

	"github.com/Mindburn-Labs/actiongov/pkg/config"
)

// Redact walks payload recursively, replacing any value whose key matches a
// configured field-name pattern, or whose string value matches a configured
// value pattern, with cfg.Replacement. It returns the redacted copy and the
// sorted list of dotted field paths that were redacted. Redact is idempotent:
// running it again over its own output is a no-op, since every matched value
// is already the replacement string and the replacement itself never matches
// the field-name/value patterns it was chosen to avoid.
func Redact(payload map[string]interface{}, cfg config.RedactionConfig) (map[string]interface{}, []string) {
	fieldPatterns := cfg.CompiledFieldPatterns()
	valuePatterns := cfg.CompiledValuePatterns()

	var redactedPaths []string
	out := redactValue("", payload, fieldPatterns, valuePatterns, cfg.Replacement, &redactedPaths).(map[string]interface{})
	return out, redactedPaths
}

func redactValue(path string, v interface{}, fieldPatterns, valuePatterns []*regexp.Regexp, replacement string, paths *[]string) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, sub := range val {
			childPath := k
			if path != "" {
				childPath = path + "." + k
			}
			if matchesAny(fieldPatterns, k) {
				out[k] = replacement
				*paths = append(*paths, childPath)
				continue
			}
			out[k] = redactValue(childPath, sub, fieldPatterns, valuePatterns, replacement, paths)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = redactValue(path, item, fieldPatterns, valuePatterns, replacement, paths)
		}
		return out
	case string:
		if matchesAny(valuePatterns, val) {
			*paths = append(*paths, path)
			return replacement
		}
		return val
	default:
		return val
	}
}

func matchesAny(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}
