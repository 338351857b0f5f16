// Package config loads and holds the runtime's tunable configuration:
// approval routing, risk-scoring weights, audit redaction rules, and the
// canonicalization/chain-hash version integers stamped on every audit entry.
package config

import "regexp"

// RedactionConfig names the field-name and value-pattern rules the ledger
// applies before hashing a payload.
type RedactionConfig struct {
	FieldNamePatterns []string // case-insensitive field-name substrings/regex
	ValuePatterns     []string // regex applied to string values regardless of field name
	Replacement       string
}

// DefaultRedactionConfig matches the factory field-name deny-list (password,
// secret, apiKey, access/auth token, private key, ssn) and flags email-like
// and bearer-token-shaped values.
func DefaultRedactionConfig() RedactionConfig {
	return RedactionConfig{
		FieldNamePatterns: []string{
			"(?i)password",
			"(?i)secret",
			"(?i)api[_-]?key",
			"(?i)access[_-]?token",
			"(?i)auth[_-]?token",
			"(?i)private[_-]?key",
			"(?i)ssn",
		},
		ValuePatterns: []string{
			`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`, // email-like
			`(?i)bearer\s+[A-Za-z0-9\-_.]+`,                    // bearer tokens
		},
		Replacement: "[REDACTED]",
	}
}

// CompiledFieldPatterns compiles FieldNamePatterns, skipping any that fail
// to compile (a malformed config entry must not crash redaction).
func (c RedactionConfig) CompiledFieldPatterns() []*regexp.Regexp {
	return compileAll(c.FieldNamePatterns)
}

// CompiledValuePatterns compiles ValuePatterns.
func (c RedactionConfig) CompiledValuePatterns() []*regexp.Regexp {
	return compileAll(c.ValuePatterns)
}

func compileAll(patterns []string) []*regexp.Regexp {
	var out []*regexp.Regexp
	for _, p := range patterns {
		if re, err := regexp.Compile(p); err == nil {
			out = append(out, re)
		}
	}
	return out
}
