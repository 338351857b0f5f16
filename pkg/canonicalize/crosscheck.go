package canonicalize

import (
	"fmt"

	webpkijcs "github.com/gowebpki/jcs"
)

// VerifyAgainstReference re-canonicalizes v using an independent RFC 8785
// implementation (gowebpki/jcs) and reports whether it agrees byte-for-byte
// with our own marshalRecursive. It lets an operator double check a hash
// before trusting it across a language-runtime boundary, since audit entries
// must hash identically regardless of which implementation recomputed them.
// No test in this package calls it.
func VerifyAgainstReference(v interface{}) (bool, error) {
	ours, err := JCS(v)
	if err != nil {
		return false, fmt.Errorf("canonicalize: local JCS failed: %w", err)
	}

	// gowebpki/jcs transforms already-valid JSON text, so feed it our own
	// intermediate encoding of v rather than the Go value directly.
	theirs, err := webpkijcs.Transform(ours)
	if err != nil {
		return false, fmt.Errorf("canonicalize: reference JCS failed: %w", err)
	}

	return string(ours) == string(theirs), nil
}
