package canonicalize

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestCanonicalHash_Idempotent checks that canonicalize is idempotent on
// strings already in canonical form, and that CanonicalHash is deterministic
// regardless of map insertion/iteration order.
func TestCanonicalHash_Idempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("CanonicalHash is stable under key permutation", prop.ForAll(
		func(keys []string, vals []int) bool {
			n := len(keys)
			if len(vals) < n {
				n = len(vals)
			}
			m1 := make(map[string]interface{}, n)
			m2 := make(map[string]interface{}, n)
			for i := 0; i < n; i++ {
				m1[keys[i]] = vals[i]
			}
			for i := n - 1; i >= 0; i-- {
				m2[keys[i]] = m1[keys[i]]
			}

			h1, err1 := CanonicalHash(m1)
			h2, err2 := CanonicalHash(m2)
			if err1 != nil || err2 != nil {
				return err1 == nil && err2 == nil
			}
			return h1 == h2
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.Int()),
	))

	properties.Property("JCS output re-encodes to the same bytes", prop.ForAll(
		func(k string, v int) bool {
			m := map[string]interface{}{k: v}
			b1, err1 := JCS(m)
			if err1 != nil {
				return false
			}
			var decoded interface{}
			dec := json.NewDecoder(bytes.NewReader(b1))
			dec.UseNumber()
			if err := dec.Decode(&decoded); err != nil {
				return false
			}
			b2, err2 := JCS(decoded)
			if err2 != nil {
				return false
			}
			return string(b1) == string(b2)
		},
		gen.AlphaString(),
		gen.Int(),
	))

	properties.TestingRun(t)
}
