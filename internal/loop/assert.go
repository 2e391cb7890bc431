package loop

import "strings"

// assertExcerptLimit bounds how much actual output is attached to a failed
// assertion.
const assertExcerptLimit = 500

// CheckOutput evaluates each assertion against the captured device output.
// Matching is plain case-sensitive substring containment: no regex, no
// escaping. Pure, stateless, order-independent.
func CheckOutput(output string, assertions []Assertion) []AssertionResult {
	results := make([]AssertionResult, 0, len(assertions))
	for _, a := range assertions {
		r := AssertionResult{
			Name:     a.Name,
			Pattern:  a.Pattern,
			Required: a.Required,
			Passed:   strings.Contains(output, a.Pattern),
		}
		if !r.Passed {
			r.Excerpt = truncateOutput(output, assertExcerptLimit)
		}
		results = append(results, r)
	}
	return results
}

// RequiredPassed reports whether every required assertion passed.
// Non-required assertions are reported but never gate success.
func RequiredPassed(results []AssertionResult) bool {
	for _, r := range results {
		if r.Required && !r.Passed {
			return false
		}
	}
	return true
}

func truncateOutput(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "\n... (truncated)"
}
