// Package queries produces the search strings the orchestrator issues
// through the evidence verifier. All generators are pure functions of the
// names involved, and preserve a stable order so callers (and tests) can
// assert determinism.
package queries

import "fmt"

// Direct returns the single query used for a direct A-B check.
func Direct(a, b string) string {
	return fmt.Sprintf("%s %s", a, b)
}

// Discovery returns the small fan-out of queries used to discover third
// parties co-appearing with a.
func Discovery(a string) []string {
	return []string{
		a,
		a + " event",
		a + " with",
		a + " meeting",
	}
}

// Bridge returns the queries used to verify a bridge candidate c against a.
func Bridge(a, c string) []string {
	return []string{
		fmt.Sprintf("%s %s", a, c),
		fmt.Sprintf("%s and %s", a, c),
		fmt.Sprintf("%s %s event", a, c),
	}
}

// Verification returns the direct-query variants used when connecting a
// bridge candidate c to the target, emphasizing co-presence.
func Verification(c, target string) []string {
	return []string{
		fmt.Sprintf("%s %s", c, target),
		fmt.Sprintf("%s and %s together", c, target),
	}
}
