package harness

import (
	"fmt"
	"slices"
	"sort"
)

// EvaluateAssertions checks every assertion against the final state and
// returns one message per mismatch. An empty slice means all passed.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		state, ok := result.Final[a.Character]
		if !ok {
			errs = append(errs, fmt.Sprintf("assertions[%d]: unknown character %q", i, a.Character))
			continue
		}
		for _, msg := range checkState(a, state) {
			errs = append(errs, fmt.Sprintf("assertions[%d] %s: %s", i, a.Character, msg))
		}
	}
	return errs
}

func checkState(a Assertion, s CharacterState) []string {
	var errs []string
	checkInt := func(name string, want *int64, got int64) {
		if want != nil && *want != got {
			errs = append(errs, fmt.Sprintf("%s = %d, want %d", name, got, *want))
		}
	}
	checkSet := func(name string, want *[]string, got []string) {
		if want == nil {
			return
		}
		w := slices.Clone(*want)
		sort.Strings(w)
		if !slices.Equal(w, got) {
			errs = append(errs, fmt.Sprintf("%s = %v, want %v", name, got, w))
		}
	}

	checkInt("px_tot", a.Total, s.Total)
	checkInt("px_used", a.Used, s.Used)
	checkInt("px_avail", a.Available, s.Available)
	checkSet("owned", a.Owned, s.Owned)
	checkSet("free", a.Free, s.Free)

	if a.Offers != nil {
		got := make([]string, len(s.Offers))
		for i, o := range s.Offers {
			got[i] = o.Ability
		}
		// Offer order is significant.
		if !slices.Equal(*a.Offers, got) {
			errs = append(errs, fmt.Sprintf("offers = %v, want %v", got, *a.Offers))
		}
	}

	keys := make([]string, 0, len(a.Fields))
	for k := range a.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if got := s.Fields[k]; got != a.Fields[k] {
			errs = append(errs, fmt.Sprintf("fields.%s = %q, want %q", k, got, a.Fields[k]))
		}
	}
	return errs
}
