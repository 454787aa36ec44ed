// Package policy holds ordered decision tables and the storage-side dedup and
// conflict policies.
package policy

// Rule is one entry of an ordered decision table. Apply reports whether the rule
// matched and, if so, the value it decides.
type Rule[T any] struct {
	Name  string
	Apply func() (T, bool)
}

// First evaluates rules in order and returns the value of the first rule that
// matches, along with that rule's name. Later rules are never evaluated.
func First[T any](rules ...Rule[T]) (T, string, bool) {
	for _, r := range rules {
		if v, ok := r.Apply(); ok {
			return v, r.Name, true
		}
	}
	var zero T
	return zero, "", false
}

// Always is a terminal rule that always matches with v.
func Always[T any](name string, v T) Rule[T] {
	return Rule[T]{Name: name, Apply: func() (T, bool) { return v, true }}
}

// When builds a rule that matches with v if cond returns true.
func When[T any](name string, cond func() bool, v T) Rule[T] {
	return Rule[T]{Name: name, Apply: func() (T, bool) {
		if cond() {
			return v, true
		}
		var zero T
		return zero, false
	}}
}
