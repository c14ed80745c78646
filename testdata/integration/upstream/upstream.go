// Package upstream declares assertion functions whose contracts are inferred by nilguard and
// exported as facts to the downstream packages.
package upstream

import "fmt"

// T is a simple struct used by the downstream package.
type T struct {
	F int
}

// Assert panics if cond is false.
func Assert(cond bool) {
	if !cond {
		panic("assertion failed")
	}
}

// MustNotNil panics if t is nil.
func MustNotNil(t *T, msg string) {
	if t == nil {
		panic(fmt.Sprintf("unexpected nil: %s", msg))
	}
}

// Unchecked does not panic, hence it has no contract.
func Unchecked(t *T) bool {
	return t != nil
}

func unassigned() int {
	var t *T
	return t.F //want "`t` dereferenced in `t.F`: anti-nil guarded"
}
