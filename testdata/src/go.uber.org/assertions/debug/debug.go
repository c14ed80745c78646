// Package debug provides assertion functions whose contracts are exported to downstream packages.
package debug

// Assert panics if the condition does not hold.
func Assert(cond bool) {
	if !cond {
		panic("assertion failed")
	}
}

// NotNil panics if the pointer is nil.
func NotNil[T any](p *T) {
	if p == nil {
		panic("unexpected nil")
	}
}

// Check reports a failure if the value is nil, which never returns.
// assert(nonnil(0))
func Check(v any) {
	fail(v == nil)
}

func fail(failed bool) {
	if failed {
		panic("check failed")
	}
}
