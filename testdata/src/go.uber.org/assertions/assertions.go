// Package assertions checks that the contracts of assertion functions, inferred or handwritten,
// split the control flow in downstream packages.
package assertions

import "go.uber.org/assertions/debug"

type T struct{ f int }

func asserted(o *T) int {
	debug.Assert(o != nil)
	return o.f
}

func antiAsserted(o *T) int {
	debug.Assert(o == nil)
	return o.f // want "`o` dereferenced in `o.f`: anti-nil guarded"
}

func generic(o *T, b bool) int {
	if b {
		debug.NotNil(o)
	}
	return o.f // want "`o` dereferenced in `o.f`: not nil guarded"
}

func handwritten(o *T) int {
	debug.Check(o)
	return o.f
}

func flagAssert(o *T, b bool) {
	debug.Assert(!b || o != nil)
	if b {
		println(o.f)
	}
	println(o.f) // want "`o` dereferenced in `o.f`: not nil guarded"
}

func local(o *T) int {
	mustNotNil(o)
	return o.f
}

func mustNotNil(o *T) {
	if o == nil {
		panic("nil")
	}
}

func localNil(o *T) int {
	mustNil(o)
	return o.f // want "`o` dereferenced in `o.f`: anti-nil guarded"
}

func mustNil(o *T) {
	if o != nil {
		panic("not nil")
	}
}
