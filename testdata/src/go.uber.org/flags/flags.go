// Package flags checks the default reporting policy: dereferences that are guaranteed to panic are
// always reported, and dereferences that are not guarded are reported only if the variable is
// checked against nil elsewhere in the function.
package flags

type T struct{ f int }

func (t T) get() int {
	return t.f
}

func consistent(o *T) int {
	if o == nil {
		return 0
	}
	return o.f
}

func inconsistent(o *T, b bool) int {
	if b && o != nil {
		println(o.f)
	}
	return o.f // want "`o` dereferenced in `o.f`: not nil guarded \\(checked against nil elsewhere in the function\\)"
}

func nilDeref() int {
	var o *T
	return o.f // want "`o` dereferenced in `o.f`: anti-nil guarded"
}

func method(o *T) int {
	if o != nil {
		println("not nil")
	}
	return o.get() // want "`o` dereferenced in `o.get`: not nil guarded"
}

func flagged(o *T) int {
	ok := o != nil
	if !ok {
		return o.f // want "anti-nil guarded"
	}
	return o.f
}

func copied(b bool) int {
	var o *T
	p := o
	if b {
		p = &T{}
	}
	if b {
		return p.f
	}
	return p.f // want "`p` dereferenced in `p.f`: anti-nil guarded"
}

func namedResult(b bool) (o *T) {
	if b {
		o = &T{}
	}
	if b {
		println(o.f)
	}
	return
}

func closure(o *T) func() int {
	return func() int {
		// Captured variables are not tracked.
		return o.f
	}
}

func literal() func(*T) int {
	return func(o *T) int {
		if o == nil {
			return o.f // want "anti-nil guarded"
		}
		return o.f
	}
}

func loop(ps []*T) int {
	var last *T
	for _, p := range ps {
		if p != nil {
			last = p
		}
	}
	if last == nil {
		println("none")
	}
	return last.f // want "`last` dereferenced in `last.f`: not nil guarded"
}

func funcValue(f func() int, b bool) int {
	if b {
		f = nil
	}
	if !b {
		return f()
	}
	return f() // want "`f` dereferenced in `f\\(\\)`: anti-nil guarded"
}

func suppressed(o *T) int {
	if o == nil {
		return o.f //nolint:nilguard
	}
	return 0
}

//nolint:nilguard // for the whole function
func suppressedFunc(o *T) int {
	if o == nil {
		return o.f
	}
	return 0
}

func addressTaken(o *T) int {
	if o == nil {
		reset(&o)
		return o.f
	}
	return 0
}

func reset(o **T) {
	*o = &T{}
}
