/*
Package splitting checks the verdicts on a set of branching patterns over a boolean flag `b` and a
nilable `o`, where precise verdicts require splitting the control flow on the values of `b`.
Assertions are modeled by `assert`, which panics if its argument is false.

<nilguard report all>
*/
package splitting

type stringer interface{ String() string }

func assert(b bool) {
	if !b {
		panic("assertion failed")
	}
}

func M1(b bool, o stringer) {
	if b {
		if o != nil {
			o.String() // want ": nil guarded"
		}
	}
	if b {
		o.String() // want ": not nil guarded"
	}
	o.String() // want ": not nil guarded"
}

func M2(b bool, o stringer) string {
	if b {
		if o != nil {
			return o.String() // want ": nil guarded"
		}
	}
	if b {
		o.String() // want ": anti-nil guarded"
	}
	return o.String() // want ": not nil guarded"
}

func M3(b bool, o stringer) string {
	if b {
		if o == nil {
			return ""
		}
	}
	if b {
		o.String() // want ": nil guarded"
	}
	return o.String() // want ": not nil guarded"
}

func M4(b bool, o stringer) {
	if o != nil {
		if b {
			o.String() // want ": nil guarded"
		}
		if b {
			o.String() // want ": nil guarded"
		}
	}
}

func M5(b bool, o stringer) string {
	if b {
		o.String() // want ": not nil guarded"
	}
	if o != nil {
		o.String() // want ": nil guarded"
	}
	if b {
		o.String() // want ": not nil guarded"
	}
	return o.String() // want ": not nil guarded"
}

func M6(b bool, o stringer) string {
	if b {
		o.String() // want ": not nil guarded"
	}
	if o != nil {
		return o.String() // want ": nil guarded"
	}
	if b {
		o.String() // want ": anti-nil guarded"
	}
	return o.String() // want ": anti-nil guarded"
}

func M7(b bool, o stringer, b2 bool) string {
	if b {
		o.String() // want ": not nil guarded"
	}
	if o != nil {
		if b2 {
			return o.String() // want ": nil guarded"
		}
	}
	if b {
		o.String() // want ": not nil guarded"
	}
	return o.String() // want ": not nil guarded"
}

func M8(b bool, o stringer) {
	if b {
		assert(o != nil)
	}
	o.String() // want ": not nil guarded"
	if b {
		o.String() // want ": nil guarded"
	}
	o.String() // want ": not nil guarded"
}

func M9(b bool, o stringer) string {
	if b {
		assert(o == nil)
	}
	if b {
		o.String() // want ": anti-nil guarded"
	}
	return o.String() // want ": not nil guarded"
}

func M10(b bool, o stringer) {
	assert(o != nil)
	if b {
		o.String() // want ": nil guarded"
	}
	if b {
		o.String() // want ": nil guarded"
	}
}

func M11(b bool, o stringer) string {
	if b {
		o.String() // want ": not nil guarded"
	}
	assert(o != nil)
	o.String() // want ": nil guarded"
	if b {
		o.String() // want ": nil guarded"
	}
	return o.String() // want ": nil guarded"
}
