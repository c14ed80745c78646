package upstream

// Assert panics if the condition does not hold.
func Assert(cond bool) {
	if !cond {
		panic("assertion failed")
	}
}

func mustNotNil(p *int) {
	if p == nil {
		panic("nil")
	}
}

// Use uses the unexported function.
func Use(p *int) {
	mustNotNil(p)
}
