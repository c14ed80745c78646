package simple

func flag(p *int) int {
	ok := p != nil
	if ok {
		return *p
	}
	return *p //want "`p` dereferenced in `\*p`: anti-nil guarded"
}

func negated(p *int) int {
	isNil := p == nil
	if !isNil {
		return *p
	}
	return 0
}

func loop(ps []*int) int {
	var last *int
	for _, p := range ps {
		last = p
	}
	if last == nil {
		return *last //want "`last` dereferenced in `\*last`: anti-nil guarded"
	}
	return *last
}

func callback(f func() int) int {
	if f == nil {
		return f() //want "`f` dereferenced in `f\(\)`: anti-nil guarded"
	}
	return f()
}
