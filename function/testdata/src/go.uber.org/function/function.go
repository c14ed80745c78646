package function

import "go.uber.org/function/check"

type T struct{ f int }

func guarded(o *T) int {
	if o != nil {
		return o.f
	}
	return 0
}

func literal() func(*T) int {
	return func(o *T) int {
		if o == nil {
			return o.f
		}
		return 0
	}
}

func asserted(o *T) int {
	check.NotNil(o)
	return o.f
}

func unchecked(o *T) int {
	return o.f
}

func flag(o *T) int {
	ok := o != nil
	if ok {
		return o.f
	}
	return 0
}
