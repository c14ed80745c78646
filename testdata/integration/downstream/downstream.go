package downstream

import "go.uber.org/nilguard/integration/upstream"

func asserted(t *upstream.T) int {
	upstream.Assert(t != nil)
	return t.F
}

func antiAsserted(t *upstream.T) int {
	upstream.Assert(t == nil)
	return t.F //want "`t` dereferenced in `t.F`: anti-nil guarded"
}

func mustNotNil(t *upstream.T) int {
	upstream.MustNotNil(t, "t")
	return t.F
}

func unchecked(t *upstream.T) int {
	upstream.Unchecked(t)
	return t.F
}

func inconsistent(t *upstream.T) int {
	if t != nil {
		print(t.F)
	}
	return t.F //want "`t` dereferenced in `t.F`: not nil guarded"
}

func suppressed(t *upstream.T) int {
	if t == nil {
		print("nil")
	}
	return t.F //nolint:nilguard
}
