package nolint

type T struct{ f int }

func single(o *T) int {
	return o.f //nolint:nilguard
}

//nolint:all // generated by hand
func block(o *T) int {
	if o == nil {
		return o.f
	}
	return 0
}

func others(o *T) int {
	return o.f //nolint:errcheck,gosec
}

func multiple(o *T) int {
	return o.f //nolint:errcheck, nilguard // explanation
}
