package check

// NotNil panics if the pointer is nil.
func NotNil[T any](p *T) {
	if p == nil {
		panic("unexpected nil")
	}
}
