// Package ignoredpkg1 tests nilguard's ability to ignore packages that are configured to be ignored.
package ignoredpkg1

func main() {
	// Directly dereferencing a nil pointer, but it is OK since this package is ignored.
	var p *int
	print(*p)
}
