// want package:".*"
package assertfunc

import (
	"log"
	"os"

	"go.uber.org/assertfunc/upstream"
)

func use() {
	upstream.Assert(true)
}

func AssertTrue(cond bool) { // expect_contracts: true(0)
	if !cond {
		panic("assertion failed")
	}
}

func AssertFalse(cond bool) { // expect_contracts: false(0)
	if cond {
		panic("assertion failed")
	}
}

func MustNotNil(msg string, p *int) { // expect_contracts: nonnil(1)
	if p == nil {
		log.Fatal(msg)
	}
}

func MustNil(p *int) { // expect_contracts: nil(0)
	if p != nil {
		panic("not nil")
	}
}

func Both(a, b *int) { // expect_contracts: nonnil(0) nonnil(1)
	if a == nil || b == nil {
		panic("nil")
	}
}

func Sequence(a *int, ok bool) { // expect_contracts: nonnil(0) true(1)
	if a == nil {
		panic("nil")
	}
	println("checked")
	if !ok {
		panic("not ok")
	}
}

func exit(p *int) { // expect_contracts: nonnil(0)
	if p == nil {
		os.Exit(1)
	}
}

// assert(nonnil(0)) assert(true(1))
func Handwritten(p *int, ok bool) { // expect_contracts: nonnil(0) true(1)
	upstream.Use(p)
}

func NotNilInterface(o any) { // expect_contracts:
	if o == nil {
		panic("nil")
	}
}

func ReturnsEarly(p *int, skip bool) { // expect_contracts:
	if skip {
		return
	}
	if p == nil {
		panic("nil")
	}
}

func Reassigned(p *int) { // expect_contracts:
	p = new(int)
	if p == nil {
		panic("nil")
	}
}

func WithElse(p *int) { // expect_contracts:
	if p == nil {
		panic("nil")
	} else {
		println(*p)
	}
}

func Variadic(ps ...*int) { // expect_contracts:
	if ps == nil {
		panic("nil")
	}
}

func NoFailure(p *int) { // expect_contracts:
	if p == nil {
		println("nil")
	}
}

func Lenient(p *int, lenient bool) { // expect_contracts:
	if p == nil {
		if lenient {
			return
		}
		panic("nil")
	}
}

func SkipWithGoto(p *int, skip bool) { // expect_contracts:
	if skip {
		goto end
	}
	if p == nil {
		panic("nil")
	}
end:
	println("done")
}

func LabeledBreak(p *int, ps []*int) { // expect_contracts:
	if p == nil {
	loop:
		for _, q := range ps {
			if q != nil {
				break loop
			}
		}
		panic("nil")
	}
}

func CheckedThenLabel(p *int, ok bool) { // expect_contracts: nonnil(0)
	if p == nil {
		panic("nil")
	}
retry:
	if !ok {
		ok = true
		goto retry
	}
}
