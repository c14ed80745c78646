// Package assert simulates the real `github.com/stretchr/testify/assert` package.
package assert

type TestingT interface {
	Errorf(format string, args ...interface{})
}

type Assertions struct {
	t TestingT
}

func New(t TestingT) *Assertions { return &Assertions{t: t} }

func NotNil(t TestingT, object interface{}, msgAndArgs ...interface{}) bool { return true }
func Falsef(t TestingT, value bool, msg string, args ...interface{}) bool   { return true }

func (a *Assertions) Nil(object interface{}, msgAndArgs ...interface{}) bool { return true }
func (a *Assertions) False(value bool, msgAndArgs ...interface{}) bool       { return true }
func (a *Assertions) Equal(expected, actual interface{}, msgAndArgs ...interface{}) bool {
	return true
}
