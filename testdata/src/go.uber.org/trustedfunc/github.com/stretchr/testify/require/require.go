// Package require simulates the real `github.com/stretchr/testify/require` package.
package require

type TestingT interface {
	Errorf(format string, args ...interface{})
	FailNow()
}

type Assertions struct {
	t TestingT
}

func New(t TestingT) *Assertions { return &Assertions{t: t} }

func NotNil(t TestingT, object interface{}, msgAndArgs ...interface{})             {}
func Nil(t TestingT, object interface{}, msgAndArgs ...interface{})                {}
func NoError(t TestingT, err error, msgAndArgs ...interface{})                     {}
func Errorf(t TestingT, err error, msg string, args ...interface{})                {}
func True(t TestingT, value bool, msgAndArgs ...interface{})                       {}
func False(t TestingT, value bool, msgAndArgs ...interface{})                      {}
func Equal(t TestingT, expected, actual interface{}, msgAndArgs ...interface{})    {}
func NotEqual(t TestingT, expected, actual interface{}, msgAndArgs ...interface{}) {}
func Len(t TestingT, object interface{}, length int, msgAndArgs ...interface{})    {}

func (a *Assertions) NotNil(object interface{}, msgAndArgs ...interface{})     {}
func (a *Assertions) Nilf(object interface{}, msg string, args ...interface{}) {}
func (a *Assertions) True(value bool, msgAndArgs ...interface{})               {}
