package hooks

import (
	"log"
	"os"
	"runtime"
	"testing"

	"go.uber.org/hooks/github.com/stretchr/testify/assert"
	"go.uber.org/hooks/github.com/stretchr/testify/require"
	"go.uber.org/hooks/github.com/stretchr/testify/suite"
	"stubs/go.uber.org/zap"
)

func testifyFuncs(t *testing.T, p *int, err error, ok bool) {
	require.NotNil(t, p)          // want "split on: p != nil"
	require.Nil(t, p)             // want "split on: p == nil"
	require.NoError(t, err)       // want "split on: err == nil"
	require.Errorf(t, err, "msg") // want "split on: err != nil"
	require.True(t, ok)           // want "split on: ok"
	require.False(t, ok)          // want "split on: !ok"
	require.Equal(t, nil, p)      // want "split on: p == nil"
	require.NotEqual(t, p, nil)   // want "split on: p != nil"
	require.Equal(t, p, p)
	require.Len(t, p, 1)
	assert.NotNil(t, p)         // want "split on: p != nil"
	assert.Falsef(t, ok, "msg") // want "split on: !ok"
}

func testifyMethods(t *testing.T, s *suite.Suite, p *int, err error, ok bool) {
	r := require.New(t)
	r.NotNil(p)      // want "split on: p != nil"
	r.Nilf(p, "msg") // want "split on: p == nil"
	r.True(ok)       // want "split on: ok"
	a := assert.New(t)
	a.Nil(p)              // want "split on: p == nil"
	a.False(ok)           // want "split on: !ok"
	a.Equal(p, nil)       // want "split on: p == nil"
	s.Nil(p)              // want "split on: p == nil"
	s.Error(err)          // want "split on: err != nil"
	s.Require().NotNil(p) // want "split on: p != nil"
}

func noReturn(t testing.TB, l *zap.Logger, logger *log.Logger) {
	panic("boom")             // want "no return"
	os.Exit(1)                // want "no return"
	log.Fatal("fatal")        // want "no return"
	log.Panicf("%s", "panic") // want "no return"
	logger.Fatalln("fatal")   // want "no return"
	runtime.Goexit()          // want "no return"
	t.Fatal("fatal")          // want "no return"
	t.SkipNow()               // want "no return"
	l.Fatal("fatal")          // want "no return"
	l.Sugar().Fatalw("fatal") // want "no return"
	l.Info("info")
	l.Sugar().Infow("info")
	log.Print("print")
	t.Log("log")
}

func shadowed() {
	panic := func(string) {}
	panic("not the builtin")
}

func check(p *int) {}

func generic[T any](p *T, ok bool) {}

func contracts(p *int, ok bool) {
	check(p)              // want "contract: nonnil\\(0\\)"
	generic[int](p, ok)   // want "contract: nonnil\\(0\\),true\\(1\\)"
	(generic[int])(p, ok) // want "contract: nonnil\\(0\\),true\\(1\\)"
	f := check
	f(p)
}
