// Package suite simulates the real `github.com/stretchr/testify/suite` package.
package suite

import (
	"go.uber.org/hooks/github.com/stretchr/testify/assert"
	"go.uber.org/hooks/github.com/stretchr/testify/require"
)

type Suite struct {
	*assert.Assertions
	require *require.Assertions
}

func (s *Suite) Require() *require.Assertions { return s.require }

func (s *Suite) Error(err error, msgAndArgs ...interface{}) bool { return true }
