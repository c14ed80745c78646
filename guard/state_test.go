//  Copyright (c) 2025 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package guard

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestState_SetGet(t *testing.T) {
	t.Parallel()

	s := newState(3)
	require.Equal(t, "[? ? ?]", s.String())

	s2 := s.Set(1, NonNil).Set(2, True)
	require.Equal(t, "[? nonnil true]", s2.String())
	// States are values: the original is untouched.
	require.Equal(t, Unknown, s.Get(1))
	require.Equal(t, s2, s2.Set(1, NonNil))
}

func TestJoinStates(t *testing.T) {
	t.Parallel()

	a := newState(3).Set(0, Nil).Set(1, True).Set(2, NonNil)
	b := newState(3).Set(0, NonNil).Set(1, True).Set(2, NonNil)
	require.Equal(t, "[? true nonnil]", joinStates(a, b).String())
}

func TestNegate(t *testing.T) {
	t.Parallel()

	require.Equal(t, False, negate(True))
	require.Equal(t, True, negate(False))
	require.Equal(t, Unknown, negate(Unknown))
}

func TestStateSet_AddDeduplicates(t *testing.T) {
	t.Parallel()

	a := newState(2).Set(0, Nil)
	b := newState(2).Set(0, NonNil)

	set := NewStateSet(a)
	require.False(t, set.Add(a))
	require.True(t, set.Add(b))
	require.Equal(t, []State{a, b}, set.States())

	other := NewStateSet(b, a)
	require.False(t, set.Union(other))
	require.Equal(t, 2, set.Len())
}

func TestStateSet_LimitMergesAndStaysMerged(t *testing.T) {
	t.Parallel()

	a := newState(2).Set(0, Nil).Set(1, True)
	b := newState(2).Set(0, NonNil).Set(1, True)
	c := newState(2).Set(0, NonNil).Set(1, False)

	set := NewStateSet(a, b)
	require.False(t, set.Limit(2))
	require.False(t, set.Merged())

	require.True(t, set.Add(c))
	require.True(t, set.Limit(2))
	require.True(t, set.Merged())
	require.Equal(t, []State{newState(2)}, set.States())

	// Further additions are joined into the single state.
	require.False(t, set.Add(a))
	require.Equal(t, 1, set.Len())
	require.False(t, set.Limit(2))
}

func TestStateSet_MergedJoinsNewStates(t *testing.T) {
	t.Parallel()

	a := newState(2).Set(0, Nil).Set(1, True)
	b := newState(2).Set(0, Nil).Set(1, False)
	c := newState(2).Set(0, NonNil).Set(1, False)

	set := NewStateSet(a, b)
	require.True(t, set.Limit(1))
	require.Equal(t, "{[nil ?]}", set.String())

	require.True(t, set.Add(c))
	require.Equal(t, "{[? ?]}", set.String())
}

func TestStateSet_Map(t *testing.T) {
	t.Parallel()

	unknown := newState(1)
	set := NewStateSet(unknown)

	split := set.Map(func(s State) []State {
		return []State{s.Set(0, True), s.Set(0, False)}
	})
	require.Equal(t, 2, split.Len())

	dropped := split.Map(func(s State) []State {
		if s.Get(0) == True {
			return nil
		}
		return []State{s}
	})
	require.Equal(t, []State{unknown.Set(0, False)}, dropped.States())
	require.True(t, NewStateSet().Empty())
}

func TestNarrow(t *testing.T) {
	t.Parallel()

	set := NewStateSet(
		newState(1),
		newState(1).Set(0, Nil),
		newState(1).Set(0, NonNil),
	)
	require.Equal(t, "{[nonnil]}", narrow(set, 0, NonNil).String())
	require.Equal(t, "{[nil]}", narrow(set, 0, Nil).String())
}
