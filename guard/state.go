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
	"strings"

	"go.uber.org/nilguard/util/orderedmap"
)

// Value is the abstract value of a tracked variable in one split context. Nilable variables take
// Unknown, Nil or NonNil; boolean variables take Unknown, True or False.
type Value uint8

const (
	// Unknown means nothing is known about the variable.
	Unknown Value = iota
	// Nil means the variable is nil.
	Nil
	// NonNil means the variable is not nil.
	NonNil
	// True means the boolean variable is true.
	True
	// False means the boolean variable is false.
	False
)

// String returns the string representation of the value.
func (v Value) String() string {
	switch v {
	case Nil:
		return "nil"
	case NonNil:
		return "nonnil"
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "?"
	}
}

func boolValue(b bool) Value {
	if b {
		return True
	}
	return False
}

func nilValue(isNil bool) Value {
	if isNil {
		return Nil
	}
	return NonNil
}

func negate(v Value) Value {
	switch v {
	case True:
		return False
	case False:
		return True
	default:
		return Unknown
	}
}

func join(a, b Value) Value {
	if a == b {
		return a
	}
	return Unknown
}

// State is one split context: the i-th byte is the Value of the i-th tracked variable. It is a
// string so that it can be used as a map key.
type State string

// newState returns a state where all n variables are Unknown.
func newState(n int) State {
	return State(make([]byte, n))
}

// Get returns the value of the i-th variable.
func (s State) Get(i int) Value {
	return Value(s[i])
}

// Set returns a copy of the state with the i-th variable set to v.
func (s State) Set(i int, v Value) State {
	if s.Get(i) == v {
		return s
	}
	b := []byte(s)
	b[i] = byte(v)
	return State(b)
}

// String returns the string representation of the state, e.g., "[nonnil ? true]".
func (s State) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i := range len(s) {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(s.Get(i).String())
	}
	sb.WriteByte(']')
	return sb.String()
}

// joinStates returns the pointwise join of the two states of the same length.
func joinStates(a, b State) State {
	out := a
	for i := range len(a) {
		out = out.Set(i, join(a.Get(i), b.Get(i)))
	}
	return out
}

// StateSet is an ordered set of split contexts. Once merged by Limit, the set holds a single
// state and every state added later is joined into it.
type StateSet struct {
	states *orderedmap.OrderedMap[State, struct{}]
	merged bool
}

// NewStateSet returns a set holding the given states.
func NewStateSet(states ...State) *StateSet {
	s := &StateSet{states: orderedmap.New[State, struct{}]()}
	for _, state := range states {
		s.Add(state)
	}
	return s
}

// Len returns the number of split contexts in the set.
func (s *StateSet) Len() int {
	return s.states.Len()
}

// Empty returns true if no context is in the set, i.e., the code is unreachable.
func (s *StateSet) Empty() bool {
	return s.states.Len() == 0
}

// Merged returns true if the set has been merged into a single state by Limit.
func (s *StateSet) Merged() bool {
	return s.merged
}

// States returns the split contexts in insertion order. The returned slice must not be modified.
func (s *StateSet) States() []State {
	return s.states.Keys()
}

// Add adds the state to the set and returns true if the set changed.
func (s *StateSet) Add(state State) bool {
	if !s.merged {
		if _, ok := s.states.Load(state); ok {
			return false
		}
		s.states.Store(state, struct{}{})
		return true
	}

	// A merged set always holds exactly one state.
	if s.states.Len() == 0 {
		s.states.Store(state, struct{}{})
		return true
	}
	old := s.states.Keys()[0]
	joined := joinStates(old, state)
	if joined == old {
		return false
	}
	s.states = orderedmap.New[State, struct{}]()
	s.states.Store(joined, struct{}{})
	return true
}

// Union adds all states of the other set and returns true if the set changed.
func (s *StateSet) Union(other *StateSet) bool {
	changed := false
	for _, state := range other.States() {
		if s.Add(state) {
			changed = true
		}
	}
	return changed
}

// Limit merges the set into a single pointwise-joined state if it holds more than maxSplits contexts,
// and returns true if it did so.
func (s *StateSet) Limit(maxSplits int) bool {
	if s.merged || s.states.Len() <= maxSplits {
		return false
	}
	states := s.states.Keys()
	joined := states[0]
	for _, state := range states[1:] {
		joined = joinStates(joined, state)
	}
	s.merged = true
	s.states = orderedmap.New[State, struct{}]()
	s.states.Store(joined, struct{}{})
	return true
}

// Map returns a new set holding the states produced by f for every state in the set. f may drop
// a state by returning nothing, or split it by returning several.
func (s *StateSet) Map(f func(State) []State) *StateSet {
	out := NewStateSet()
	for _, state := range s.States() {
		for _, next := range f(state) {
			out.Add(next)
		}
	}
	return out
}

// Clone returns an unmerged copy of the set.
func (s *StateSet) Clone() *StateSet {
	return NewStateSet(s.States()...)
}

// String returns the string representation of the set.
func (s *StateSet) String() string {
	parts := make([]string, 0, s.Len())
	for _, state := range s.States() {
		parts = append(parts, state.String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
