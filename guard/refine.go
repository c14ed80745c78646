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
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"
)

// refine returns the split contexts of states in which cond evaluates to outcome. Contexts
// contradicting the condition are dropped, and unknown variables the condition constrains are
// narrowed, which splits the contexts on unknown boolean flags. Conditions the analysis cannot
// interpret leave the contexts unchanged.
func (a *analyzer) refine(states *StateSet, cond ast.Expr, outcome bool) *StateSet {
	if states.Empty() {
		return NewStateSet()
	}
	if c, ok := a.boolConst(cond); ok {
		if c == outcome {
			return states.Clone()
		}
		return NewStateSet()
	}

	switch e := cond.(type) {
	case *ast.ParenExpr:
		return a.refine(states, e.X, outcome)
	case *ast.UnaryExpr:
		if e.Op == token.NOT {
			return a.refine(states, e.X, !outcome)
		}
	case *ast.BinaryExpr:
		switch e.Op {
		case token.LAND:
			whenX := a.refine(states, e.X, true)
			if outcome {
				return a.refine(whenX, e.Y, true)
			}
			out := a.refine(states, e.X, false)
			out.Union(a.refine(whenX, e.Y, false))
			return out
		case token.LOR:
			whenNotX := a.refine(states, e.X, false)
			if !outcome {
				return a.refine(whenNotX, e.Y, false)
			}
			out := a.refine(states, e.X, true)
			out.Union(a.refine(whenNotX, e.Y, true))
			return out
		case token.EQL, token.NEQ:
			if i, ok := a.nilComparison(e); ok {
				isNil := outcome == (e.Op == token.EQL)
				return narrow(states, i, nilValue(isNil))
			}
			if other, c, ok := a.boolComparison(e); ok {
				want := c == (e.Op == token.EQL)
				if !outcome {
					want = !want
				}
				return a.refine(states, other, want)
			}
		}
	case *ast.Ident:
		if i, ok := a.varIndex(e); ok && a.tracked.isBool(i) {
			return narrow(states, i, boolValue(outcome))
		}
	}
	return states.Clone()
}

// narrow keeps the contexts where the i-th variable may be want, setting it to want.
func narrow(states *StateSet, i int, want Value) *StateSet {
	return states.Map(func(s State) []State {
		switch s.Get(i) {
		case Unknown:
			return []State{s.Set(i, want)}
		case want:
			return []State{s}
		default:
			return nil
		}
	})
}

// interpretable returns true if refine can learn anything from the condition.
func (a *analyzer) interpretable(cond ast.Expr) bool {
	if _, ok := a.boolConst(cond); ok {
		return true
	}
	switch e := cond.(type) {
	case *ast.ParenExpr:
		return a.interpretable(e.X)
	case *ast.UnaryExpr:
		return e.Op == token.NOT && a.interpretable(e.X)
	case *ast.BinaryExpr:
		switch e.Op {
		case token.LAND, token.LOR:
			return a.interpretable(e.X) || a.interpretable(e.Y)
		case token.EQL, token.NEQ:
			if _, ok := a.nilComparison(e); ok {
				return true
			}
			if other, _, ok := a.boolComparison(e); ok {
				return a.interpretable(other)
			}
		}
	case *ast.Ident:
		i, ok := a.varIndex(e)
		return ok && a.tracked.isBool(i)
	}
	return false
}

// nilComparison returns the index of the tracked variable compared against nil in `x == nil`,
// `x != nil`, `nil == x` or `nil != x`.
func (a *analyzer) nilComparison(e *ast.BinaryExpr) (int, bool) {
	operand := e.X
	switch {
	case a.isNil(e.Y):
	case a.isNil(e.X):
		operand = e.Y
	default:
		return 0, false
	}
	ident, ok := ast.Unparen(operand).(*ast.Ident)
	if !ok {
		return 0, false
	}
	i, ok := a.varIndex(ident)
	if !ok || a.tracked.isBool(i) {
		return 0, false
	}
	return i, true
}

// boolComparison returns the non-constant operand and the constant of a comparison against a
// boolean constant, e.g., `b == true`.
func (a *analyzer) boolComparison(e *ast.BinaryExpr) (ast.Expr, bool, bool) {
	if c, ok := a.boolConst(e.Y); ok {
		if _, isConst := a.boolConst(e.X); !isConst {
			return e.X, c, true
		}
	}
	if c, ok := a.boolConst(e.X); ok {
		if _, isConst := a.boolConst(e.Y); !isConst {
			return e.Y, c, true
		}
	}
	return nil, false, false
}

// isNil returns true if the expression is the predeclared nil, possibly converted to a type.
func (a *analyzer) isNil(expr ast.Expr) bool {
	expr = ast.Unparen(expr)
	if tv, ok := a.info.Types[expr]; ok && tv.IsNil() {
		return true
	}
	switch e := expr.(type) {
	case *ast.Ident:
		// Conditions built by the CFG preprocessing carry nil identifiers without type information.
		if e.Name != "nil" {
			return false
		}
		obj := a.info.Uses[e]
		if obj == nil {
			_, ok := a.info.Types[e]
			return !ok
		}
		_, ok := obj.(*types.Nil)
		return ok
	case *ast.CallExpr:
		// Conversions such as `(*T)(nil)`.
		if tv, ok := a.info.Types[e.Fun]; ok && tv.IsType() && len(e.Args) == 1 {
			return a.isNil(e.Args[0])
		}
	}
	return false
}

// boolConst returns the value of a constant boolean expression.
func (a *analyzer) boolConst(expr ast.Expr) (bool, bool) {
	tv, ok := a.info.Types[ast.Unparen(expr)]
	if !ok || tv.Value == nil || tv.Value.Kind() != constant.Bool {
		return false, false
	}
	return constant.BoolVal(tv.Value), true
}
