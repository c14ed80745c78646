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

// Package guard implements a path-splitting nil guard analysis over the CFG of a single function.
//
// The analysis runs a forward dataflow where each CFG block carries a set of split contexts
// instead of one merged state. A split context records, for every tracked variable, whether it is
// known to be nil, known to be non-nil, or unknown (and for boolean variables, whether they are
// true or false). Branching on a boolean flag splits the contexts, so a later branch on the same
// flag only sees the contexts consistent with it:
//
//	if b {
//		if o != nil {
//			o.String() // nil guarded
//		}
//	}
//	if b {
//		o.String() // not nil guarded
//	}
//
// Every dereference of a tracked variable gets a verdict: guarded if the variable is non-nil in
// every context reaching it, anti-guarded if it is nil in every context, and not guarded
// otherwise.
package guard

import (
	"go/ast"
	"go/token"
	"go/types"
)

// Kind is the verdict of a dereference.
type Kind uint8

const (
	// NotGuarded means the dereferenced variable may or may not be nil.
	NotGuarded Kind = iota
	// Guarded means the dereferenced variable is non-nil on every path reaching the dereference.
	Guarded
	// AntiGuarded means the dereferenced variable is nil on every path reaching the dereference,
	// i.e., the dereference always panics.
	AntiGuarded
)

// String returns the label of the verdict kind.
func (k Kind) String() string {
	switch k {
	case Guarded:
		return "nil guarded"
	case AntiGuarded:
		return "anti-nil guarded"
	default:
		return "not nil guarded"
	}
}

// Verdict is the verdict of a single dereference of a tracked variable.
type Verdict struct {
	Kind Kind
	// Var is the dereferenced variable.
	Var *types.Var
	// Expr is the dereferencing expression, e.g., `*x`, `x.f`, `x.M()` or `x()`.
	Expr ast.Expr
	// Pos is the position of the variable in the dereferencing expression.
	Pos token.Pos
	// Checked is true if the variable is compared against nil (or asserted) anywhere in the
	// function.
	Checked bool
}

// Options configures the analysis.
type Options struct {
	// MaxSplits bounds the number of split contexts a block may carry. Beyond it the contexts are
	// merged into one, and the block stays merged. Zero means DefaultMaxSplits.
	MaxSplits int
	// MaxRounds bounds the number of times a single block may be visited during the fixpoint
	// computation. Zero means DefaultMaxRounds.
	MaxRounds int
}

const (
	// DefaultMaxSplits is the default number of split contexts kept per block.
	DefaultMaxSplits = 16
	// DefaultMaxRounds is the default number of visits per block before giving up.
	DefaultMaxRounds = 1000
)

func (o Options) withDefaults() Options {
	if o.MaxSplits <= 0 {
		o.MaxSplits = DefaultMaxSplits
	}
	if o.MaxRounds <= 0 {
		o.MaxRounds = DefaultMaxRounds
	}
	return o
}
