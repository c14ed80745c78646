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

package hook

import (
	"go/ast"
	"go/token"
	"strconv"
)

// ContractKind is the effect an assertion function has on one of its arguments: the code after
// a call only runs if the argument satisfies the contract.
type ContractKind uint8

const (
	// AssertTrue asserts that a boolean argument is true, e.g., `func Assert(cond bool)`.
	AssertTrue ContractKind = iota + 1
	// AssertFalse asserts that a boolean argument is false.
	AssertFalse
	// AssertNonNil asserts that the argument is not nil.
	AssertNonNil
	// AssertNil asserts that the argument is nil.
	AssertNil
)

// String returns the string representation of the contract kind.
func (k ContractKind) String() string {
	switch k {
	case AssertTrue:
		return "true"
	case AssertFalse:
		return "false"
	case AssertNonNil:
		return "nonnil"
	case AssertNil:
		return "nil"
	default:
		return "unknown"
	}
}

// Contract is an assertion contract of a function on its ArgIndex-th argument. The fields are
// exported for gob encoding since contracts travel across packages as facts.
type Contract struct {
	Kind     ContractKind
	ArgIndex int
}

// String returns the string representation of the contract, e.g., "nonnil(1)".
func (c Contract) String() string {
	return c.Kind.String() + "(" + strconv.Itoa(c.ArgIndex) + ")"
}

// Cond returns the condition that holds after the given call to a function with the contract,
// or nil if the call does not have the argument (e.g., a variadic call spreading a slice).
func (c Contract) Cond(call *ast.CallExpr) ast.Expr {
	if c.ArgIndex < 0 || c.ArgIndex >= len(call.Args) || call.Ellipsis.IsValid() {
		return nil
	}
	arg := call.Args[c.ArgIndex]
	switch c.Kind {
	case AssertTrue:
		return arg
	case AssertFalse:
		return newNotExpr(arg)
	case AssertNonNil:
		return newNilBinaryExpr(arg, token.NEQ)
	case AssertNil:
		return newNilBinaryExpr(arg, token.EQL)
	default:
		return nil
	}
}
