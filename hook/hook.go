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

// Package hook implements a hook framework for nilguard where it hooks into the CFG preprocessing
// to provide additional context for certain function calls. This is useful for well-known
// standard or 3rd party libraries where we can encode certain knowledge about them (e.g.,
// `require.NotNil(t, x)` implies `x != nil` for the code after it) and use that to split the CFG.
package hook

import (
	"go/ast"
	"go/token"
	"go/types"
	"regexp"

	"golang.org/x/tools/go/analysis"
)

// funcKind indicates the kind of the trusted function:
// (1) _method: it is a method of a struct;
// (2) _func: it is a top-level function of a package.
type funcKind uint8

const (
	_method funcKind = iota
	_func
)

// trustedFuncSig defines the signature of a function that we "trust" to have a certain effect on
// its arguments or on the control flow.
type trustedFuncSig struct {
	kind           funcKind
	enclosingRegex *regexp.Regexp
	funcNameRegex  *regexp.Regexp
}

// match checks if a given call expression matches with a trusted function's signature. Namely,
// it performs a strict matching for the function / method name and a user-defined regex match for
// the enclosing package or struct path.
func (t *trustedFuncSig) match(pass *analysis.Pass, call *ast.CallExpr) bool {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok || !t.funcNameRegex.MatchString(sel.Sel.Name) {
		return false
	}

	// For functions the path is "<pkg path>", e.g., github.com/stretchr/testify/require for
	// `require.NotNil(t, x)`. For methods it is "<pkg path>.<type name>", e.g.,
	// github.com/stretchr/testify/require.Assertions for `r.NotNil(x)`.
	funcObj, ok := pass.TypesInfo.ObjectOf(sel.Sel).(*types.Func)
	if !ok || funcObj.Pkg() == nil {
		return false
	}
	recv := funcObj.Type().(*types.Signature).Recv()
	path := funcObj.Pkg().Path()

	if (t.kind == _func && recv != nil) || (t.kind == _method && recv == nil) {
		return false
	}

	if recv != nil {
		n, ok := unwrapPtr(recv.Type()).(*types.Named)
		if !ok {
			return false
		}
		path = path + "." + n.Obj().Name()
	}
	return t.enclosingRegex.MatchString(path)
}

func unwrapPtr(t types.Type) types.Type {
	if ptr, ok := types.Unalias(t).(*types.Pointer); ok {
		return types.Unalias(ptr.Elem())
	}
	return types.Unalias(t)
}

// newNilBinaryExpr creates a new binary expression "expr op nil".
func newNilBinaryExpr(expr ast.Expr, op token.Token) *ast.BinaryExpr {
	return &ast.BinaryExpr{
		X:     expr,
		OpPos: expr.Pos(),
		Op:    op,
		Y: &ast.Ident{
			NamePos: expr.Pos(),
			Name:    "nil",
		},
	}
}

// newNotExpr creates a new unary expression "!expr".
func newNotExpr(expr ast.Expr) *ast.UnaryExpr {
	return &ast.UnaryExpr{
		OpPos: expr.Pos(),
		Op:    token.NOT,
		X:     expr,
	}
}
