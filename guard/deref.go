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
	"go/types"

	"go.uber.org/nilguard/util/typeshelper"
)

// deref is a dereference of a tracked variable.
type deref struct {
	// expr is the dereferencing expression.
	expr ast.Expr
	// ident is the variable operand of the dereference.
	ident *ast.Ident
	// index is the index of the tracked variable.
	index int
}

// derefOf returns the dereference of a tracked variable performed by the node itself (not its
// children), if any:
//
//   - `*x` for pointers;
//   - `x.f` for fields reached through a pointer, methods of interfaces, and value-receiver or
//     promoted methods of pointers;
//   - `x(...)` for funcs;
//   - `x[i]` and `x[i:j]` for pointers to arrays.
func (a *analyzer) derefOf(n ast.Node) (deref, bool) {
	var operand ast.Expr
	switch n := n.(type) {
	case *ast.StarExpr:
		operand = n.X
	case *ast.SelectorExpr:
		if !a.selectorDerefs(n) {
			return deref{}, false
		}
		operand = n.X
	case *ast.CallExpr:
		operand = n.Fun
	case *ast.IndexExpr:
		operand = n.X
	case *ast.SliceExpr:
		operand = n.X
	default:
		return deref{}, false
	}

	ident, ok := ast.Unparen(operand).(*ast.Ident)
	if !ok {
		return deref{}, false
	}
	i, ok := a.varIndex(ident)
	if !ok || a.tracked.isBool(i) {
		return deref{}, false
	}
	typ := a.tracked.vars[i].Type()

	switch n.(type) {
	case *ast.StarExpr:
		if _, ok := typ.Underlying().(*types.Pointer); !ok {
			return deref{}, false
		}
	case *ast.CallExpr:
		if _, ok := typ.Underlying().(*types.Signature); !ok {
			return deref{}, false
		}
	case *ast.IndexExpr, *ast.SliceExpr:
		if !typeshelper.PointsToArray(typ) {
			return deref{}, false
		}
	}
	return deref{expr: n.(ast.Expr), ident: ident, index: i}, true
}

// selectorDerefs returns true if evaluating the selector expression dereferences its operand.
func (a *analyzer) selectorDerefs(sel *ast.SelectorExpr) bool {
	selection, ok := a.info.Selections[sel]
	if !ok {
		// Qualified identifiers, e.g., `pkg.Func`.
		return false
	}
	recv := selection.Recv()
	if typeshelper.IsInterface(recv) {
		return true
	}
	if _, ok := recv.Underlying().(*types.Pointer); !ok {
		return false
	}

	switch selection.Kind() {
	case types.FieldVal:
		return true
	case types.MethodVal, types.MethodExpr:
		// Promoted methods reach the receiver through the embedded fields of the pointee.
		if len(selection.Index()) > 1 {
			return true
		}
		method, ok := selection.Obj().(*types.Func)
		if !ok {
			return false
		}
		methodRecv := method.Signature().Recv()
		if methodRecv == nil {
			return false
		}
		// A pointer-receiver method may be called on a nil pointer.
		_, isPtrRecv := methodRecv.Type().Underlying().(*types.Pointer)
		return !isPtrRecv
	}
	return false
}
