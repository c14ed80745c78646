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
	"go/token"
	"go/types"

	"go.uber.org/nilguard/util/typeshelper"
)

// tracked is the set of variables the analysis tracks in a function, in declaration order.
type tracked struct {
	vars  []*types.Var
	index map[*types.Var]int
	// results are the indices of the named results, which start at their zero value.
	results []int
}

func (t *tracked) add(v *types.Var) int {
	if i, ok := t.index[v]; ok {
		return i
	}
	t.index[v] = len(t.vars)
	t.vars = append(t.vars, v)
	return len(t.vars) - 1
}

// isBool returns true if the i-th variable is a boolean.
func (t *tracked) isBool(i int) bool {
	return typeshelper.IsBool(t.vars[i].Type())
}

// isTrackable returns true if the variable has a type whose nilness or truth we track.
func isTrackable(v *types.Var) bool {
	if v == nil || v.Name() == "_" || v.IsField() {
		return false
	}
	return typeshelper.IsDereferenceable(v.Type()) || typeshelper.IsBool(v.Type())
}

// collectTracked returns the variables to track in the function node (an *ast.FuncDecl or an
// *ast.FuncLit): its receiver, parameters, named results and locals of pointer, interface, func
// or boolean types. Variables whose address is taken, or that are assigned in a nested function
// literal, are excluded since they may change behind the analysis' back.
func collectTracked(info *types.Info, fn ast.Node) *tracked {
	t := &tracked{index: make(map[*types.Var]int)}

	var recv *ast.FieldList
	var ftype *ast.FuncType
	var body *ast.BlockStmt
	switch fn := fn.(type) {
	case *ast.FuncDecl:
		recv, ftype, body = fn.Recv, fn.Type, fn.Body
	case *ast.FuncLit:
		ftype, body = fn.Type, fn.Body
	default:
		return t
	}

	excluded := excludedVars(info, fn)
	addFields := func(fields *ast.FieldList, isResult bool) {
		if fields == nil {
			return
		}
		for _, field := range fields.List {
			for _, name := range field.Names {
				v, ok := info.Defs[name].(*types.Var)
				if !ok || !isTrackable(v) || excluded[v] {
					continue
				}
				i := t.add(v)
				if isResult {
					t.results = append(t.results, i)
				}
			}
		}
	}
	addFields(recv, false)
	addFields(ftype.Params, false)
	addFields(ftype.Results, true)

	if body == nil {
		return t
	}
	ast.Inspect(body, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.FuncLit:
			return false
		case *ast.Ident:
			if v, ok := info.Defs[n].(*types.Var); ok && isTrackable(v) && !excluded[v] {
				t.add(v)
			}
		}
		return true
	})
	return t
}

// excludedVars returns the variables whose address is taken anywhere in the function, or that
// are assigned inside a nested function literal.
func excludedVars(info *types.Info, fn ast.Node) map[*types.Var]bool {
	excluded := make(map[*types.Var]bool)
	exclude := func(expr ast.Expr) {
		if ident, ok := ast.Unparen(expr).(*ast.Ident); ok {
			if v, ok := info.Uses[ident].(*types.Var); ok {
				excluded[v] = true
			}
		}
	}

	var visit func(n ast.Node, nested bool) bool
	visit = func(n ast.Node, nested bool) bool {
		switch n := n.(type) {
		case *ast.FuncLit:
			if n == fn {
				return true
			}
			ast.Inspect(n.Body, func(m ast.Node) bool { return visit(m, true) })
			return false
		case *ast.UnaryExpr:
			if n.Op == token.AND {
				exclude(n.X)
			}
		case *ast.AssignStmt:
			if nested {
				for _, lhs := range n.Lhs {
					exclude(lhs)
				}
			}
		case *ast.RangeStmt:
			if nested && n.Tok == token.ASSIGN {
				if n.Key != nil {
					exclude(n.Key)
				}
				if n.Value != nil {
					exclude(n.Value)
				}
			}
		}
		return true
	}
	ast.Inspect(fn, func(n ast.Node) bool { return visit(n, false) })
	return excluded
}
