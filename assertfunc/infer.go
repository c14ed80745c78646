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

package assertfunc

import (
	"go/ast"
	"go/token"
	"go/types"

	"go.uber.org/nilguard/hook"
	"go.uber.org/nilguard/util/analysishelper"
	"go.uber.org/nilguard/util/typeshelper"
)

// infer infers the contracts of a function from the leading statements of its body. Each
// statement of the form
//
//	if <cond on params> {
//		...
//		<call that never returns>
//	}
//
// contributes contracts, until a statement that may return, jump (goto, labeled branches) or
// reassign a checked parameter:
//
//	if !p { panic(...) }         // true(p)
//	if p { panic(...) }          // false(p)
//	if p == nil { panic(...) }   // nonnil(p)
//	if p != nil { panic(...) }   // nil(p)
//	if a == nil || b == nil {...} // nonnil(a), nonnil(b)
//
// Nil contracts are never inferred for interface parameters: the argument may be a nil pointer
// wrapped in a non-nil interface, so the contract would not translate to the argument expression.
func infer(pass *analysishelper.EnhancedPass, decl *ast.FuncDecl) []hook.Contract {
	if decl.Body == nil {
		return nil
	}
	params := paramIndices(pass, decl)
	if len(params) == 0 {
		return nil
	}

	var contracts []hook.Contract
	seen := make(map[hook.Contract]bool)
	reassigned := make(map[*types.Var]bool)
	for _, stmt := range decl.Body.List {
		if _, ok := stmt.(*ast.LabeledStmt); ok || jumps(stmt) {
			break
		}
		if ifStmt, ok := stmt.(*ast.IfStmt); ok && ifStmt.Init == nil && ifStmt.Else == nil && terminates(pass, ifStmt.Body) {
			for _, c := range failureContracts(pass, ifStmt.Cond, params, reassigned) {
				if !seen[c] {
					seen[c] = true
					contracts = append(contracts, c)
				}
			}
			continue
		}
		if mayReturn(stmt) {
			break
		}
		markReassigned(pass, stmt, reassigned)
	}
	return contracts
}

// paramIndices returns the argument index of every named, non-variadic parameter.
func paramIndices(pass *analysishelper.EnhancedPass, decl *ast.FuncDecl) map[*types.Var]int {
	funcObj, ok := pass.TypesInfo.Defs[decl.Name].(*types.Func)
	if !ok {
		return nil
	}
	sig := funcObj.Signature()
	params := make(map[*types.Var]int)
	for i := range sig.Params().Len() {
		if sig.Variadic() && i == sig.Params().Len()-1 {
			break
		}
		if p := sig.Params().At(i); p.Name() != "" && p.Name() != "_" {
			params[p] = i
		}
	}
	return params
}

// failureContracts returns the contracts implied by `cond` being false, where cond leads to a
// failure. Disjunctions are split: every disjunct must be false for the function to return.
func failureContracts(pass *analysishelper.EnhancedPass, cond ast.Expr, params map[*types.Var]int, reassigned map[*types.Var]bool) []hook.Contract {
	cond = ast.Unparen(cond)
	param := func(expr ast.Expr) (*types.Var, int, bool) {
		ident, ok := ast.Unparen(expr).(*ast.Ident)
		if !ok {
			return nil, 0, false
		}
		v, ok := pass.TypesInfo.Uses[ident].(*types.Var)
		if !ok || reassigned[v] {
			return nil, 0, false
		}
		i, ok := params[v]
		return v, i, ok
	}

	switch e := cond.(type) {
	case *ast.BinaryExpr:
		switch e.Op {
		case token.LOR:
			return append(failureContracts(pass, e.X, params, reassigned), failureContracts(pass, e.Y, params, reassigned)...)
		case token.EQL, token.NEQ:
			operand := e.X
			switch {
			case pass.IsNil(ast.Unparen(e.Y)):
			case pass.IsNil(ast.Unparen(e.X)):
				operand = e.Y
			default:
				return nil
			}
			v, i, ok := param(operand)
			if !ok || !typeshelper.IsDereferenceable(v.Type()) || typeshelper.IsInterface(v.Type()) {
				return nil
			}
			// The function fails when `p == nil`, so it asserts `p != nil`.
			kind := hook.AssertNonNil
			if e.Op == token.NEQ {
				kind = hook.AssertNil
			}
			return []hook.Contract{{Kind: kind, ArgIndex: i}}
		}
	case *ast.UnaryExpr:
		if e.Op != token.NOT {
			return nil
		}
		if v, i, ok := param(e.X); ok && typeshelper.IsBool(v.Type()) {
			return []hook.Contract{{Kind: hook.AssertTrue, ArgIndex: i}}
		}
	case *ast.Ident:
		if v, i, ok := param(e); ok && typeshelper.IsBool(v.Type()) {
			return []hook.Contract{{Kind: hook.AssertFalse, ArgIndex: i}}
		}
	}
	return nil
}

// terminates returns true if the block ends with a call that never returns, and no path through
// the block leaves it before that call.
func terminates(pass *analysishelper.EnhancedPass, block *ast.BlockStmt) bool {
	if len(block.List) == 0 || mayReturn(block) || jumps(block) {
		return false
	}
	expr, ok := block.List[len(block.List)-1].(*ast.ExprStmt)
	if !ok {
		return false
	}
	call, ok := ast.Unparen(expr.X).(*ast.CallExpr)
	return ok && hook.IsNoReturnCall(pass.Pass, call)
}

// jumps returns true if the statement contains a goto or a labeled break / continue outside
// function literals.
func jumps(stmt ast.Stmt) bool {
	found := false
	ast.Inspect(stmt, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.FuncLit:
			return false
		case *ast.BranchStmt:
			if n.Tok == token.GOTO || n.Label != nil {
				found = true
			}
		}
		return !found
	})
	return found
}

// mayReturn returns true if the statement contains a return statement outside function literals.
func mayReturn(stmt ast.Stmt) bool {
	found := false
	ast.Inspect(stmt, func(n ast.Node) bool {
		switch n.(type) {
		case *ast.FuncLit:
			return false
		case *ast.ReturnStmt:
			found = true
		}
		return !found
	})
	return found
}

// markReassigned marks the variables assigned or whose address is taken in the statement.
func markReassigned(pass *analysishelper.EnhancedPass, stmt ast.Stmt, reassigned map[*types.Var]bool) {
	mark := func(expr ast.Expr) {
		if ident, ok := ast.Unparen(expr).(*ast.Ident); ok {
			if v, ok := pass.TypesInfo.Uses[ident].(*types.Var); ok {
				reassigned[v] = true
			}
		}
	}
	ast.Inspect(stmt, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.AssignStmt:
			for _, lhs := range n.Lhs {
				mark(lhs)
			}
		case *ast.RangeStmt:
			if n.Tok == token.ASSIGN {
				if n.Key != nil {
					mark(n.Key)
				}
				if n.Value != nil {
					mark(n.Value)
				}
			}
		case *ast.UnaryExpr:
			if n.Op == token.AND {
				mark(n.X)
			}
		}
		return true
	})
}
