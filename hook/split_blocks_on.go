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
	"regexp"

	"go.uber.org/nilguard/util/analysishelper"
	"golang.org/x/tools/go/analysis"
)

// SplitBlockOn splits the CFG block on seeing matched trusted functions, where the condition is
// the returned expression. For example, a binary expression `x != nil` is returned for trusted
// function `require.NotNil(t, x)`, and the CFG block is split as if it were written like
// `if x != nil { <...code after the function call...> }`. It returns nil if the call is not a
// trusted assertion.
func SplitBlockOn(pass *analysis.Pass, call *ast.CallExpr) ast.Expr {
	for _, entry := range _splitBlockOn {
		if entry.sig.match(pass, call) {
			return entry.action(pass, call, entry.argIndex)
		}
	}
	return nil
}

// splitBlockOnAction defines the effect the trusted function can have on its argument `argIndex`.
type splitBlockOnAction func(pass *analysis.Pass, call *ast.CallExpr, argIndex int) ast.Expr

// contractAction adapts a contract kind to a splitBlockOnAction.
func contractAction(kind ContractKind) splitBlockOnAction {
	return func(_ *analysis.Pass, call *ast.CallExpr, argIndex int) ast.Expr {
		return Contract{Kind: kind, ArgIndex: argIndex}.Cond(call)
	}
}

// requireNilComparators handles `Equal(nil, x)` / `Equal(x, nil)` and their `NotEqual`
// counterparts, which imply `x == nil` and `x != nil` respectively.
var requireNilComparators splitBlockOnAction = func(pass *analysis.Pass, call *ast.CallExpr, startIndex int) ast.Expr {
	if len(call.Args[startIndex:]) < 2 {
		return nil
	}
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return nil
	}

	var actualExpr ast.Expr
	expected, actual := call.Args[startIndex], call.Args[startIndex+1]
	switch {
	case isNilExpr(pass, expected):
		actualExpr = actual
	case isNilExpr(pass, actual):
		actualExpr = expected
	default:
		return nil
	}

	switch sel.Sel.Name {
	case "Equal", "Equalf":
		return newNilBinaryExpr(actualExpr, token.EQL)
	case "NotEqual", "NotEqualf":
		return newNilBinaryExpr(actualExpr, token.NEQ)
	}
	return nil
}

func isNilExpr(pass *analysis.Pass, expr ast.Expr) bool {
	tv, ok := pass.TypesInfo.Types[expr]
	return ok && tv.IsNil()
}

var (
	_testifyMethodRegex = regexp.MustCompile(`github\.com/stretchr/testify/(suite\.Suite|assert\.Assertions|require\.Assertions)$`)
	_testifyFuncRegex   = regexp.MustCompile(`github\.com/stretchr/testify/(assert|require)$`)
)

// _splitBlockOn defines the list of trusted functions and their corresponding actions on a
// particular argument. The method forms take the asserted argument first, the function forms
// take a `TestingT` first.
var _splitBlockOn = []struct {
	sig      trustedFuncSig
	action   splitBlockOnAction
	argIndex int
}{
	{
		sig:    trustedFuncSig{kind: _method, enclosingRegex: _testifyMethodRegex, funcNameRegex: regexp.MustCompile(`^(Nil(f)?|NoError(f)?)$`)},
		action: contractAction(AssertNil), argIndex: 0,
	},
	{
		sig:    trustedFuncSig{kind: _method, enclosingRegex: _testifyMethodRegex, funcNameRegex: regexp.MustCompile(`^(NotNil(f)?|Error(f)?)$`)},
		action: contractAction(AssertNonNil), argIndex: 0,
	},
	{
		sig:    trustedFuncSig{kind: _method, enclosingRegex: _testifyMethodRegex, funcNameRegex: regexp.MustCompile(`^True(f)?$`)},
		action: contractAction(AssertTrue), argIndex: 0,
	},
	{
		sig:    trustedFuncSig{kind: _method, enclosingRegex: _testifyMethodRegex, funcNameRegex: regexp.MustCompile(`^False(f)?$`)},
		action: contractAction(AssertFalse), argIndex: 0,
	},
	{
		sig:    trustedFuncSig{kind: _method, enclosingRegex: _testifyMethodRegex, funcNameRegex: regexp.MustCompile(`^(Equal(f)?|NotEqual(f)?)$`)},
		action: requireNilComparators, argIndex: 0,
	},
	{
		sig:    trustedFuncSig{kind: _func, enclosingRegex: _testifyFuncRegex, funcNameRegex: regexp.MustCompile(`^(Nil(f)?|NoError(f)?)$`)},
		action: contractAction(AssertNil), argIndex: 1,
	},
	{
		sig:    trustedFuncSig{kind: _func, enclosingRegex: _testifyFuncRegex, funcNameRegex: regexp.MustCompile(`^(NotNil(f)?|Error(f)?)$`)},
		action: contractAction(AssertNonNil), argIndex: 1,
	},
	{
		sig:    trustedFuncSig{kind: _func, enclosingRegex: _testifyFuncRegex, funcNameRegex: regexp.MustCompile(`^True(f)?$`)},
		action: contractAction(AssertTrue), argIndex: 1,
	},
	{
		sig:    trustedFuncSig{kind: _func, enclosingRegex: _testifyFuncRegex, funcNameRegex: regexp.MustCompile(`^False(f)?$`)},
		action: contractAction(AssertFalse), argIndex: 1,
	},
	{
		sig:    trustedFuncSig{kind: _func, enclosingRegex: _testifyFuncRegex, funcNameRegex: regexp.MustCompile(`^(Equal(f)?|NotEqual(f)?)$`)},
		action: requireNilComparators, argIndex: 1,
	},
}

// FuncContract looks up the contract of the called function in the given contracts, keyed by
// the full name of the function (see types.Func.FullName). It returns false if the callee is
// unknown or dynamic.
func FuncContract(pass *analysis.Pass, call *ast.CallExpr, contracts map[string][]Contract) ([]Contract, bool) {
	if len(contracts) == 0 {
		return nil, false
	}
	funcObj := analysishelper.NewEnhancedPass(pass).CalleeFunc(call)
	if funcObj == nil {
		return nil, false
	}
	c, ok := contracts[funcObj.Origin().FullName()]
	return c, ok
}
