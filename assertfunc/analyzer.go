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

// Package assertfunc implements a sub-analyzer that collects assertion functions, i.e., functions
// that only return normally if a condition on one of their arguments holds, e.g.,
//
//	func Assert(cond bool) {
//		if !cond {
//			panic("assertion failed")
//		}
//	}
//
// The contracts are either written as special comments before the function declaration, or
// inferred from the function body. Contracts of exported functions are exported as package facts
// so that downstream packages can use them as well.
package assertfunc

import (
	"go/ast"
	"go/types"
	"reflect"

	"go.uber.org/nilguard/config"
	"go.uber.org/nilguard/hook"
	"go.uber.org/nilguard/util/analysishelper"
	"go.uber.org/nilguard/util/orderedmap"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

const _doc = "Collect the assertion functions of this package and its dependencies, returning their contracts."

// Map maps the full name of an assertion function (see types.Func.FullName) to its contracts.
type Map = map[string][]hook.Contract

// Analyzer collects the assertion contracts visible to the current package: those of upstream
// packages, of the current package, and of the functions given by the config.
var Analyzer = &analysis.Analyzer{
	Name:       "nilguard_assertfunc_analyzer",
	Doc:        _doc,
	Run:        analysishelper.WrapRun(run),
	FactTypes:  []analysis.Fact{new(Facts)},
	ResultType: reflect.TypeOf((*analysishelper.Result[Map])(nil)),
	Requires:   []*analysis.Analyzer{config.Analyzer, inspect.Analyzer},
}

func run(pass *analysis.Pass) (Map, error) {
	conf := pass.ResultOf[config.Analyzer].(*config.Config)

	contracts := make(Map)
	for _, f := range pass.AllPackageFacts() {
		if facts, ok := f.Fact.(*Facts); ok {
			facts.contracts.OrderedRange(func(name string, cs []hook.Contract) bool {
				contracts[name] = cs
				return true
			})
		}
	}

	if conf.IsPkgInScope(pass.Pkg) {
		current := collect(pass, conf)
		exported := newFacts()
		current.OrderedRange(func(funcObj *types.Func, cs []hook.Contract) bool {
			contracts[funcObj.FullName()] = cs
			if funcObj.Exported() {
				exported.contracts.Store(funcObj.FullName(), cs)
			}
			return true
		})
		if err := exported.export(pass); err != nil {
			return nil, err
		}
	}

	// User-specified functions take precedence over everything else.
	for name, index := range conf.AssertFuncs {
		contracts[name] = []hook.Contract{{Kind: hook.AssertTrue, ArgIndex: index}}
	}
	return contracts, nil
}

// collect returns the contracts of the functions declared in the current package, in declaration
// order. Handwritten contracts take precedence over inferred ones.
func collect(pass *analysis.Pass, conf *config.Config) *orderedmap.OrderedMap[*types.Func, []hook.Contract] {
	inFile := make(map[*ast.File]bool, len(pass.Files))
	for _, file := range pass.Files {
		inFile[file] = conf.IsFileInScope(file)
	}

	result := orderedmap.New[*types.Func, []hook.Contract]()
	insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)
	var file *ast.File
	insp.Preorder([]ast.Node{(*ast.File)(nil), (*ast.FuncDecl)(nil)}, func(n ast.Node) {
		switch n := n.(type) {
		case *ast.File:
			file = n
		case *ast.FuncDecl:
			if !inFile[file] {
				return
			}
			funcObj, ok := pass.TypesInfo.Defs[n.Name].(*types.Func)
			if !ok {
				return
			}
			cs := parseContracts(n.Doc)
			if len(cs) == 0 {
				cs = infer(analysishelper.NewEnhancedPass(pass), n)
			}
			if len(cs) > 0 {
				result.Store(funcObj, cs)
			}
		}
	})
	return result
}
