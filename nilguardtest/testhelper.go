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

// Package nilguardtest implements utility functions for tests.
package nilguardtest

import (
	"go/ast"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
)

// ExpectedValues inspects the files of the pass and gathers the expected values written in a
// comment on the same line as a function declaration, e.g.,
//
//	func Assert(cond bool) { // <prefix> true(0)
//
// The values are keyed by the full name of the function (see types.Func.FullName) and split by
// spaces. A function with the prefix but no values maps to an empty slice; a function without the comment is
// absent from the result.
func ExpectedValues(pass *analysis.Pass, prefix string) map[string][]string {
	results := make(map[string][]string)

	for _, file := range pass.Files {
		// Store a mapping between single comment's line number to its text.
		comments := make(map[int]string)
		for _, group := range file.Comments {
			if len(group.List) != 1 {
				continue
			}
			comment := group.List[0]
			comments[pass.Fset.Position(comment.Pos()).Line] = comment.Text
		}

		for _, decl := range file.Decls {
			funcDecl, ok := decl.(*ast.FuncDecl)
			if !ok {
				continue
			}
			text, ok := comments[pass.Fset.Position(funcDecl.Pos()).Line]
			if !ok {
				continue
			}
			text = strings.TrimSpace(strings.TrimPrefix(text, "//"))
			if !strings.HasPrefix(text, prefix) {
				continue
			}
			funcObj, ok := pass.TypesInfo.Defs[funcDecl.Name].(*types.Func)
			if !ok {
				continue
			}
			results[funcObj.FullName()] = strings.Fields(strings.TrimPrefix(text, prefix))
		}
	}

	return results
}
