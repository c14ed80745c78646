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
	"go/types"
	"regexp"
	"slices"

	"golang.org/x/tools/go/analysis"
)

// IsNoReturnCall returns true if the call never returns to the caller. Besides the builtin
// `panic`, the calls are either well-known terminating functions (`os.Exit`, `log.Fatal`,
// `runtime.Goexit`) or methods the ctrlflow analyzer cannot see through:
//
// `zap.Fatal`-related: they have complex logic that eventually calls a hook that is almost always
// configured to just panic (but we cannot infer that purely from code).
//
// `testing.TB.Fatal`-related: they are interface methods without implementations.
func IsNoReturnCall(pass *analysis.Pass, call *ast.CallExpr) bool {
	if ident, ok := ast.Unparen(call.Fun).(*ast.Ident); ok {
		if b, ok := pass.TypesInfo.Uses[ident].(*types.Builtin); ok && b.Name() == "panic" {
			return true
		}
	}
	return slices.ContainsFunc(_terminatingCalls, func(sig trustedFuncSig) bool { return sig.match(pass, call) })
}

var _terminatingCalls = []trustedFuncSig{
	// `os.Exit`
	{
		kind:           _func,
		enclosingRegex: regexp.MustCompile(`^os$`),
		funcNameRegex:  regexp.MustCompile(`^Exit$`),
	},
	// `log.Fatal` / `log.Fatalf` / `log.Fatalln` / `log.Panic` / `log.Panicf` / `log.Panicln`
	{
		kind:           _func,
		enclosingRegex: regexp.MustCompile(`^log$`),
		funcNameRegex:  regexp.MustCompile(`^(Fatal|Panic)(f|ln)?$`),
	},
	{
		kind:           _method,
		enclosingRegex: regexp.MustCompile(`^log\.Logger$`),
		funcNameRegex:  regexp.MustCompile(`^(Fatal|Panic)(f|ln)?$`),
	},
	// `runtime.Goexit`
	{
		kind:           _func,
		enclosingRegex: regexp.MustCompile(`^runtime$`),
		funcNameRegex:  regexp.MustCompile(`^Goexit$`),
	},
	// `zap.Logger.Fatal` / `zap.Logger.Panic`
	{
		kind:           _method,
		enclosingRegex: regexp.MustCompile(`^(stubs/)?go\.uber\.org/zap.Logger$`),
		funcNameRegex:  regexp.MustCompile(`^(Fatal|Panic)$`),
	},
	// `zap.SugaredLogger.Fatal` / `zap.SugaredLogger.Fatalf` / `zap.SugaredLogger.Fatalln` / `zap.SugaredLogger.Fatalw`
	{
		kind:           _method,
		enclosingRegex: regexp.MustCompile(`^(stubs/)?go\.uber\.org/zap.SugaredLogger$`),
		funcNameRegex:  regexp.MustCompile(`^Fatal(f|ln|w)?$`),
	},
	// `testing.TB`
	// since it is an interface rather than a concrete implementation, the control flow analyzer
	// will not be able to infer that this is a no-return function. So, here we model it.
	{
		kind:           _method,
		enclosingRegex: regexp.MustCompile(`^testing\.(TB|T|B|F)$`),
		funcNameRegex:  regexp.MustCompile(`^(Fatal|Fatalf|FailNow|SkipNow|Skip|Skipf)$`),
	},
}
