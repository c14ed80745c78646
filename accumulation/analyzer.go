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

// Package accumulation coordinates the entire workflow: it collects the verdicts of the guard
// analysis on all functions of the package, and runs them through the diagnostic engine to
// generate all diagnostics for the upper-level analyzer to report.
package accumulation

import (
	"fmt"
	"reflect"
	"runtime/debug"

	"go.uber.org/nilguard/config"
	"go.uber.org/nilguard/diagnostic"
	"go.uber.org/nilguard/function"
	"go.uber.org/nilguard/guard"
	"go.uber.org/nilguard/util/analysishelper"
	"golang.org/x/tools/go/analysis"
)

const _doc = "Read the verdicts of the guard analysis and the nolint ranges of this package as Results " +
	"from the corresponding Analyzers, and apply the reporting policy to obtain a list of diagnostics " +
	"that a later analyzer will report"

// Analyzer here is the accumulator that turns verdicts into the diagnostics to be reported.
var Analyzer = &analysis.Analyzer{
	Name:       "nilguard_accumulation_analyzer",
	Doc:        _doc,
	Run:        run,
	Requires:   []*analysis.Analyzer{config.Analyzer, function.Analyzer, diagnostic.NoLintAnalyzer},
	ResultType: reflect.TypeOf(([]analysis.Diagnostic)(nil)),
}

func run(pass *analysis.Pass) (result interface{}, _ error) {
	// As a last resort, we recover from a panic when running the analyzer, convert the panic to
	// a diagnostic and return.
	defer func() {
		if r := recover(); r != nil {
			// Deferred functions are executed after a result is generated, so here we modify the
			// return value `result` in-place.
			// Diagnostics with invalid positions (<= 0) will be silently suppressed, so here we use 1.
			d := analysis.Diagnostic{Pos: 1, Message: fmt.Sprintf("INTERNAL PANIC: %s\n%s", r, string(debug.Stack()))}
			if diagnostics, ok := result.([]analysis.Diagnostic); ok {
				result = append(diagnostics, d)
			} else {
				result = []analysis.Diagnostic{d}
			}
		}
	}()

	conf := pass.ResultOf[config.Analyzer].(*config.Config)
	if !conf.IsPkgInScope(pass.Pkg) {
		// Must return a typed nil since the driver is using reflection to retrieve the result.
		return ([]analysis.Diagnostic)(nil), nil
	}

	// A function that failed is missing from the verdicts, so the partial verdicts of the other
	// functions are still reported along with the errors.
	noLint, noLintErr := analysishelper.Unwrap[[]diagnostic.Range](pass, diagnostic.NoLintAnalyzer)
	verdicts, verdictsErr := analysishelper.Unwrap[[]guard.Verdict](pass, function.Analyzer)

	engine := diagnostic.NewEngine(pass, diagnostic.ReportAll(conf, pass.Files), noLint)
	for _, err := range [...]error{noLintErr, verdictsErr} {
		if err != nil {
			engine.AddError(err)
		}
	}
	for _, v := range verdicts {
		engine.AddVerdict(v)
	}
	return engine.Diagnostics(), nil
}
