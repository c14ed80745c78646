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

// Package nilguard implements the top-level analyzer that simply retrieves the diagnostics from
// the accumulation analyzer and reports them.
package nilguard

import (
	"fmt"
	"regexp"

	"go.uber.org/nilguard/accumulation"
	"go.uber.org/nilguard/config"
	"golang.org/x/tools/go/analysis"
)

const _doc = "Run nilguard on this package to report dereferences whose nil guards are inconsistent " +
	"across the paths of the function, by splitting the control flow on boolean flags and nil checks"

// Analyzer is the top-level instance of Analyzer - it coordinates the entire dataflow to report
// the guard verdicts in this package. It is needed here for nogo to recognize the package.
var Analyzer = &analysis.Analyzer{
	Name:     "nilguard",
	Doc:      _doc,
	Run:      run,
	Requires: []*analysis.Analyzer{config.Analyzer, accumulation.Analyzer},
}

func run(pass *analysis.Pass) (interface{}, error) {
	conf := pass.ResultOf[config.Analyzer].(*config.Config)
	diagnostics := pass.ResultOf[accumulation.Analyzer].([]analysis.Diagnostic)
	for _, d := range diagnostics {
		if conf.PrettyPrint {
			d.Message = prettyPrintMessage(d.Message)
		}
		pass.Report(d)
	}

	return nil, nil
}

var (
	_codeReferencePattern = regexp.MustCompile("\\`(.*?)\\`")
	_verdictPattern       = regexp.MustCompile(`: ((?:not |anti-)?nil guarded)`)
)

// prettyPrintMessage is used in error reporting to post process and pretty print the output with colors
func prettyPrintMessage(msg string) string {
	errorStr := fmt.Sprintf("\x1b[%dm%s\x1b[0m", 31, "error: ")     // red
	codeStr := fmt.Sprintf("\u001B[%dm%s\u001B[0m", 95, "`${1}`")   // magenta
	verdictStr := fmt.Sprintf(": \u001B[%dm%s\u001B[0m", 1, "${1}") // bold

	msg = _verdictPattern.ReplaceAllString(msg, verdictStr)
	msg = _codeReferencePattern.ReplaceAllString(msg, codeStr)
	return errorStr + msg
}
