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

// Package diagnostic hosts the diagnostic engine, which is responsible for turning the verdicts
// of the guard analysis into user-friendly diagnostics, following the reporting policy.
package diagnostic

import (
	"cmp"
	"fmt"
	"go/ast"
	"slices"

	"go.uber.org/nilguard/config"
	"go.uber.org/nilguard/guard"
	"go.uber.org/nilguard/util/asthelper"
	"go.uber.org/nilguard/util/tokenhelper"
	"golang.org/x/tools/go/analysis"
)

// Engine is the main engine for generating diagnostics from verdicts.
type Engine struct {
	pass *analysis.Pass
	// reportAll reports every verdict, including guarded dereferences.
	reportAll bool
	noLint    []Range

	diagnostics []analysis.Diagnostic
	errors      []analysis.Diagnostic
}

// NewEngine creates a new diagnostic engine. Diagnostics falling into the nolint ranges are
// suppressed.
func NewEngine(pass *analysis.Pass, reportAll bool, noLint []Range) *Engine {
	return &Engine{pass: pass, reportAll: reportAll, noLint: noLint}
}

// ReportAll returns true if every verdict of the package should be reported, either because of
// the config, or because a file of the package carries the report-all string in its doc string.
func ReportAll(conf *config.Config, files []*ast.File) bool {
	if conf.ReportAll {
		return true
	}
	return slices.ContainsFunc(files, func(file *ast.File) bool {
		return asthelper.DocContains(file.Doc, config.NilGuardReportAllString)
	})
}

// AddVerdict adds a diagnostic for the verdict if the reporting policy asks for it:
//   - anti-nil guarded dereferences always panic, so they are always reported;
//   - not nil guarded dereferences are reported if the variable is checked against nil elsewhere
//     in the function, i.e., the guard is inconsistent;
//   - nil guarded dereferences are only reported in report-all mode.
func (e *Engine) AddVerdict(v guard.Verdict) {
	switch v.Kind {
	case guard.AntiGuarded:
	case guard.NotGuarded:
		if !v.Checked && !e.reportAll {
			return
		}
	case guard.Guarded:
		if !e.reportAll {
			return
		}
	default:
		return
	}

	if e.suppressed(v) {
		return
	}
	e.diagnostics = append(e.diagnostics, analysis.Diagnostic{
		Pos:     v.Pos,
		Message: e.message(v),
	})
}

// AddError adds a diagnostic for an internal error. Diagnostics with invalid positions (<= 0)
// will be silently suppressed, so here we use 1.
func (e *Engine) AddError(err error) {
	e.errors = append(e.errors, analysis.Diagnostic{Pos: 1, Message: "INTERNAL ERROR: " + err.Error()})
}

// Diagnostics returns the internal errors followed by the verdict diagnostics sorted by position.
func (e *Engine) Diagnostics() []analysis.Diagnostic {
	slices.SortStableFunc(e.diagnostics, func(a, b analysis.Diagnostic) int {
		return cmp.Compare(a.Pos, b.Pos)
	})
	return slices.Concat(e.errors, e.diagnostics)
}

func (e *Engine) message(v guard.Verdict) string {
	expr := asthelper.PrintExpr(v.Expr, e.pass.Fset, true /* isShortenExpr */)
	msg := fmt.Sprintf("`%s` dereferenced in `%s`: %s", v.Var.Name(), expr, v.Kind)
	if v.Kind == guard.NotGuarded && v.Checked {
		msg += " (checked against nil elsewhere in the function)"
	}
	return msg
}

func (e *Engine) suppressed(v guard.Verdict) bool {
	if len(e.noLint) == 0 {
		return false
	}
	pos := e.pass.Fset.Position(v.Pos)
	filename := tokenhelper.RelToCwd(pos.Filename)
	return slices.ContainsFunc(e.noLint, func(r Range) bool { return r.contains(filename, pos.Line) })
}
