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

// Package function implements a sub-analyzer that runs the guard analysis on every function
// (declarations and literals) of the package, returning the verdicts of all dereferences.
package function

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"go/ast"
	"reflect"
	"runtime/debug"
	"slices"
	"sync"

	"go.uber.org/nilguard/assertfunc"
	"go.uber.org/nilguard/config"
	"go.uber.org/nilguard/guard"
	"go.uber.org/nilguard/preprocess"
	"go.uber.org/nilguard/util/analysishelper"
	"go.uber.org/nilguard/util/tokenhelper"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/ctrlflow"
	"golang.org/x/tools/go/cfg"
)

const _doc = "Run the path-splitting nil guard analysis on each function in this package, returning " +
	"the verdicts (nil guarded, not nil guarded or anti-nil guarded) of all dereferences"

// Analyzer runs the guard analysis on every function of the package.
var Analyzer = &analysis.Analyzer{
	Name:       "nilguard_function_analyzer",
	Doc:        _doc,
	Run:        analysishelper.WrapRun(run),
	ResultType: reflect.TypeOf((*analysishelper.Result[[]guard.Verdict])(nil)),
	Requires: []*analysis.Analyzer{
		config.Analyzer,
		ctrlflow.Analyzer,
		assertfunc.Analyzer,
	},
}

// functionResult is the struct that stores the results for analyzing a function.
type functionResult struct {
	verdicts []guard.Verdict
	err      error
	// index is the index of the function in the package, so that the results can be placed in
	// their original order even though the analyses run concurrently.
	index int
}

// function is a function to be analyzed, along with its (original) CFG.
type function struct {
	node  ast.Node
	graph *cfg.CFG
}

func run(pass *analysis.Pass) ([]guard.Verdict, error) {
	conf := pass.ResultOf[config.Analyzer].(*config.Config)
	if !conf.IsPkgInScope(pass.Pkg) {
		return nil, nil
	}

	contracts, err := analysishelper.Unwrap[assertfunc.Map](pass, assertfunc.Analyzer)
	if err != nil {
		return nil, err
	}

	funcs := collectFuncs(pass, conf)
	preprocessor := preprocess.New(pass, contracts)
	opts := guard.Options{MaxSplits: conf.MaxSplits, MaxRounds: config.MaxFixpointRounds}

	ctx := context.Background()
	var wg sync.WaitGroup
	funcChan := make(chan functionResult)
	for i, f := range funcs {
		wg.Add(1)
		go analyzeFunc(ctx, pass, preprocessor, f, opts, i, funcChan, &wg)
	}

	// Close the channel when all analyses are done so that the receiving loop below terminates.
	go func() {
		wg.Wait()
		close(funcChan)
	}()

	var errs []error
	funcVerdicts := make([][]guard.Verdict, len(funcs))
	for r := range funcChan {
		if r.err != nil {
			errs = append(errs, r.err)
			continue
		}
		funcVerdicts[r.index] = r.verdicts
	}

	verdicts := slices.Concat(funcVerdicts...)
	slices.SortStableFunc(verdicts, func(a, b guard.Verdict) int { return cmp.Compare(a.Pos, b.Pos) })
	return verdicts, errors.Join(errs...)
}

// collectFuncs collects the function declarations and literals of the files in scope, in
// depth-first order. Functions without bodies, without CFGs, or larger than the size limit are
// skipped.
func collectFuncs(pass *analysis.Pass, conf *config.Config) []function {
	cfgs := pass.ResultOf[ctrlflow.Analyzer].(*ctrlflow.CFGs)

	var funcs []function
	for _, file := range pass.Files {
		if !conf.IsFileInScope(file) {
			continue
		}
		ast.Inspect(file, func(node ast.Node) bool {
			var (
				body  *ast.BlockStmt
				graph *cfg.CFG
			)
			switch f := node.(type) {
			case *ast.FuncDecl:
				body, graph = f.Body, cfgs.FuncDecl(f)
			case *ast.FuncLit:
				body, graph = f.Body, cfgs.FuncLit(f)
			default:
				return true
			}
			if body == nil || graph == nil {
				return true
			}
			if int(body.Rbrace-body.Lbrace) > config.MaxFuncSizeInBytes {
				// Function literals nested in an oversized function are oversized as well.
				return false
			}
			funcs = append(funcs, function{node: node, graph: graph})
			return true
		})
	}
	return funcs
}

// analyzeFunc preprocesses the CFG of a function and runs the guard analysis on it. The result
// (or an error) is sent via the channel exactly once.
func analyzeFunc(
	ctx context.Context,
	pass *analysis.Pass,
	preprocessor *preprocess.Preprocessor,
	f function,
	opts guard.Options,
	index int,
	funcChan chan<- functionResult,
	wg *sync.WaitGroup,
) {
	defer wg.Done()
	// As a last resort, convert the panics into errors.
	defer func() {
		if r := recover(); r != nil {
			e := fmt.Errorf("INTERNAL PANIC: %s\n%s", r, string(debug.Stack()))
			funcChan <- functionResult{err: e, index: index}
		}
	}()

	ctx, cancel := funcContext(ctx)
	defer cancel()
	verdicts, err := func() ([]guard.Verdict, error) {
		graph, err := preprocessor.CFG(f.graph, f.node)
		if err != nil {
			return nil, fmt.Errorf("preprocess: %w", err)
		}
		return guard.Analyze(ctx, pass.TypesInfo, f.node, graph, opts)
	}()
	if err != nil {
		pos := tokenhelper.ShortPosition(pass.Fset.Position(f.node.Pos()), 1 /* dirLevels */)
		err = fmt.Errorf("analyzing %s at %s: %w", funcName(f.node), pos, err)
	}

	funcChan <- functionResult{verdicts: verdicts, err: err, index: index}
}

// funcContext returns the context for analyzing a single function: every function gets its own
// time budget, so a slow function does not cancel the analyses of the others.
func funcContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, config.AnalysisTimeout)
}

func funcName(node ast.Node) string {
	if decl, ok := node.(*ast.FuncDecl); ok {
		return "function " + decl.Name.Name
	}
	return "function literal"
}
