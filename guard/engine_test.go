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

package guard_test

import (
	"context"
	"fmt"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/nilguard/guard"
	"go.uber.org/nilguard/hook"
	"go.uber.org/nilguard/preprocess"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/cfg"
	"golang.org/x/tools/txtar"
)

// testContracts makes `assert(cond)` in the test sources an assertion function.
var testContracts = map[string][]hook.Contract{
	"p.assert": {{Kind: hook.AssertTrue, ArgIndex: 0}},
}

// testPackage is a type-checked single-file package.
type testPackage struct {
	pass *analysis.Pass
	file *ast.File
}

func loadPackage(t *testing.T, src []byte) *testPackage {
	t.Helper()

	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "src.go", src, parser.ParseComments)
	require.NoError(t, err)

	info := &types.Info{
		Types:      make(map[ast.Expr]types.TypeAndValue),
		Defs:       make(map[*ast.Ident]types.Object),
		Uses:       make(map[*ast.Ident]types.Object),
		Implicits:  make(map[ast.Node]types.Object),
		Selections: make(map[*ast.SelectorExpr]*types.Selection),
	}
	conf := types.Config{Importer: importer.ForCompiler(fset, "source", nil)}
	pkg, err := conf.Check("p", fset, []*ast.File{f}, info)
	require.NoError(t, err)

	return &testPackage{
		pass: &analysis.Pass{Fset: fset, Files: []*ast.File{f}, Pkg: pkg, TypesInfo: info},
		file: f,
	}
}

// mayReturn treats the builtin panic as the only call that does not return.
func (p *testPackage) mayReturn(call *ast.CallExpr) bool {
	ident, ok := ast.Unparen(call.Fun).(*ast.Ident)
	if !ok {
		return true
	}
	b, ok := p.pass.TypesInfo.Uses[ident].(*types.Builtin)
	return !ok || b.Name() != "panic"
}

// analyze runs the analysis on the named function declaration.
func (p *testPackage) analyze(ctx context.Context, t *testing.T, decl *ast.FuncDecl, opts guard.Options) ([]guard.Verdict, error) {
	t.Helper()

	graph, err := preprocess.New(p.pass, testContracts).CFG(cfg.New(decl.Body, p.mayReturn), decl)
	require.NoError(t, err)
	return guard.Analyze(ctx, p.pass.TypesInfo, decl, graph, opts)
}

func (p *testPackage) funcDecl(t *testing.T, name string) *ast.FuncDecl {
	t.Helper()

	for _, decl := range p.file.Decls {
		if d, ok := decl.(*ast.FuncDecl); ok && d.Name.Name == name {
			return d
		}
	}
	require.FailNow(t, "function not found", name)
	return nil
}

// verdictLines formats the verdicts of every function declaration in the package, one line per
// verdict: "<func> <var> <verdict>".
func (p *testPackage) verdictLines(t *testing.T, opts guard.Options) []string {
	t.Helper()

	var lines []string
	for _, decl := range p.file.Decls {
		funcDecl, ok := decl.(*ast.FuncDecl)
		if !ok || funcDecl.Body == nil {
			continue
		}
		verdicts, err := p.analyze(context.Background(), t, funcDecl, opts)
		require.NoError(t, err)
		for _, v := range verdicts {
			lines = append(lines, fmt.Sprintf("%s %s %s", funcDecl.Name.Name, v.Var.Name(), v.Kind))
		}
	}
	return lines
}

func splitLines(data []byte) []string {
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func TestAnalyze_Archives(t *testing.T) {
	t.Parallel()

	paths, err := filepath.Glob(filepath.Join("testdata", "*.txtar"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(strings.TrimSuffix(filepath.Base(path), ".txtar"), func(t *testing.T) {
			t.Parallel()

			archive, err := txtar.ParseFile(path)
			require.NoError(t, err)

			files := make(map[string][]byte)
			for _, f := range archive.Files {
				files[f.Name] = f.Data
			}
			require.Contains(t, files, "src.go")
			require.Contains(t, files, "want")

			pkg := loadPackage(t, files["src.go"])
			got := pkg.verdictLines(t, guard.Options{})
			if diff := cmp.Diff(splitLines(files["want"]), got); diff != "" {
				t.Errorf("verdicts mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

const _m2 = `package p

type stringer interface{ String() string }

func M2(b bool, o stringer) string {
	if b {
		if o != nil {
			return o.String()
		}
	}
	if b {
		o.String()
	}
	return o.String()
}
`

func TestAnalyze_MaxSplitsMergesContexts(t *testing.T) {
	t.Parallel()

	pkg := loadPackage(t, []byte(_m2))

	// With a single context per block, the flag no longer correlates with the nil check.
	got := pkg.verdictLines(t, guard.Options{MaxSplits: 1})
	want := []string{
		"M2 o nil guarded",
		"M2 o not nil guarded",
		"M2 o not nil guarded",
	}
	require.Equal(t, want, got)

	got = pkg.verdictLines(t, guard.Options{MaxSplits: 2})
	want[1] = "M2 o anti-nil guarded"
	require.Equal(t, want, got)
}

func TestAnalyze_VerdictFields(t *testing.T) {
	t.Parallel()

	pkg := loadPackage(t, []byte(`package p

type T struct{ f int }

func f(x *T, y *T) {
	if x != nil {
		_ = x.f
	}
	_ = y.f
}
`))
	verdicts, err := pkg.analyze(context.Background(), t, pkg.funcDecl(t, "f"), guard.Options{})
	require.NoError(t, err)
	require.Len(t, verdicts, 2)

	x, y := verdicts[0], verdicts[1]
	require.Equal(t, "x", x.Var.Name())
	require.Equal(t, guard.Guarded, x.Kind)
	require.True(t, x.Checked)
	require.IsType(t, &ast.SelectorExpr{}, x.Expr)
	require.Less(t, x.Pos, y.Pos)

	require.Equal(t, "y", y.Var.Name())
	require.Equal(t, guard.NotGuarded, y.Kind)
	require.False(t, y.Checked)
}

func TestAnalyze_AssertionMarksChecked(t *testing.T) {
	t.Parallel()

	pkg := loadPackage(t, []byte(`package p

type T struct{ f int }

func assert(b bool) {}

func f(x *T) {
	assert(x != nil)
	_ = x.f
}
`))
	verdicts, err := pkg.analyze(context.Background(), t, pkg.funcDecl(t, "f"), guard.Options{})
	require.NoError(t, err)
	require.Len(t, verdicts, 1)
	require.Equal(t, guard.Guarded, verdicts[0].Kind)
	require.True(t, verdicts[0].Checked)
}

func TestAnalyze_SwitchTagDereferencedOnce(t *testing.T) {
	t.Parallel()

	pkg := loadPackage(t, []byte(`package p

type T struct{ f int }

func f(x *T) {
	switch x.f {
	case 1:
	case 2:
	}
}
`))
	verdicts, err := pkg.analyze(context.Background(), t, pkg.funcDecl(t, "f"), guard.Options{})
	require.NoError(t, err)
	require.Len(t, verdicts, 1)
	require.Equal(t, guard.NotGuarded, verdicts[0].Kind)
}

func TestAnalyze_Canceled(t *testing.T) {
	t.Parallel()

	pkg := loadPackage(t, []byte(_m2))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pkg.analyze(ctx, t, pkg.funcDecl(t, "M2"), guard.Options{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestAnalyze_NoTrackedVars(t *testing.T) {
	t.Parallel()

	pkg := loadPackage(t, []byte(`package p

func f(n int) int {
	return n + 1
}
`))
	verdicts, err := pkg.analyze(context.Background(), t, pkg.funcDecl(t, "f"), guard.Options{})
	require.NoError(t, err)
	require.Empty(t, verdicts)
}

func TestAnalyze_FuncLit(t *testing.T) {
	t.Parallel()

	pkg := loadPackage(t, []byte(`package p

type T struct{ f int }

func f(x *T) func(*T) int {
	return func(y *T) int {
		if y == nil {
			return 0
		}
		return y.f + x.f
	}
}
`))
	var lit *ast.FuncLit
	ast.Inspect(pkg.funcDecl(t, "f"), func(n ast.Node) bool {
		if l, ok := n.(*ast.FuncLit); ok {
			lit = l
		}
		return lit == nil
	})
	require.NotNil(t, lit)

	graph, err := preprocess.New(pkg.pass, nil).CFG(cfg.New(lit.Body, pkg.mayReturn), lit)
	require.NoError(t, err)
	verdicts, err := guard.Analyze(context.Background(), pkg.pass.TypesInfo, lit, graph, guard.Options{})
	require.NoError(t, err)

	// The captured `x` belongs to the enclosing function.
	require.Len(t, verdicts, 1)
	require.Equal(t, "y", verdicts[0].Var.Name())
	require.Equal(t, guard.Guarded, verdicts[0].Kind)

	// The enclosing function does not look into the literal.
	verdicts, err = pkg.analyze(context.Background(), t, pkg.funcDecl(t, "f"), guard.Options{})
	require.NoError(t, err)
	require.Empty(t, verdicts)
}

func TestKind_String(t *testing.T) {
	t.Parallel()

	require.Equal(t, "nil guarded", guard.Guarded.String())
	require.Equal(t, "not nil guarded", guard.NotGuarded.String())
	require.Equal(t, "anti-nil guarded", guard.AntiGuarded.String())
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
