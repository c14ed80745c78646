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

package guard

import (
	"cmp"
	"context"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"slices"

	"go.uber.org/nilguard/util/orderedmap"
	"go.uber.org/nilguard/util/typeshelper"
	"golang.org/x/tools/go/cfg"
)

// analyzer holds the state of the analysis of one function.
type analyzer struct {
	info    *types.Info
	tracked *tracked
	opts    Options
}

// Analyze runs the guard analysis on the CFG of the function node (an *ast.FuncDecl or an
// *ast.FuncLit) and returns the verdicts of all reachable dereferences of tracked variables,
// sorted by position. The CFG is expected to be preprocessed: assertions split into branches and
// conditions canonicalized.
func Analyze(ctx context.Context, info *types.Info, fn ast.Node, graph *cfg.CFG, opts Options) ([]Verdict, error) {
	if graph == nil || len(graph.Blocks) == 0 {
		return nil, nil
	}
	a := &analyzer{info: info, tracked: collectTracked(info, fn), opts: opts.withDefaults()}
	if len(a.tracked.vars) == 0 {
		return nil, nil
	}

	entries, err := a.fixpoint(ctx, graph)
	if err != nil {
		return nil, err
	}
	return a.verdicts(graph, entries), nil
}

// initialState returns the state at the function entry: parameters are unknown and named results
// start at their zero values.
func (a *analyzer) initialState() State {
	s := newState(len(a.tracked.vars))
	for _, i := range a.tracked.results {
		s = s.Set(i, a.zeroValue(i))
	}
	return s
}

func (a *analyzer) zeroValue(i int) Value {
	if a.tracked.isBool(i) {
		return False
	}
	return Nil
}

// edge is the set of split contexts flowing to a successor block.
type edge struct {
	to     *cfg.Block
	states *StateSet
}

// fixpoint computes the entry contexts of every reachable block. A block's entry set is the union
// of the contexts flowing from its predecessors and only grows, so the computation terminates once
// no set changes.
func (a *analyzer) fixpoint(ctx context.Context, graph *cfg.CFG) (map[*cfg.Block]*StateSet, error) {
	start := graph.Blocks[0]
	entries := map[*cfg.Block]*StateSet{start: NewStateSet(a.initialState())}
	visits := make(map[*cfg.Block]int)
	queue := []*cfg.Block{start}
	queued := map[*cfg.Block]bool{start: true}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		block := queue[0]
		queue = queue[1:]
		queued[block] = false

		visits[block]++
		if visits[block] > a.opts.MaxRounds {
			return nil, fmt.Errorf("no fixpoint reached for block %d after %d rounds", block.Index, a.opts.MaxRounds)
		}

		for _, e := range a.flow(entries[block], block, nil) {
			if e.states.Empty() {
				continue
			}
			entry, ok := entries[e.to]
			changed := !ok
			if !ok {
				entry = NewStateSet()
				entries[e.to] = entry
			}
			if entry.Union(e.states) {
				changed = true
			}
			if entry.Limit(a.opts.MaxSplits) {
				changed = true
			}
			if changed && !queued[e.to] {
				queued[e.to] = true
				queue = append(queue, e.to)
			}
		}
	}
	return entries, nil
}

// branchCond returns the condition of a branching block, i.e., the last node of a block with two
// successors, where the first successor is taken when the condition is true.
func branchCond(block *cfg.Block) ast.Expr {
	if len(block.Succs) != 2 || len(block.Nodes) == 0 {
		return nil
	}
	cond, _ := block.Nodes[len(block.Nodes)-1].(ast.Expr)
	return cond
}

// flow runs the contexts through the block and returns the contexts flowing to each successor.
// If visit is not nil, it is called for every dereference with the contexts reaching it.
func (a *analyzer) flow(states *StateSet, block *cfg.Block, visit func(*StateSet, deref)) []edge {
	states = states.Clone()
	nodes := block.Nodes
	cond := branchCond(block)
	if cond != nil {
		nodes = nodes[:len(nodes)-1]
	}

	for _, node := range nodes {
		if visit != nil {
			a.visitDerefs(states, node, visit)
		}
		states = a.transfer(states, node)
		states.Limit(a.opts.MaxSplits)
	}

	if cond != nil {
		if visit != nil {
			a.visitDerefs(states, cond, visit)
		}
		return []edge{
			{to: block.Succs[0], states: a.refine(states, cond, true)},
			{to: block.Succs[1], states: a.refine(states, cond, false)},
		}
	}

	edges := make([]edge, 0, len(block.Succs))
	for _, succ := range block.Succs {
		edges = append(edges, edge{to: succ, states: states})
	}
	return edges
}

// visitDerefs calls visit for every dereference in the node, with the contexts reaching it. The
// right operand of `&&` and `||` only sees the contexts where it is evaluated. Function literals
// are analyzed on their own and skipped.
func (a *analyzer) visitDerefs(states *StateSet, node ast.Node, visit func(*StateSet, deref)) {
	ast.Inspect(node, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.FuncLit:
			return false
		case *ast.BinaryExpr:
			if n.Op == token.LAND || n.Op == token.LOR {
				a.visitDerefs(states, n.X, visit)
				a.visitDerefs(a.refine(states, n.X, n.Op == token.LAND), n.Y, visit)
				return false
			}
		}
		if d, ok := a.derefOf(n); ok {
			visit(states, d)
		}
		return true
	})
}

// transfer returns the contexts after the node executes.
func (a *analyzer) transfer(states *StateSet, node ast.Node) *StateSet {
	switch n := node.(type) {
	case *ast.AssignStmt:
		if n.Tok != token.ASSIGN && n.Tok != token.DEFINE {
			return states
		}
		return a.assign(states, n.Lhs, n.Rhs)
	case *ast.ValueSpec:
		lhs := make([]ast.Expr, len(n.Names))
		for i, name := range n.Names {
			lhs[i] = name
		}
		if len(n.Values) == 0 {
			return states.Map(func(s State) []State {
				for _, l := range lhs {
					if i, ok := a.trackedExpr(l); ok {
						s = s.Set(i, a.zeroValue(i))
					}
				}
				return []State{s}
			})
		}
		return a.assign(states, lhs, n.Values)
	}
	return states
}

// assign returns the contexts after assigning rhs to lhs.
func (a *analyzer) assign(states *StateSet, lhs, rhs []ast.Expr) *StateSet {
	// A boolean assigned an interpretable condition splits the contexts: the flag is true exactly
	// where the condition holds.
	if len(lhs) == 1 && len(rhs) == 1 {
		if i, ok := a.trackedExpr(lhs[0]); ok && a.tracked.isBool(i) && a.interpretable(rhs[0]) {
			out := a.refine(states, rhs[0], true).Map(func(s State) []State {
				return []State{s.Set(i, True)}
			})
			out.Union(a.refine(states, rhs[0], false).Map(func(s State) []State {
				return []State{s.Set(i, False)}
			}))
			return out
		}
	}

	// Multi-value assignments, e.g., `v, ok := m[k]` or range assignments.
	if len(lhs) != len(rhs) {
		return states.Map(func(s State) []State {
			for _, l := range lhs {
				if i, ok := a.trackedExpr(l); ok {
					s = s.Set(i, Unknown)
				}
			}
			return []State{s}
		})
	}

	return states.Map(func(s State) []State {
		// All right-hand sides are evaluated before any assignment, e.g., `x, y = y, x`.
		values := make([]Value, len(rhs))
		for j, r := range rhs {
			if i, ok := a.trackedExpr(lhs[j]); ok {
				values[j] = a.valueOf(s, a.tracked.vars[i].Type(), r)
			}
		}
		for j, l := range lhs {
			if i, ok := a.trackedExpr(l); ok {
				s = s.Set(i, values[j])
			}
		}
		return []State{s}
	})
}

// valueOf returns the abstract value of rhs assigned to a variable of type lhs.
func (a *analyzer) valueOf(s State, lhs types.Type, rhs ast.Expr) Value {
	rhs = ast.Unparen(rhs)
	if typeshelper.IsBool(lhs) {
		if c, ok := a.boolConst(rhs); ok {
			return boolValue(c)
		}
		switch e := rhs.(type) {
		case *ast.Ident:
			if i, ok := a.varIndex(e); ok && a.tracked.isBool(i) {
				return s.Get(i)
			}
		case *ast.UnaryExpr:
			if e.Op == token.NOT {
				return negate(a.valueOf(s, lhs, e.X))
			}
		}
		return Unknown
	}

	if a.isNil(rhs) {
		return Nil
	}
	// A concrete value stored in an interface makes a non-nil interface, even a nil pointer.
	if typeshelper.IsInterface(lhs) {
		if t := a.info.TypeOf(rhs); t != nil && !types.IsInterface(t) {
			return NonNil
		}
	}

	switch e := rhs.(type) {
	case *ast.Ident:
		if i, ok := a.varIndex(e); ok && !a.tracked.isBool(i) {
			return s.Get(i)
		}
		if _, ok := a.info.Uses[e].(*types.Func); ok {
			return NonNil
		}
	case *ast.UnaryExpr:
		if e.Op == token.AND {
			return NonNil
		}
	case *ast.FuncLit:
		return NonNil
	case *ast.SelectorExpr:
		if sel, ok := a.info.Selections[e]; ok && sel.Kind() == types.MethodVal {
			return NonNil
		}
		if _, ok := a.info.Uses[e.Sel].(*types.Func); ok {
			return NonNil
		}
	case *ast.CallExpr:
		if ident, ok := ast.Unparen(e.Fun).(*ast.Ident); ok {
			if b, ok := a.info.Uses[ident].(*types.Builtin); ok && (b.Name() == "new" || b.Name() == "make") {
				return NonNil
			}
		}
	}
	return Unknown
}

// varIndex returns the index of the tracked variable the identifier refers to.
func (a *analyzer) varIndex(ident *ast.Ident) (int, bool) {
	obj := a.info.Uses[ident]
	if obj == nil {
		obj = a.info.Defs[ident]
	}
	v, ok := obj.(*types.Var)
	if !ok {
		return 0, false
	}
	i, ok := a.tracked.index[v]
	return i, ok
}

// trackedExpr returns the index of the tracked variable the expression is.
func (a *analyzer) trackedExpr(expr ast.Expr) (int, bool) {
	ident, ok := ast.Unparen(expr).(*ast.Ident)
	if !ok {
		return 0, false
	}
	return a.varIndex(ident)
}

// observation accumulates the values of a dereferenced variable over all contexts reaching the
// dereference.
type observation struct {
	deref                   deref
	nils, nonNils, unknowns bool
}

func (o *observation) kind() Kind {
	switch {
	case o.nonNils && !o.nils && !o.unknowns:
		return Guarded
	case o.nils && !o.nonNils && !o.unknowns:
		return AntiGuarded
	default:
		return NotGuarded
	}
}

// verdicts visits every reachable block with its entry contexts and returns the verdict of each
// dereference. A dereference may be visited more than once when its expression is repeated in the
// preprocessed CFG (e.g., a switch tag); the observations are merged.
func (a *analyzer) verdicts(graph *cfg.CFG, entries map[*cfg.Block]*StateSet) []Verdict {
	observations := orderedmap.New[ast.Expr, *observation]()
	for _, block := range graph.Blocks {
		entry, ok := entries[block]
		if !ok || entry.Empty() {
			continue
		}
		a.flow(entry, block, func(states *StateSet, d deref) {
			if states.Empty() {
				return
			}
			o, ok := observations.Load(d.expr)
			if !ok {
				o = &observation{deref: d}
				observations.Store(d.expr, o)
			}
			for _, s := range states.States() {
				switch s.Get(d.index) {
				case Nil:
					o.nils = true
				case NonNil:
					o.nonNils = true
				default:
					o.unknowns = true
				}
			}
		})
	}

	checked := a.checkedVars(graph)
	verdicts := make([]Verdict, 0, observations.Len())
	observations.OrderedRange(func(_ ast.Expr, o *observation) bool {
		verdicts = append(verdicts, Verdict{
			Kind:    o.kind(),
			Var:     a.tracked.vars[o.deref.index],
			Expr:    o.deref.expr,
			Pos:     o.deref.ident.Pos(),
			Checked: checked[o.deref.index],
		})
		return true
	})
	slices.SortStableFunc(verdicts, func(x, y Verdict) int {
		return cmp.Compare(x.Pos, y.Pos)
	})
	return verdicts
}

// checkedVars returns the indices of the tracked variables compared against nil anywhere in the
// preprocessed CFG, which includes the conditions of assertions.
func (a *analyzer) checkedVars(graph *cfg.CFG) map[int]bool {
	checked := make(map[int]bool)
	for _, block := range graph.Blocks {
		for _, node := range block.Nodes {
			ast.Inspect(node, func(n ast.Node) bool {
				switch n := n.(type) {
				case *ast.FuncLit:
					return false
				case *ast.BinaryExpr:
					if n.Op == token.EQL || n.Op == token.NEQ {
						if i, ok := a.nilComparison(n); ok {
							checked[i] = true
						}
					}
				}
				return true
			})
		}
	}
	return checked
}
