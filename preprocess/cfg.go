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

package preprocess

import (
	"fmt"
	"go/ast"
	"go/token"

	"go.uber.org/nilguard/hook"
	"go.uber.org/nilguard/util/asthelper"
	"golang.org/x/tools/go/cfg"
)

// CFG performs several passes on the CFG of the function node (an *ast.FuncDecl or an
// *ast.FuncLit) and returns a shallow copy of the modified CFG, with the original CFG untouched.
//
// Specifically, it performs the following modifications to the CFG:
//
// Truncate blocks on calls that never return (e.g., `t.Fatal()`).
//
// Split blocks on assertions:
// - replace `assert(cond); rest` with `if cond {rest} else {failure}`, where failure is a dead end
//
// Canonicalize conditionals:
// - replace `if !cond {T} {F}` with `if cond {F} {T}` (swap successors)
// - replace `if cond1 && cond2 {T} {F}` with `if cond1 {if cond2 {T} else {F}}{F}` (nesting)
// - replace `if cond1 || cond2 {T} {F}` with `if cond1 {T} else {if cond2 {T} else {F}}` (nesting)
//
// Canonicalize nil comparisons:
// - replace `if x != nil {T} {F}` with `if x == nil {F} {T}` (swap successors)
// - replace `nil == x {T} {F}` with `if x == nil {T} {F}` (swap comparison order)
//
// Canonicalize explicit boolean comparisons:
// - replace `if x == true {T} {F}` with `if x {T} {F}`
// - replace `if x == false {T} {F}` with `if !x {T} {F}`
//
// Re-insert the range assignments and switch tag comparisons lost during the CFG build.
func (p *Preprocessor) CFG(graph *cfg.CFG, fn ast.Node) (*cfg.CFG, error) {
	// The ASTs and CFGs are shared across all analyzers, so we should never modify them directly.
	// Here, we make a copy of the graph (and all blocks in it) and modify the copied graph instead.
	graph = copyGraph(graph)

	// Important: add all new blocks to the end, don't try to "move around" any existing blocks
	// because they're all referenced by index!

	// Create a failure block at the end of the blocks list to be used for failed assertions.
	failureBlock := &cfg.Block{Index: int32(len(graph.Blocks)), Kind: cfg.KindUnreachable}
	graph.Blocks = append(graph.Blocks, failureBlock)

	// The order of these transformations matters: splitting blocks may produce non-canonical
	// conditions, so it runs before canonicalization.
	for _, block := range graph.Blocks {
		if block.Live {
			p.restructureOnNoReturnCall(block)
		}
	}
	for _, block := range graph.Blocks {
		if block.Live {
			p.splitBlockOnAssertions(graph, block, failureBlock)
		}
	}
	for _, block := range graph.Blocks {
		if block.Live {
			canonicalizeConditional(graph, block)
		}
	}

	// Next, we need to re-insert information that is lost during CFG build for *ast.RangeStmt
	// and *ast.SwitchStmt by iterating through all blocks. This requires knowing the links between
	// the nodes contained within a block to their parents (*ast.RangeStmt or *ast.SwitchStmt nodes).
	rangeChildren, switchChildren := collectChildren(fn)
	markRangeStatements(graph, rangeChildren)
	if err := markSwitchStatements(graph, switchChildren); err != nil {
		return nil, err
	}

	return graph, nil
}

// copyGraph makes a semi-deep copy of the CFG and returns the copied graph. Note that only the
// graph itself is copied, i.e., the blocks and their edges (via block.Succs). The referenced AST
// nodes are _not_ copied (meaning we still should not modify the underlying AST nodes), but the
// slice storing the AST nodes (i.e., cfg.Block.Nodes) in each block is shallow-copied for modifications.
func copyGraph(graph *cfg.CFG) *cfg.CFG {
	// For some large graphs, a recursion-based approach will exceed the runtime stack size limit.
	// So we run two iterations, one simply copying the blocks without copying the edges (Succs),
	// and another that copies the edges.
	newGraph := &cfg.CFG{}

	copiedBlocks := make(map[*cfg.Block]*cfg.Block, len(graph.Blocks))
	for _, block := range graph.Blocks {
		newBlock := &cfg.Block{
			Nodes: append([]ast.Node(nil), block.Nodes...),
			Live:  block.Live,
			Index: block.Index,
			Kind:  block.Kind,
			Stmt:  block.Stmt,
		}
		newGraph.Blocks = append(newGraph.Blocks, newBlock)
		copiedBlocks[block] = newBlock
	}

	// All blocks must have already been copied.
	for i, newBlock := range newGraph.Blocks {
		for _, succ := range graph.Blocks[i].Succs {
			newBlock.Succs = append(newBlock.Succs, copiedBlocks[succ])
		}
	}

	return newGraph
}

func (p *Preprocessor) restructureOnNoReturnCall(block *cfg.Block) {
	if len(block.Nodes) == 0 || len(block.Succs) == 0 {
		return
	}

	for i, node := range block.Nodes {
		call := exprStmtCall(node)
		if call == nil {
			continue
		}
		if hook.IsNoReturnCall(p.pass, call) {
			// Keep the call itself since its arguments are still evaluated.
			block.Nodes = block.Nodes[:i+1]
			block.Succs = nil
			return
		}
	}
}

// splitBlockOnAssertions splits the CFG block into two parts upon seeing an assertion call, either
// from the hook framework (e.g., "require.Nil(t, arg)") or with a known contract (e.g., an inferred
// `debug.Assert(arg != nil)`), into "if cond { <all code after> } else { <failure> }". This does
// not expect the CFG to be in canonical form, and it may change the CFG structure in a way that it
// needs to be re-canonicalized.
func (p *Preprocessor) splitBlockOnAssertions(graph *cfg.CFG, thisBlock, failureBlock *cfg.Block) {
	for i, node := range thisBlock.Nodes {
		call := exprStmtCall(node)
		if call == nil {
			continue
		}
		cond := p.assertedCond(call)
		if cond == nil {
			continue
		}

		newBlock := &cfg.Block{
			Nodes: append([]ast.Node{}, thisBlock.Nodes[i+1:]...),
			Succs: thisBlock.Succs,
			Index: int32(len(graph.Blocks)),
			Live:  true,
			Kind:  thisBlock.Kind,
			Stmt:  thisBlock.Stmt,
		}
		graph.Blocks = append(graph.Blocks, newBlock)
		thisBlock.Nodes = append(thisBlock.Nodes[:i+1], cond)
		thisBlock.Succs = []*cfg.Block{newBlock, failureBlock}
		failureBlock.Live = true
		p.splitBlockOnAssertions(graph, newBlock, failureBlock)
		return
	}
}

// assertedCond returns the condition that holds after the call returns normally, or nil if the
// call is not an assertion.
func (p *Preprocessor) assertedCond(call *ast.CallExpr) ast.Expr {
	if cond := hook.SplitBlockOn(p.pass, call); cond != nil {
		return cond
	}
	contracts, ok := hook.FuncContract(p.pass, call, p.contracts)
	if !ok {
		return nil
	}
	var cond ast.Expr
	for _, c := range contracts {
		next := c.Cond(call)
		if next == nil {
			continue
		}
		if cond == nil {
			cond = next
			continue
		}
		cond = &ast.BinaryExpr{X: cond, OpPos: next.Pos(), Op: token.LAND, Y: next}
	}
	return cond
}

func exprStmtCall(node ast.Node) *ast.CallExpr {
	expr, ok := node.(*ast.ExprStmt)
	if !ok {
		return nil
	}
	call, _ := ast.Unparen(expr.X).(*ast.CallExpr)
	return call
}

// canonicalizeConditional canonicalizes the conditional CFG structures to make it easier to reason
// about control flows later. For example, it rewrites
// `if !cond {T} {F}` to `if cond {F} {T}` (swap successors), and rewrites
// `if cond1 && cond2 {T} {F}` to `if cond1 {if cond2 {T} else {F}}{F}` (nesting).
func canonicalizeConditional(graph *cfg.CFG, thisBlock *cfg.Block) {
	// We only restructure non-empty branching blocks.
	if len(thisBlock.Nodes) == 0 || len(thisBlock.Succs) != 2 {
		return
	}

	trueBranch := thisBlock.Succs[0]
	falseBranch := thisBlock.Succs[1]

	// The conditional expr is the last node in the block.
	replaceCond := func(node ast.Node) { thisBlock.Nodes[len(thisBlock.Nodes)-1] = node }
	replaceTrueBranch := func(block *cfg.Block) { thisBlock.Succs[0] = block }
	replaceFalseBranch := func(block *cfg.Block) { thisBlock.Succs[1] = block }
	swapTrueFalseBranches := func() { replaceTrueBranch(falseBranch); replaceFalseBranch(trueBranch) }

	cond, ok := thisBlock.Nodes[len(thisBlock.Nodes)-1].(ast.Expr)
	if !ok {
		return
	}

	switch cond := cond.(type) {
	case *ast.ParenExpr:
		// Strip and restart, recursion accounts for ((((x)))).
		replaceCond(cond.X)
		canonicalizeConditional(graph, thisBlock)
	case *ast.UnaryExpr:
		if cond.Op == token.NOT {
			swapTrueFalseBranches()
			replaceCond(cond.X)
			canonicalizeConditional(graph, thisBlock)
		}
	case *ast.BinaryExpr:
		// Logical AND and Logical OR require the exact same short circuiting behavior except for
		// whether the true or false branch leads to the short circuiting.
		binShortCircuit := func(replaceWhichBranch bool) {
			replaceCond(cond.X)
			newBlock := &cfg.Block{
				Nodes: []ast.Node{cond.Y},
				Succs: []*cfg.Block{trueBranch, falseBranch},
				Index: int32(len(graph.Blocks)),
				Live:  true,
				Kind:  thisBlock.Kind,
				Stmt:  thisBlock.Stmt,
			}
			if replaceWhichBranch {
				replaceTrueBranch(newBlock)
			} else {
				replaceFalseBranch(newBlock)
			}
			graph.Blocks = append(graph.Blocks, newBlock)
			canonicalizeConditional(graph, thisBlock)
			canonicalizeConditional(graph, newBlock)
		}

		// Standardize binary expressions to be of the form `expr OP literal` by swapping `x` and
		// `y`, if `x` is a literal. For example, standardizes `nil == v` to the `v == nil` form.
		x, y := cond.X, cond.Y
		if asthelper.IsLiteral(x, "nil", "true", "false") {
			replaceCond(&ast.BinaryExpr{X: y, Y: x, Op: cond.Op, OpPos: cond.OpPos})
			x, y = y, x
		}

		// We _should not_ directly modify the AST nodes, since they are shared across other
		// analyzers. Instead, whenever a rewrite is needed we create a new AST node and replace
		// the node pointer in the block.Nodes slice.
		switch cond.Op {
		case token.LAND:
			binShortCircuit(true)
		case token.LOR:
			binShortCircuit(false)
		case token.NEQ:
			// `x != nil` -> `x == nil`, swapping the true and false branches.
			if asthelper.IsLiteral(y, "nil") {
				replaceCond(&ast.BinaryExpr{X: x, Y: y, Op: token.EQL, OpPos: cond.OpPos})
				swapTrueFalseBranches()
				break
			}
			// `ok != false` -> `ok`, `ok != true` -> `!ok`.
			if asthelper.IsLiteral(y, "false") {
				replaceCond(x)
				canonicalizeConditional(graph, thisBlock)
			} else if asthelper.IsLiteral(y, "true") {
				replaceCond(&ast.UnaryExpr{OpPos: y.Pos(), Op: token.NOT, X: x})
				canonicalizeConditional(graph, thisBlock)
			}
		case token.EQL:
			// `ok == true` -> `ok`, `ok == false` -> `!ok`.
			if asthelper.IsLiteral(y, "true") {
				replaceCond(x)
				canonicalizeConditional(graph, thisBlock)
			} else if asthelper.IsLiteral(y, "false") {
				replaceCond(&ast.UnaryExpr{OpPos: y.Pos(), Op: token.NOT, X: x})
				canonicalizeConditional(graph, thisBlock)
			}
		}
	}
}

// collectChildren establishes the links between the range / switch statement nodes and their child
// nodes. When we rewrite the CFG to re-insert the lost information, we need to know if a block in
// the CFG belongs to a certain range statement or switch statement AST node.
func collectChildren(fn ast.Node) (map[ast.Node]*ast.RangeStmt, map[ast.Node]*ast.SwitchStmt) {
	rangeChildren, switchChildren := make(map[ast.Node]*ast.RangeStmt), make(map[ast.Node]*ast.SwitchStmt)

	ast.Inspect(fn, func(node ast.Node) bool {
		switch n := node.(type) {
		case *ast.RangeStmt:
			if n.Key != nil {
				rangeChildren[n.Key] = n
			}
			if n.Value != nil {
				rangeChildren[n.Value] = n
			}
			rangeChildren[n.X] = n
			rangeChildren[n.Body] = n
		case *ast.SwitchStmt:
			if n.Tag != nil {
				switchChildren[n.Tag] = n
			}
		}
		return true
	})

	return rangeChildren, switchChildren
}

// markRangeStatements rewrites a cfg to reflect ranging loops: the assignments in a
// `for ... range y {}` loop are erased in the CFG, so we match on the structure of all blocks and
// their AST nodes to rediscover and reinsert these assignments. A `for range` loop with no
// assignments gets a fresh *ast.UnaryExpr simply indicating that this is a range.
func markRangeStatements(graph *cfg.CFG, rangeChildren map[ast.Node]*ast.RangeStmt) {
	for _, block := range graph.Blocks {
		n := len(block.Nodes)
		if n < 1 {
			continue
		}

		rangeStmt := rangeChildren[block.Nodes[n-1]]
		if rangeStmt == nil {
			continue
		}

		rawRangeExpr := &ast.UnaryExpr{
			OpPos: rangeStmt.For,
			Op:    token.RANGE,
			X:     rangeStmt.X,
		}
		rangeAssign := func(lhs ...ast.Expr) *ast.AssignStmt {
			return &ast.AssignStmt{
				Lhs:    lhs,
				TokPos: rangeStmt.TokPos,
				Tok:    rangeStmt.Tok,
				Rhs:    []ast.Expr{rawRangeExpr},
			}
		}

		switch {
		case rangeStmt.Key == nil:
			// `for range expr {}`
			if rangeStmt.X == block.Nodes[n-1] {
				block.Nodes = append(block.Nodes[:n-1], rawRangeExpr)
			}
		case rangeStmt.Value == nil:
			// `for x := range expr {}`
			if n >= 2 && rangeStmt.Key == block.Nodes[n-1] && rangeStmt.X == block.Nodes[n-2] {
				block.Nodes = append(block.Nodes[:n-2], rangeAssign(rangeStmt.Key))
			}
		default:
			// `for x, y := range expr {}`
			if n >= 3 && rangeStmt.Value == block.Nodes[n-1] &&
				rangeStmt.Key == block.Nodes[n-2] &&
				rangeStmt.X == block.Nodes[n-3] {
				block.Nodes = append(block.Nodes[:n-3], rangeAssign(rangeStmt.Key, rangeStmt.Value))
			}
		}
	}
}

// markSwitchStatements restructures a cfg to reflect tagged switch statements.
//
// In particular, `switch x { case y0 : e0 case y1 : e1 ... }` will be parsed by the CFG into:
//
// Block0: Nodes: x, y0, Succs: Block1, Block2
// Block1: e0
// Block2: Nodes: y1, Succs: Block3, Block4
// Block3: e1
//
// Which we transform into:
//
// Block0: Nodes: x == y0, Succs: Block1, Block2
// Block1: e0
// Block2: Nodes: x == y1, Succs: Block3, Block4
// Block3: e1
//
// The guard analysis then reads `case nil:` as the comparison `x == nil`. Consecutive cases have
// block numbers whose ordering reflects the syntactic ordering of the cases.
func markSwitchStatements(graph *cfg.CFG, switchChildren map[ast.Node]*ast.SwitchStmt) error {
	knownCaseBlockIdxs := make(map[int32]bool)

	for _, block := range graph.Blocks {
		if knownCaseBlockIdxs[block.Index] {
			continue
		}

		n := len(block.Nodes)
		if n < 2 {
			continue
		}

		switchExpr, ok := block.Nodes[n-2].(ast.Expr)
		if !ok || switchChildren[switchExpr] == nil {
			continue
		}
		caseExpr, ok := block.Nodes[n-1].(ast.Expr)
		if !ok {
			continue
		}

		block.Nodes = append(block.Nodes[:n-2], &ast.BinaryExpr{
			X:     switchExpr,
			OpPos: caseExpr.Pos(),
			Op:    token.EQL,
			Y:     caseExpr,
		})
		if len(block.Succs) != 2 {
			return fmt.Errorf("switch at %d: expected two successors for the first case block, found %d",
				switchExpr.Pos(), len(block.Succs))
		}
		knownCaseBlockIdxs[block.Index] = true
		caseBlock := block.Succs[1]
		for len(caseBlock.Succs) == 2 && !knownCaseBlockIdxs[caseBlock.Index] {
			knownCaseBlockIdxs[caseBlock.Index] = true
			if len(caseBlock.Nodes) != 1 {
				return fmt.Errorf("switch at %d: expected a single node in a case block, found %d",
					switchExpr.Pos(), len(caseBlock.Nodes))
			}
			caseExpr, ok := caseBlock.Nodes[0].(ast.Expr)
			if !ok {
				return fmt.Errorf("switch at %d: expected an expression in a case block, found %T",
					switchExpr.Pos(), caseBlock.Nodes[0])
			}
			caseBlock.Nodes = []ast.Node{
				&ast.BinaryExpr{
					X:     switchExpr,
					OpPos: caseExpr.Pos(),
					Op:    token.EQL,
					Y:     caseExpr,
				},
			}
			caseBlock = caseBlock.Succs[1]
		}
	}
	return nil
}
