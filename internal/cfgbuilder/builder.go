// Package cfgbuilder lowers a tsql.Program into a cfg.ControlFlowGraph,
// following the recursive-descent algorithm of spec §4.1: a (currentTail,
// currentExit) accumulator threaded through the statement list, with
// dedicated handling for IF/ELSE merges, WHILE loop-exits, and TRY/CATCH
// confluence. Grounded on internal/graph/builder.go's single-pass,
// cancellation-aware traversal shape.
package cfgbuilder

import (
	"strconv"
	"strings"

	"github.com/Abhitodan/SQLDraw/internal/cfg"
	"github.com/Abhitodan/SQLDraw/internal/tsql"
)

// Build parses nothing itself — it consumes an already-parsed tsql.Program
// plus the original source text (needed for verbatim snippet extraction by
// byte offset) and returns a validated ControlFlowGraph.
func Build(prog *tsql.Program, source string) (*cfg.ControlFlowGraph, error) {
	b := &builder{source: source}

	start := b.newNode(cfg.KindStart, "Start", "")
	end := b.newNode(cfg.KindEnd, "End", "")

	tail := start
	for _, s := range prog.Body {
		tail = b.lowerStmt(s, tail, end)
	}
	if tail != end && !hasEdgeTo(tail, end.ID) {
		b.connect(tail, end, "")
	}

	g := &cfg.ControlFlowGraph{
		StartNodeID: start.ID,
		EndNodeID:   end.ID,
		Nodes:       b.nodes,
		Params:      mapParams(prog),
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func mapParams(prog *tsql.Program) []cfg.ProcParameter {
	if prog.Header == nil {
		return nil
	}
	out := make([]cfg.ProcParameter, 0, len(prog.Header.Params))
	for _, p := range prog.Header.Params {
		out = append(out, cfg.ProcParameter{
			Name:           p.Name,
			SQLType:        p.SQLType,
			IsOutput:       p.IsOutput,
			HasDefault:     p.HasDefault,
			DefaultLiteral: p.DefaultLiteral,
		})
	}
	return out
}

type builder struct {
	source  string
	nodes   []*cfg.CfgNode
	counter int
}

func (b *builder) nextID() string {
	id := "N" + strconv.Itoa(b.counter)
	b.counter++
	return id
}

func (b *builder) newNode(kind cfg.NodeKind, label, snippet string) *cfg.CfgNode {
	n := &cfg.CfgNode{
		ID:         b.nextID(),
		Kind:       kind,
		Label:      label,
		SqlSnippet: snippet,
	}
	b.nodes = append(b.nodes, n)
	return n
}

func (b *builder) connect(from, to *cfg.CfgNode, condition string) {
	from.Edges = append(from.Edges, cfg.CfgEdge{TargetNodeID: to.ID, Condition: condition})
}

func hasEdgeTo(n *cfg.CfgNode, targetID string) bool {
	for _, e := range n.Edges {
		if e.TargetNodeID == targetID {
			return true
		}
	}
	return false
}

// lowerStmt dispatches on the concrete AST node type (tagged-variant
// dispatch, not a class hierarchy — see DESIGN.md) and returns the new tail.
func (b *builder) lowerStmt(s tsql.Stmt, tail, exit *cfg.CfgNode) *cfg.CfgNode {
	switch n := s.(type) {
	case *tsql.SimpleStmt:
		return b.lowerSimple(n, tail)
	case *tsql.BlockStmt:
		return b.lowerBlock(n, tail, exit)
	case *tsql.IfStmt:
		return b.lowerIf(n, tail, exit)
	case *tsql.WhileStmt:
		return b.lowerWhile(n, tail, exit)
	case *tsql.TryCatchStmt:
		return b.lowerTryCatch(n, tail, exit)
	default:
		return tail
	}
}

func (b *builder) lowerBlock(n *tsql.BlockStmt, tail, exit *cfg.CfgNode) *cfg.CfgNode {
	for _, s := range n.Stmts {
		tail = b.lowerStmt(s, tail, exit)
	}
	return tail
}

func (b *builder) lowerStmtsFrom(from *cfg.CfgNode, condition string, stmts []tsql.Stmt, exit *cfg.CfgNode) *cfg.CfgNode {
	if len(stmts) == 0 {
		return from
	}
	tail := from
	for i, s := range stmts {
		if i == 0 {
			// The first statement of an arm connects from `from` with the
			// arm's condition; subsequent statements chain unconditionally.
			next := b.lowerStmtHead(s, from, condition, exit)
			tail = next
			continue
		}
		tail = b.lowerStmt(s, tail, exit)
	}
	return tail
}

// lowerStmtHead lowers the first statement of a branch/loop/try/catch arm,
// wiring the incoming edge with the given condition tag instead of the
// default unconditional connect used mid-arm.
func (b *builder) lowerStmtHead(s tsql.Stmt, from *cfg.CfgNode, condition string, exit *cfg.CfgNode) *cfg.CfgNode {
	switch n := s.(type) {
	case *tsql.SimpleStmt:
		node := b.simpleNode(n)
		b.connect(from, node, condition)
		return node
	case *tsql.BlockStmt:
		if len(n.Stmts) == 0 {
			return from
		}
		return b.lowerStmtsFrom(from, condition, n.Stmts, exit)
	case *tsql.IfStmt:
		branch := b.ifBranchNode(n)
		b.connect(from, branch, condition)
		return b.lowerIfBody(n, branch, exit)
	case *tsql.WhileStmt:
		loop := b.whileLoopNode(n)
		b.connect(from, loop, condition)
		return b.lowerWhileBody(n, loop, exit)
	case *tsql.TryCatchStmt:
		tc := b.tryCatchNode(n)
		b.connect(from, tc, condition)
		return b.lowerTryCatchBody(n, tc, exit)
	default:
		return from
	}
}

// --- simple statement ------------------------------------------------

var dmlKeywords = map[string]bool{"INSERT": true, "UPDATE": true, "DELETE": true, "MERGE": true}

func (b *builder) lowerSimple(n *tsql.SimpleStmt, tail *cfg.CfgNode) *cfg.CfgNode {
	node := b.simpleNode(n)
	b.connect(tail, node, "")
	return node
}

func (b *builder) simpleNode(n *tsql.SimpleStmt) *cfg.CfgNode {
	kind := classifySimple(n)
	label := n.Text
	node := b.newNode(kind, label, n.Text)
	_, _, sl, el := tsql.Span(n)
	node.StartLine, node.EndLine = sl, el
	return node
}

// classifySimple maps a simple statement's leading keyword to a NodeKind
// per spec §4.1's closed mapping: DML kinds route to Dml, SELECT to Select,
// EXEC to Call (DynamicSql if it looks like dynamic SQL), everything else
// (DECLARE/SET/RETURN/RAISERROR/PRINT) and transaction statements get
// Statement/Transaction respectively.
func classifySimple(n *tsql.SimpleStmt) cfg.NodeKind {
	switch n.Keyword {
	case "SELECT":
		return cfg.KindSelect
	case "EXEC", "EXECUTE":
		if looksDynamic(n.Text) {
			return cfg.KindDynamicSql
		}
		return cfg.KindCall
	case "COMMIT", "ROLLBACK", "BEGIN":
		return cfg.KindTransaction
	default:
		if dmlKeywords[n.Keyword] {
			return cfg.KindDml
		}
		return cfg.KindStatement
	}
}

// looksDynamic reports whether an EXEC statement is dynamic SQL: a call to
// sp_executesql, or an EXEC whose operand is a variable rather than a
// procedure name.
func looksDynamic(text string) bool {
	up := strings.ToUpper(text)
	if strings.Contains(up, "SP_EXECUTESQL") {
		return true
	}
	fields := strings.Fields(text)
	if len(fields) >= 2 && strings.HasPrefix(fields[1], "@") {
		return true
	}
	return false
}

// --- IF/ELSE -----------------------------------------------------------

func (b *builder) ifBranchNode(n *tsql.IfStmt) *cfg.CfgNode {
	label := "IF " + n.CondText
	node := b.newNode(cfg.KindBranch, label, n.CondText)
	_, _, sl, el := tsql.Span(n)
	node.StartLine, node.EndLine = sl, el
	return node
}

func (b *builder) lowerIf(n *tsql.IfStmt, tail, exit *cfg.CfgNode) *cfg.CfgNode {
	branch := b.ifBranchNode(n)
	b.connect(tail, branch, "")
	return b.lowerIfBody(n, branch, exit)
}

func (b *builder) lowerIfBody(n *tsql.IfStmt, branch, exit *cfg.CfgNode) *cfg.CfgNode {
	merge := b.newNode(cfg.KindStatement, "(merge)", "")

	thenTail := b.lowerStmtsFrom(branch, cfg.CondTrue, n.Then, exit)
	if thenTail == branch {
		// empty then-arm: direct TRUE edge to merge (malformed-AST case,
		// spec §4.1 "Failure").
		b.connect(branch, merge, cfg.CondTrue)
	} else if !reachesExit(thenTail, exit) {
		b.connect(thenTail, merge, "")
	}

	if len(n.Else) > 0 {
		elseTail := b.lowerStmtsFrom(branch, cfg.CondFalse, n.Else, exit)
		if elseTail == branch {
			b.connect(branch, merge, cfg.CondFalse)
		} else if !reachesExit(elseTail, exit) {
			b.connect(elseTail, merge, "")
		}
	} else {
		b.connect(branch, merge, cfg.CondFalse)
	}

	return merge
}

// reachesExit reports whether node already has a direct edge to exit (the
// procedure End node), in which case the arm terminated the procedure and
// must not also be wired to the merge node.
func reachesExit(node, exit *cfg.CfgNode) bool {
	return hasEdgeTo(node, exit.ID)
}

// --- WHILE ---------------------------------------------------------------

func (b *builder) whileLoopNode(n *tsql.WhileStmt) *cfg.CfgNode {
	label := "WHILE " + n.CondText
	node := b.newNode(cfg.KindLoop, label, n.CondText)
	_, _, sl, el := tsql.Span(n)
	node.StartLine, node.EndLine = sl, el
	return node
}

func (b *builder) lowerWhile(n *tsql.WhileStmt, tail, exit *cfg.CfgNode) *cfg.CfgNode {
	loop := b.whileLoopNode(n)
	b.connect(tail, loop, "")
	return b.lowerWhileBody(n, loop, exit)
}

func (b *builder) lowerWhileBody(n *tsql.WhileStmt, loop, exit *cfg.CfgNode) *cfg.CfgNode {
	loopExit := b.newNode(cfg.KindStatement, "(loop exit)", "")
	b.connect(loop, loopExit, cfg.CondDone)

	bodyTail := b.lowerStmtsFrom(loop, "", n.Body, exit)
	if bodyTail == loop {
		// Empty body: the loop head has no own body edge besides `done`.
		// Spec invariant 4 still requires >=1 outgoing edge, satisfied by
		// the `done` edge above; add a direct loop-back to itself is not
		// meaningful here, so leave as-is.
		return loopExit
	}
	if !reachesExit(bodyTail, exit) {
		b.connect(bodyTail, loop, cfg.CondLoopBack)
	}
	return loopExit
}

// --- TRY/CATCH -----------------------------------------------------------

func (b *builder) tryCatchNode(n *tsql.TryCatchStmt) *cfg.CfgNode {
	node := b.newNode(cfg.KindTryCatch, "TRY", "")
	_, _, sl, el := tsql.Span(n)
	node.StartLine, node.EndLine = sl, el
	return node
}

func (b *builder) lowerTryCatch(n *tsql.TryCatchStmt, tail, exit *cfg.CfgNode) *cfg.CfgNode {
	tc := b.tryCatchNode(n)
	b.connect(tail, tc, "")
	return b.lowerTryCatchBody(n, tc, exit)
}

func (b *builder) lowerTryCatchBody(n *tsql.TryCatchStmt, tc, exit *cfg.CfgNode) *cfg.CfgNode {
	merge := b.newNode(cfg.KindStatement, "(merge)", "")

	catch := b.newNode(cfg.KindCatchBlock, "CATCH", "")
	b.connect(tc, catch, cfg.CondError)

	tryTail := b.lowerStmtsFrom(tc, "", n.Try, exit)
	if tryTail == tc {
		b.connect(tc, merge, cfg.CondSuccess)
	} else if !reachesExit(tryTail, exit) {
		b.connect(tryTail, merge, cfg.CondSuccess)
	}

	catchTail := b.lowerStmtsFrom(catch, "", n.Catch, exit)
	if catchTail == catch {
		b.connect(catch, merge, cfg.CondHandled)
	} else if !reachesExit(catchTail, exit) {
		b.connect(catchTail, merge, cfg.CondHandled)
	}

	return merge
}
