// Package liveexec implements the live rollback executor of spec §5: it
// walks a CFG against a real connection, executing every DML/SELECT node it
// reaches inside a single transaction that is unconditionally rolled back at
// the end of the run, success or failure. It imports no concrete SQL Server
// driver — the caller supplies an already-open *sql.DB, the same
// connection-ownership boundary the teacher's GraphWriter draws in
// internal/storage/graph_writer.go.
package liveexec

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Abhitodan/SQLDraw/internal/cfg"
	"github.com/Abhitodan/SQLDraw/internal/predicate"
	"github.com/Abhitodan/SQLDraw/internal/sqlerr"
	"github.com/Abhitodan/SQLDraw/internal/trace"
)

// MaxDepth mirrors the dry-run walker's recursion bound.
const MaxDepth = 100

// SystemDatabases is the denylist of database names a live run refuses to
// target (spec §5 "refuse to run against a system database").
var SystemDatabases = map[string]bool{
	"master": true, "model": true, "msdb": true, "tempdb": true,
}

// Evaluator is the predicate-evaluation dependency, matching
// dryrun.Evaluator and sandbox.Evaluator so one *predicate.Evaluator serves
// all three engines.
type Evaluator interface {
	Eval(snippet string, binding predicate.Binding) predicate.Verdict
}

// CheckDatabaseName rejects a live run against a system database up front,
// before any connection work happens.
func CheckDatabaseName(name string) error {
	if SystemDatabases[strings.ToLower(strings.TrimSpace(name))] {
		return sqlerr.BadInput("refusing to run live against system database %q", name)
	}
	return nil
}

// Run executes graph against db inside a single transaction that is always
// rolled back, regardless of outcome — a live run is exploratory by
// definition (spec §5) and must never leave a committed side effect. Dynamic
// SQL and nested procedure calls are not executed, the same restriction the
// sandbox applies, since their real targets can't be resolved from the CFG
// alone.
func Run(ctx context.Context, db *sql.DB, graph *cfg.ControlFlowGraph, binding predicate.Binding, eval Evaluator) (trace.RunResult, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return trace.RunResult{}, sqlerr.Engine("begin live transaction: %v", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	e := &executor{
		ctx:     ctx,
		tx:      tx,
		graph:   graph,
		binding: binding,
		eval:    eval,
		rec:     trace.NewRecorder(),
		visited: make(map[string]bool),
	}
	e.rec.Emit(trace.TraceEvent{EventType: trace.EventStart, SQLText: "live rollback run"})

	cancelled := false
	if err := e.walk(graph.StartNodeID, 0); err != nil {
		if ctx.Err() != nil {
			cancelled = true
		} else {
			return trace.RunResult{}, err
		}
	}

	return e.rec.Finish(trace.ModeLive, cancelled), nil
}

type executor struct {
	ctx     context.Context
	tx      *sql.Tx
	graph   *cfg.ControlFlowGraph
	binding predicate.Binding
	eval    Evaluator
	rec     *trace.Recorder
	visited map[string]bool
}

func (e *executor) walk(nodeID string, depth int) error {
	if err := e.ctx.Err(); err != nil {
		return err
	}
	if depth > MaxDepth {
		return nil
	}
	if e.visited[nodeID] {
		return nil
	}
	e.visited[nodeID] = true
	e.rec.MarkNode(nodeID)

	node, ok := e.graph.Node(nodeID)
	if !ok {
		return sqlerr.Internal("live executor visited unknown node %s", nodeID)
	}

	switch {
	case node.Kind == cfg.KindStart, node.Kind == cfg.KindEnd, node.Kind == cfg.KindBlock:
		return e.followAll(node, depth)

	case node.Kind == cfg.KindStatement && node.SqlSnippet == "":
		return e.followAll(node, depth)

	case node.Kind == cfg.KindBranch:
		return e.walkBranch(node, depth)

	case node.Kind == cfg.KindLoop:
		return e.walkLoop(node, depth)

	case node.Kind == cfg.KindTryCatch, node.Kind == cfg.KindCatchBlock:
		e.rec.Emit(trace.TraceEvent{EventType: trace.EventControlFlow, NodeID: node.ID, SQLText: node.Label})
		return e.followAll(node, depth)

	case node.Kind == cfg.KindTransaction:
		e.rec.Emit(trace.TraceEvent{EventType: trace.EventTxn, NodeID: node.ID, SQLText: node.SqlSnippet})
		return e.followAll(node, depth)

	case node.Kind == cfg.KindDml, node.Kind == cfg.KindSelect:
		e.execute(node)
		return e.followAll(node, depth)

	default:
		e.rec.Emit(trace.TraceEvent{EventType: trace.EventSimulated, NodeID: node.ID, SQLText: node.SqlSnippet})
		return e.followAll(node, depth)
	}
}

func (e *executor) execute(node *cfg.CfgNode) {
	ctx, cancel := context.WithTimeout(e.ctx, trace.LiveStatementTimeout)
	defer cancel()

	if node.Kind == cfg.KindSelect {
		e.executeSelect(ctx, node)
		return
	}

	res, err := e.tx.ExecContext(ctx, node.SqlSnippet)
	if err != nil {
		e.emitError(node, err)
		return
	}
	affected, _ := res.RowsAffected()
	n := int(affected)
	e.rec.Emit(trace.TraceEvent{
		EventType: trace.EventDML,
		NodeID:    node.ID,
		SQLText:   node.SqlSnippet,
		RowCount:  &n,
	})
}

func (e *executor) executeSelect(ctx context.Context, node *cfg.CfgNode) {
	rows, err := e.tx.QueryContext(ctx, node.SqlSnippet)
	if err != nil {
		e.emitError(node, err)
		return
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		e.emitError(node, err)
		return
	}

	var preview [][]any
	count := 0
	for rows.Next() {
		count++
		if count > trace.PreviewRowCap {
			continue
		}
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			e.emitError(node, err)
			return
		}
		preview = append(preview, vals)
	}

	e.rec.Emit(trace.TraceEvent{
		EventType:   trace.EventResultSet,
		NodeID:      node.ID,
		SQLText:     node.SqlSnippet,
		RowCount:    &count,
		Columns:     cols,
		PreviewRows: preview,
	})
}

func (e *executor) emitError(node *cfg.CfgNode, err error) {
	e.rec.Emit(trace.TraceEvent{
		EventType:    trace.EventError,
		NodeID:       node.ID,
		SQLText:      node.SqlSnippet,
		ErrorMessage: fmt.Sprint(err),
	})
}

func (e *executor) followAll(node *cfg.CfgNode, depth int) error {
	for _, edge := range node.Edges {
		if err := e.walk(edge.TargetNodeID, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (e *executor) walkBranch(node *cfg.CfgNode, depth int) error {
	verdict := e.eval.Eval(node.SqlSnippet, e.binding)

	var tag string
	switch verdict {
	case predicate.True:
		tag = "TRUE (predicted)"
	case predicate.False:
		tag = "FALSE (predicted)"
	default:
		tag = "UNPREDICTABLE"
	}
	e.rec.Emit(trace.TraceEvent{
		EventType:   trace.EventBranch,
		NodeID:      node.ID,
		SQLText:     node.SqlSnippet,
		BranchTaken: tag,
	})

	if verdict == predicate.Unpredictable {
		for _, edge := range node.Edges {
			if err := e.walk(edge.TargetNodeID, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	want := cfg.CondFalse
	if verdict == predicate.True {
		want = cfg.CondTrue
	}
	for _, edge := range node.Edges {
		if edge.Condition == want {
			e.rec.MarkEdge(node.ID, edge.TargetNodeID)
			return e.walk(edge.TargetNodeID, depth+1)
		}
	}
	return sqlerr.Internal("branch node %s has no %s edge", node.ID, want)
}

func (e *executor) walkLoop(node *cfg.CfgNode, depth int) error {
	e.rec.Emit(trace.TraceEvent{
		EventType: trace.EventSimulated,
		NodeID:    node.ID,
		SQLText:   "live — 1 iteration",
	})

	var bodyEdge, doneEdge *cfg.CfgEdge
	for i := range node.Edges {
		edge := &node.Edges[i]
		if edge.Condition == cfg.CondDone {
			doneEdge = edge
		} else {
			bodyEdge = edge
		}
	}

	if bodyEdge != nil {
		e.rec.MarkEdge(node.ID, bodyEdge.TargetNodeID)
		if err := e.walk(bodyEdge.TargetNodeID, depth+1); err != nil {
			return err
		}
	}
	if doneEdge != nil {
		e.rec.MarkEdge(node.ID, doneEdge.TargetNodeID)
		if err := e.walk(doneEdge.TargetNodeID, depth+1); err != nil {
			return err
		}
	}
	return nil
}
