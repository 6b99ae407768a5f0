package sandbox

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Abhitodan/SQLDraw/internal/cfg"
	"github.com/Abhitodan/SQLDraw/internal/predicate"
	"github.com/Abhitodan/SQLDraw/internal/sqlerr"
	"github.com/Abhitodan/SQLDraw/internal/trace"
)

// MaxDepth mirrors the dry-run walker's recursion bound (spec §4.3/§4.6).
const MaxDepth = 100

// Evaluator is the predicate-evaluation dependency the orchestrator needs,
// matching dryrun.Evaluator so the same *predicate.Evaluator serves both
// engines.
type Evaluator interface {
	Eval(snippet string, binding predicate.Binding) predicate.Verdict
}

// Run seeds a fresh in-memory SQLite database from source's inferred
// schema, then walks graph from its Start node executing every DML/SELECT
// node it reaches against that database (spec §4.4-§4.6). Branch and loop
// handling mirrors the dry-run walker: predicates are still evaluated
// statically, never by inspecting query results, so a branch on data the
// seeder happened to generate doesn't silently become "determinate" —
// UNPREDICTABLE in dry-run stays UNPREDICTABLE here too, with both arms
// executed against the sandbox database.
func Run(ctx context.Context, graph *cfg.ControlFlowGraph, source string, binding predicate.Binding, eval Evaluator) (trace.RunResult, error) {
	stmts := Split(ExtractBody(source))
	tables := InferSchema(stmts)

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return trace.RunResult{}, sqlerr.Internal("open sandbox database: %v", err)
	}
	defer db.Close()

	tableNames, err := CreateTables(ctx, db, tables)
	if err != nil {
		return trace.RunResult{}, err
	}

	rowsGenerated, err := Seed(db, tables, nil)
	if err != nil {
		return trace.RunResult{}, sqlerr.Internal("seed sandbox database: %v", err)
	}

	return RunOnDB(ctx, db, graph, binding, eval, tableNames, rowsGenerated)
}

// CreateTables issues CREATE TABLE IF NOT EXISTS for each inferred table and
// returns their names in creation order, for callers (the CLI's progress-bar
// path) that want to seed the database themselves between schema creation
// and the walk.
func CreateTables(ctx context.Context, db *sql.DB, tables []TableSchema) ([]string, error) {
	names := make([]string, 0, len(tables))
	for _, t := range tables {
		if _, err := db.ExecContext(ctx, CreateTableSQL(t)); err != nil {
			return nil, sqlerr.Internal("create table %s: %v", t.Name, err)
		}
		names = append(names, t.Name)
	}
	return names, nil
}

// RunOnDB walks graph against an already-seeded db, the second half of Run
// split out so a caller can seed with its own progress reporting in between
// (see internal/cli/sandbox.go).
func RunOnDB(ctx context.Context, db *sql.DB, graph *cfg.ControlFlowGraph, binding predicate.Binding, eval Evaluator, tableNames []string, rowsGenerated int) (trace.RunResult, error) {
	o := &orchestrator{
		ctx:     ctx,
		graph:   graph,
		binding: binding,
		eval:    eval,
		db:      db,
		rec:     trace.NewRecorder(),
		visited: make(map[string]bool),
	}
	o.rec.Emit(trace.TraceEvent{EventType: trace.EventStart, SQLText: "sqlite sandbox run"})

	cancelled := false
	if err := o.walk(graph.StartNodeID, 0); err != nil {
		if ctx.Err() != nil {
			cancelled = true
		} else {
			return trace.RunResult{}, err
		}
	}

	result := o.rec.Finish(trace.ModeSQLite, cancelled)
	result.SQLiteMetadata = &trace.SQLiteMetadata{
		DataPreview:        buildPreview(ctx, db, tableNames),
		TablesCreated:      tableNames,
		TotalRowsGenerated: rowsGenerated,
	}
	return result, nil
}

type orchestrator struct {
	ctx     context.Context
	graph   *cfg.ControlFlowGraph
	binding predicate.Binding
	eval    Evaluator
	db      *sql.DB
	rec     *trace.Recorder
	visited map[string]bool
}

func (o *orchestrator) walk(nodeID string, depth int) error {
	if err := o.ctx.Err(); err != nil {
		return err
	}
	if depth > MaxDepth {
		return nil
	}
	if o.visited[nodeID] {
		return nil
	}
	o.visited[nodeID] = true
	o.rec.MarkNode(nodeID)

	node, ok := o.graph.Node(nodeID)
	if !ok {
		return sqlerr.Internal("orchestrator visited unknown node %s", nodeID)
	}

	switch {
	case node.Kind == cfg.KindStart, node.Kind == cfg.KindEnd, node.Kind == cfg.KindBlock:
		return o.followAll(node, depth)

	case node.Kind == cfg.KindStatement && node.SqlSnippet == "":
		return o.followAll(node, depth)

	case node.Kind == cfg.KindBranch:
		return o.walkBranch(node, depth)

	case node.Kind == cfg.KindLoop:
		return o.walkLoop(node, depth)

	case node.Kind == cfg.KindDml, node.Kind == cfg.KindSelect:
		o.execute(node)
		return o.followAll(node, depth)

	case node.Kind == cfg.KindTransaction:
		o.rec.Emit(trace.TraceEvent{EventType: trace.EventTxn, NodeID: node.ID, SQLText: node.SqlSnippet})
		return o.followAll(node, depth)

	case node.Kind == cfg.KindTryCatch, node.Kind == cfg.KindCatchBlock:
		o.rec.Emit(trace.TraceEvent{EventType: trace.EventControlFlow, NodeID: node.ID, SQLText: node.Label})
		return o.followAll(node, depth)

	default:
		// Dynamic SQL, stored-procedure calls and plain statements aren't
		// executed against the sandbox — their real effect depends on
		// inputs the sandbox can't observe — but still appear in the trace.
		o.rec.Emit(trace.TraceEvent{EventType: trace.EventSimulated, NodeID: node.ID, SQLText: node.SqlSnippet})
		return o.followAll(node, depth)
	}
}

func (o *orchestrator) execute(node *cfg.CfgNode) {
	adapted := Adapt(node.SqlSnippet)

	if node.Kind == cfg.KindSelect {
		o.executeSelect(node, adapted)
		return
	}

	res, err := o.db.ExecContext(o.ctx, adapted)
	if err != nil {
		o.emitError(node, err)
		return
	}
	affected, _ := res.RowsAffected()
	n := int(affected)
	o.rec.Emit(trace.TraceEvent{
		EventType: trace.EventDML,
		NodeID:    node.ID,
		SQLText:   node.SqlSnippet,
		RowCount:  &n,
	})
}

func (o *orchestrator) executeSelect(node *cfg.CfgNode, adapted string) {
	rows, err := o.db.QueryContext(o.ctx, adapted)
	if err != nil {
		o.emitError(node, err)
		return
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		o.emitError(node, err)
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
			o.emitError(node, err)
			return
		}
		preview = append(preview, vals)
	}

	o.rec.Emit(trace.TraceEvent{
		EventType:   trace.EventResultSet,
		NodeID:      node.ID,
		SQLText:     node.SqlSnippet,
		RowCount:    &count,
		Columns:     cols,
		PreviewRows: preview,
	})
}

func (o *orchestrator) emitError(node *cfg.CfgNode, err error) {
	o.rec.Emit(trace.TraceEvent{
		EventType:    trace.EventError,
		NodeID:       node.ID,
		SQLText:      node.SqlSnippet,
		ErrorMessage: err.Error(),
	})
}

func (o *orchestrator) followAll(node *cfg.CfgNode, depth int) error {
	for _, e := range node.Edges {
		if err := o.walk(e.TargetNodeID, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (o *orchestrator) walkBranch(node *cfg.CfgNode, depth int) error {
	verdict := o.eval.Eval(node.SqlSnippet, o.binding)

	var tag string
	switch verdict {
	case predicate.True:
		tag = "TRUE (predicted)"
	case predicate.False:
		tag = "FALSE (predicted)"
	default:
		tag = "UNPREDICTABLE"
	}
	o.rec.Emit(trace.TraceEvent{
		EventType:   trace.EventBranch,
		NodeID:      node.ID,
		SQLText:     node.SqlSnippet,
		BranchTaken: tag,
	})

	if verdict == predicate.Unpredictable {
		for _, e := range node.Edges {
			if err := o.walk(e.TargetNodeID, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	want := cfg.CondFalse
	if verdict == predicate.True {
		want = cfg.CondTrue
	}
	for _, e := range node.Edges {
		if e.Condition == want {
			o.rec.MarkEdge(node.ID, e.TargetNodeID)
			return o.walk(e.TargetNodeID, depth+1)
		}
	}
	return sqlerr.Internal("branch node %s has no %s edge", node.ID, want)
}

func (o *orchestrator) walkLoop(node *cfg.CfgNode, depth int) error {
	o.rec.Emit(trace.TraceEvent{
		EventType: trace.EventSimulated,
		NodeID:    node.ID,
		SQLText:   "simulated — 1 iteration",
	})

	var bodyEdge, doneEdge *cfg.CfgEdge
	for i := range node.Edges {
		e := &node.Edges[i]
		if e.Condition == cfg.CondDone {
			doneEdge = e
		} else {
			bodyEdge = e
		}
	}

	if bodyEdge != nil {
		o.rec.MarkEdge(node.ID, bodyEdge.TargetNodeID)
		if err := o.walk(bodyEdge.TargetNodeID, depth+1); err != nil {
			return err
		}
	}
	if doneEdge != nil {
		o.rec.MarkEdge(node.ID, doneEdge.TargetNodeID)
		if err := o.walk(doneEdge.TargetNodeID, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func buildPreview(ctx context.Context, db *sql.DB, tableNames []string) map[string]trace.TablePreview {
	previews := make(map[string]trace.TablePreview, len(tableNames))
	for _, name := range tableNames {
		p, err := previewTable(ctx, db, name)
		if err != nil {
			continue
		}
		previews[name] = p
	}
	return previews
}

func previewTable(ctx context.Context, db *sql.DB, name string) (trace.TablePreview, error) {
	var total int
	if err := db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM "%s"`, name)).Scan(&total); err != nil {
		return trace.TablePreview{}, err
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT * FROM "%s" LIMIT %d`, name, trace.TablePreviewRowCap))
	if err != nil {
		return trace.TablePreview{}, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return trace.TablePreview{}, err
	}

	var sample [][]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return trace.TablePreview{}, err
		}
		sample = append(sample, vals)
	}

	return trace.TablePreview{Columns: cols, SampleRows: sample, RowCount: total}, nil
}
