// Package dryrun implements the static dry-run simulator of spec §4.3: a
// depth-first CFG traversal that consults the predicate evaluator to
// predict branch outcomes, simulates a single loop iteration, and produces
// a trace with the set of visited nodes and definitely-taken edges. It
// never touches a database.
package dryrun

import (
	"github.com/Abhitodan/SQLDraw/internal/cfg"
	"github.com/Abhitodan/SQLDraw/internal/predicate"
	"github.com/Abhitodan/SQLDraw/internal/sqlerr"
	"github.com/Abhitodan/SQLDraw/internal/trace"
)

// MaxDepth bounds recursion so the walker terminates on any input,
// pathological or not (spec §4.3/§8).
const MaxDepth = 100

// Run walks graph from its Start node with the given parameter binding and
// returns a complete RunResult with Mode == ModeDryRun. It never errors on
// well-formed input; an sqlerr.ErrInternal is only possible if graph itself
// violates its own invariants (unreachable given a builder-produced CFG).
func Run(graph *cfg.ControlFlowGraph, binding predicate.Binding, eval Evaluator) (trace.RunResult, error) {
	w := &walker{
		graph:   graph,
		binding: binding,
		eval:    eval,
		rec:     trace.NewRecorder(),
		visited: make(map[string]bool),
	}
	w.rec.Emit(trace.TraceEvent{EventType: trace.EventStart, SQLText: "dry run"})

	if err := w.walk(graph.StartNodeID, 0); err != nil {
		return trace.RunResult{}, err
	}

	return w.rec.Finish(trace.ModeDryRun, false), nil
}

// Evaluator is the subset of *predicate.Evaluator the walker depends on,
// so tests can supply a stub without building a real memoisation cache.
type Evaluator interface {
	Eval(snippet string, binding predicate.Binding) predicate.Verdict
}

type walker struct {
	graph   *cfg.ControlFlowGraph
	binding predicate.Binding
	eval    Evaluator
	rec     *trace.Recorder
	visited map[string]bool
}

func (w *walker) walk(nodeID string, depth int) error {
	if depth > MaxDepth {
		return nil
	}
	if w.visited[nodeID] {
		return nil
	}
	w.visited[nodeID] = true
	w.rec.MarkNode(nodeID)

	node, ok := w.graph.Node(nodeID)
	if !ok {
		return sqlerr.Internal("walker visited unknown node %s", nodeID)
	}

	switch {
	case node.Kind == cfg.KindStart, node.Kind == cfg.KindEnd, node.Kind == cfg.KindBlock:
		return w.followAll(node, depth)

	case node.Kind == cfg.KindStatement && node.SqlSnippet == "":
		// Synthetic merge / loop-exit node: no trace event, just fan out.
		return w.followAll(node, depth)

	case node.Kind == cfg.KindBranch:
		return w.walkBranch(node, depth)

	case node.Kind == cfg.KindLoop:
		return w.walkLoop(node, depth)

	case node.Kind == cfg.KindTryCatch, node.Kind == cfg.KindCatchBlock:
		w.rec.Emit(trace.TraceEvent{
			EventType: trace.EventControlFlow,
			NodeID:    node.ID,
			SQLText:   node.Label,
		})
		return w.followAll(node, depth)

	default:
		w.rec.Emit(trace.TraceEvent{
			EventType: trace.EventSimulated,
			NodeID:    node.ID,
			SQLText:   node.SqlSnippet,
		})
		return w.followAll(node, depth)
	}
}

func (w *walker) followAll(node *cfg.CfgNode, depth int) error {
	for _, e := range node.Edges {
		if err := w.walk(e.TargetNodeID, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) walkBranch(node *cfg.CfgNode, depth int) error {
	verdict := w.eval.Eval(node.SqlSnippet, w.binding)

	var tag string
	switch verdict {
	case predicate.True:
		tag = "TRUE (predicted)"
	case predicate.False:
		tag = "FALSE (predicted)"
	default:
		tag = "UNPREDICTABLE"
	}
	w.rec.Emit(trace.TraceEvent{
		EventType:   trace.EventBranch,
		NodeID:      node.ID,
		SQLText:     node.SqlSnippet,
		BranchTaken: tag,
	})

	if verdict == predicate.Unpredictable {
		// Follow both edges without marking either as executed — this is
		// what upstream renders as "potential" rather than "definite".
		for _, e := range node.Edges {
			if err := w.walk(e.TargetNodeID, depth+1); err != nil {
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
			w.rec.MarkEdge(node.ID, e.TargetNodeID)
			return w.walk(e.TargetNodeID, depth+1)
		}
	}
	return sqlerr.Internal("branch node %s has no %s edge", node.ID, want)
}

func (w *walker) walkLoop(node *cfg.CfgNode, depth int) error {
	w.rec.Emit(trace.TraceEvent{
		EventType: trace.EventSimulated,
		NodeID:    node.ID,
		SQLText:   "simulated — 1 iteration",
	})

	var bodyEdge, doneEdge *cfg.CfgEdge
	for i := range node.Edges {
		e := &node.Edges[i]
		switch e.Condition {
		case cfg.CondDone:
			doneEdge = e
		default:
			bodyEdge = e
		}
	}

	if bodyEdge != nil {
		w.rec.MarkEdge(node.ID, bodyEdge.TargetNodeID)
		if err := w.walk(bodyEdge.TargetNodeID, depth+1); err != nil {
			return err
		}
	}
	if doneEdge != nil {
		w.rec.MarkEdge(node.ID, doneEdge.TargetNodeID)
		if err := w.walk(doneEdge.TargetNodeID, depth+1); err != nil {
			return err
		}
	}
	return nil
}
