package cfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linearGraph() *ControlFlowGraph {
	return &ControlFlowGraph{
		StartNodeID: "N0",
		EndNodeID:   "N2",
		Nodes: []*CfgNode{
			{ID: "N0", Kind: KindStart, Edges: []CfgEdge{{TargetNodeID: "N1"}}},
			{ID: "N1", Kind: KindSelect, SqlSnippet: "SELECT 1", Edges: []CfgEdge{{TargetNodeID: "N2"}}},
			{ID: "N2", Kind: KindEnd},
		},
	}
}

func TestValidate_AcceptsWellFormedGraph(t *testing.T) {
	t.Parallel()

	assert.NoError(t, linearGraph().Validate())
}

func TestValidate_RejectsEmptyGraph(t *testing.T) {
	t.Parallel()

	g := &ControlFlowGraph{}
	assert.Error(t, g.Validate())
}

func TestValidate_RejectsDanglingEdge(t *testing.T) {
	t.Parallel()

	g := linearGraph()
	g.Nodes[1].Edges = []CfgEdge{{TargetNodeID: "N99"}}

	err := g.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown node")
}

func TestValidate_RejectsMultipleStartNodes(t *testing.T) {
	t.Parallel()

	g := linearGraph()
	g.Nodes = append(g.Nodes, &CfgNode{ID: "N3", Kind: KindStart, Edges: []CfgEdge{{TargetNodeID: "N2"}}})

	err := g.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one Start")
}

func TestValidate_RejectsEndNodeWithOutgoingEdge(t *testing.T) {
	t.Parallel()

	g := linearGraph()
	g.Nodes[2].Edges = []CfgEdge{{TargetNodeID: "N0"}}

	err := g.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has outgoing edges")
}

func TestValidate_RejectsNonEndNodeWithNoOutgoingEdges(t *testing.T) {
	t.Parallel()

	g := linearGraph()
	g.Nodes[1].Edges = nil

	err := g.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no outgoing edges")
}

func TestReachesEnd_TrueForNodeOnThePath(t *testing.T) {
	t.Parallel()

	g := linearGraph()
	ok, err := g.ReachesEnd("N0")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReachesEnd_TrueForEndItself(t *testing.T) {
	t.Parallel()

	g := linearGraph()
	ok, err := g.ReachesEnd("N2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReachesEnd_FalseForDeadEndBranch(t *testing.T) {
	t.Parallel()

	g := linearGraph()
	g.Nodes = append(g.Nodes, &CfgNode{ID: "N4", Kind: KindStatement, SqlSnippet: "dead"})
	// N4 has no outgoing edges (KindStatement, not End) -- this would fail
	// Validate, but ReachesEnd is checked independently against the raw
	// graph shape, so use AddVertex/AddEdge directly via asGraph.
	ok, err := g.ReachesEnd("N4")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNode_LooksUpByID(t *testing.T) {
	t.Parallel()

	g := linearGraph()
	n, ok := g.Node("N1")
	require.True(t, ok)
	assert.Equal(t, KindSelect, n.Kind)

	_, ok = g.Node("N99")
	assert.False(t, ok)
}

func TestEdgeKey_RendersSourceArrowTarget(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "N0->N1", EdgeKey("N0", "N1"))
}

func TestTruncatedLabel_TruncatesLongLabels(t *testing.T) {
	t.Parallel()

	long := ""
	for i := 0; i < 60; i++ {
		long += "x"
	}
	n := &CfgNode{Label: long}
	assert.Len(t, n.TruncatedLabel(), 50)
}

func TestTruncatedLabel_LeavesShortLabelsUnchanged(t *testing.T) {
	t.Parallel()

	n := &CfgNode{Label: "short"}
	assert.Equal(t, "short", n.TruncatedLabel())
}
