package cfgbuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abhitodan/SQLDraw/internal/cfg"
	"github.com/Abhitodan/SQLDraw/internal/tsql"
)

func build(t *testing.T, src string) *cfg.ControlFlowGraph {
	t.Helper()
	prog, err := tsql.Parse(src)
	require.NoError(t, err)
	g, err := Build(prog, src)
	require.NoError(t, err)
	return g
}

func TestBuild_LinearSelect(t *testing.T) {
	t.Parallel()

	g := build(t, "SELECT * FROM Orders")
	require.NoError(t, g.Validate())

	start, ok := g.Node(g.StartNodeID)
	require.True(t, ok)
	require.Len(t, start.Edges, 1)

	sel, ok := g.Node(start.Edges[0].TargetNodeID)
	require.True(t, ok)
	assert.Equal(t, cfg.KindSelect, sel.Kind)

	require.Len(t, sel.Edges, 1)
	end, ok := g.Node(sel.Edges[0].TargetNodeID)
	require.True(t, ok)
	assert.Equal(t, cfg.KindEnd, end.Kind)
}

func TestBuild_IfElseMerges(t *testing.T) {
	t.Parallel()

	src := `IF @X > 0
	BEGIN
		SELECT 1
	END
	ELSE
	BEGIN
		SELECT 2
	END
	SELECT 3`

	g := build(t, src)
	require.NoError(t, g.Validate())

	var branch *cfg.CfgNode
	for _, n := range g.Nodes {
		if n.Kind == cfg.KindBranch {
			branch = n
		}
	}
	require.NotNil(t, branch)
	require.Len(t, branch.Edges, 2)

	var trueTarget, falseTarget *cfg.CfgNode
	for _, e := range branch.Edges {
		n, _ := g.Node(e.TargetNodeID)
		switch e.Condition {
		case cfg.CondTrue:
			trueTarget = n
		case cfg.CondFalse:
			falseTarget = n
		}
	}
	require.NotNil(t, trueTarget)
	require.NotNil(t, falseTarget)
	assert.Equal(t, cfg.KindSelect, trueTarget.Kind)
	assert.Equal(t, cfg.KindSelect, falseTarget.Kind)

	// Both arms must converge on the same merge node before "SELECT 3".
	require.Len(t, trueTarget.Edges, 1)
	require.Len(t, falseTarget.Edges, 1)
	assert.Equal(t, trueTarget.Edges[0].TargetNodeID, falseTarget.Edges[0].TargetNodeID)
}

func TestBuild_IfWithoutElse(t *testing.T) {
	t.Parallel()

	g := build(t, "IF @X IS NULL SELECT 1")
	require.NoError(t, g.Validate())

	var branch *cfg.CfgNode
	for _, n := range g.Nodes {
		if n.Kind == cfg.KindBranch {
			branch = n
		}
	}
	require.NotNil(t, branch)

	var hasFalseEdge bool
	for _, e := range branch.Edges {
		if e.Condition == cfg.CondFalse {
			hasFalseEdge = true
		}
	}
	assert.True(t, hasFalseEdge, "missing ELSE arm still needs a FALSE edge to the merge point")
}

func TestBuild_WhileLoopBack(t *testing.T) {
	t.Parallel()

	src := `WHILE @I < 10
	BEGIN
		SET @I = @I + 1
	END`

	g := build(t, src)
	require.NoError(t, g.Validate())

	var loop *cfg.CfgNode
	for _, n := range g.Nodes {
		if n.Kind == cfg.KindLoop {
			loop = n
		}
	}
	require.NotNil(t, loop)

	var doneEdge, bodyEdge *cfg.CfgEdge
	for i, e := range loop.Edges {
		if e.Condition == cfg.CondDone {
			doneEdge = &loop.Edges[i]
		} else {
			bodyEdge = &loop.Edges[i]
		}
	}
	require.NotNil(t, doneEdge)
	require.NotNil(t, bodyEdge)

	body, _ := g.Node(bodyEdge.TargetNodeID)
	require.Len(t, body.Edges, 1)
	assert.Equal(t, loop.ID, body.Edges[0].TargetNodeID)
	assert.Equal(t, cfg.CondLoopBack, body.Edges[0].Condition)
}

func TestBuild_TryCatchConfluence(t *testing.T) {
	t.Parallel()

	src := `BEGIN TRY
		INSERT INTO Log VALUES (1)
	END TRY
	BEGIN CATCH
		SELECT ERROR_MESSAGE()
	END CATCH
	SELECT 'done'`

	g := build(t, src)
	require.NoError(t, g.Validate())

	var tc, catch *cfg.CfgNode
	for _, n := range g.Nodes {
		switch n.Kind {
		case cfg.KindTryCatch:
			tc = n
		case cfg.KindCatchBlock:
			catch = n
		}
	}
	require.NotNil(t, tc)
	require.NotNil(t, catch)

	var errEdge *cfg.CfgEdge
	for i, e := range tc.Edges {
		if e.Condition == cfg.CondError {
			errEdge = &tc.Edges[i]
		}
	}
	require.NotNil(t, errEdge)
	assert.Equal(t, catch.ID, errEdge.TargetNodeID)
}

func TestBuild_Params(t *testing.T) {
	t.Parallel()

	src := `CREATE PROCEDURE p @A INT, @B INT = 1 AS BEGIN SELECT 1 END`
	g := build(t, src)
	require.Len(t, g.Params, 2)
	assert.Equal(t, "@A", g.Params[0].Name)
	assert.False(t, g.Params[0].HasDefault)
	assert.Equal(t, "@B", g.Params[1].Name)
	assert.True(t, g.Params[1].HasDefault)
}

func TestBuild_ExecClassifiesDynamicSql(t *testing.T) {
	t.Parallel()

	g := build(t, "EXEC sp_executesql @Sql")
	var found bool
	for _, n := range g.Nodes {
		if n.Kind == cfg.KindDynamicSql {
			found = true
		}
	}
	assert.True(t, found)
}

func TestBuild_ExecPlainProcCallsIsCall(t *testing.T) {
	t.Parallel()

	g := build(t, "EXEC dbo.DoThing")
	var found bool
	for _, n := range g.Nodes {
		if n.Kind == cfg.KindCall {
			found = true
		}
	}
	assert.True(t, found)
}
