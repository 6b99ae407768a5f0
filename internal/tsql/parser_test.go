package tsql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_HeaderAndParams(t *testing.T) {
	t.Parallel()

	src := `CREATE PROCEDURE dbo.GetOrder
		@OrderId INT,
		@Status VARCHAR(20) = 'open',
		@RowCount INT OUTPUT
	AS
	BEGIN
		SELECT * FROM Orders WHERE OrderId = @OrderId
	END`

	prog, err := Parse(src)
	require.NoError(t, err)
	require.NotNil(t, prog.Header)

	assert.Equal(t, "dbo.GetOrder", prog.Header.Name)
	require.Len(t, prog.Header.Params, 3)

	assert.Equal(t, "@OrderId", prog.Header.Params[0].Name)
	assert.False(t, prog.Header.Params[0].HasDefault)

	assert.Equal(t, "@Status", prog.Header.Params[1].Name)
	assert.True(t, prog.Header.Params[1].HasDefault)
	assert.Equal(t, "'open'", prog.Header.Params[1].DefaultLiteral)

	assert.Equal(t, "@RowCount", prog.Header.Params[2].Name)
	assert.True(t, prog.Header.Params[2].IsOutput)

	require.Len(t, prog.Body, 1)
	stmt, ok := prog.Body[0].(*SimpleStmt)
	require.True(t, ok)
	assert.Equal(t, "SELECT", stmt.Keyword)
}

func TestParse_BatchModeNoHeader(t *testing.T) {
	t.Parallel()

	prog, err := Parse("SELECT 1\nSELECT 2")
	require.NoError(t, err)
	assert.Nil(t, prog.Header)
	assert.Len(t, prog.Body, 2)
}

func TestParse_IfElse(t *testing.T) {
	t.Parallel()

	src := `IF @X > 0
	BEGIN
		SELECT 1
	END
	ELSE
	BEGIN
		SELECT 2
	END`

	prog, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, prog.Body, 1)

	ifStmt, ok := prog.Body[0].(*IfStmt)
	require.True(t, ok)
	assert.Equal(t, "@X > 0", ifStmt.CondText)
	require.Len(t, ifStmt.Then, 1)
	require.Len(t, ifStmt.Else, 1)
}

func TestParse_IfSingleStatementArm(t *testing.T) {
	t.Parallel()

	prog, err := Parse("IF @X IS NULL SELECT 1")
	require.NoError(t, err)
	ifStmt, ok := prog.Body[0].(*IfStmt)
	require.True(t, ok)
	assert.Equal(t, "@X IS NULL", ifStmt.CondText)
	assert.Nil(t, ifStmt.Else)
	require.Len(t, ifStmt.Then, 1)
}

func TestParse_While(t *testing.T) {
	t.Parallel()

	src := `WHILE @I < 10
	BEGIN
		SET @I = @I + 1
	END`

	prog, err := Parse(src)
	require.NoError(t, err)
	w, ok := prog.Body[0].(*WhileStmt)
	require.True(t, ok)
	assert.Equal(t, "@I < 10", w.CondText)
	require.Len(t, w.Body, 1)
}

func TestParse_TryCatch(t *testing.T) {
	t.Parallel()

	src := `BEGIN TRY
		INSERT INTO Log VALUES (1)
	END TRY
	BEGIN CATCH
		SELECT ERROR_MESSAGE()
	END CATCH`

	prog, err := Parse(src)
	require.NoError(t, err)
	tc, ok := prog.Body[0].(*TryCatchStmt)
	require.True(t, ok)
	require.Len(t, tc.Try, 1)
	require.Len(t, tc.Catch, 1)
}

func TestParse_NestedBlock(t *testing.T) {
	t.Parallel()

	src := `BEGIN
		SELECT 1
		SELECT 2
	END`
	prog, err := Parse(src)
	require.NoError(t, err)
	blk, ok := prog.Body[0].(*BlockStmt)
	require.True(t, ok)
	assert.Len(t, blk.Stmts, 2)
}

func TestParse_EmptyBodyFails(t *testing.T) {
	t.Parallel()

	_, err := Parse("")
	assert.Error(t, err)
}

func TestParse_MissingProcedureNameFails(t *testing.T) {
	t.Parallel()

	_, err := Parse("CREATE PROCEDURE AS BEGIN SELECT 1 END")
	assert.Error(t, err)
}

func TestParse_SemicolonTerminatesStatement(t *testing.T) {
	t.Parallel()

	prog, err := Parse("SELECT 1; SELECT 2;")
	require.NoError(t, err)
	require.Len(t, prog.Body, 2)
	first := prog.Body[0].(*SimpleStmt)
	assert.Equal(t, "SELECT 1", first.Text)
}
