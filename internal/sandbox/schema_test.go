package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferSchema_InsertInto(t *testing.T) {
	t.Parallel()

	stmts := []Statement{{Original: `INSERT INTO Orders (OrderId, CustomerName, Amount) VALUES (1, 'a', 9.5)`}}
	tables := InferSchema(stmts)

	require.Len(t, tables, 1)
	assert.Equal(t, "Orders", tables[0].Name)
	require.Len(t, tables[0].Columns, 3)
	assert.Equal(t, "OrderId", tables[0].Columns[0].Name)
	assert.Equal(t, "INTEGER", tables[0].Columns[0].Type)
	assert.Equal(t, "Amount", tables[0].Columns[2].Name)
	assert.Equal(t, "REAL", tables[0].Columns[2].Type)
}

func TestInferSchema_UpdateSetAndWhere(t *testing.T) {
	t.Parallel()

	stmts := []Statement{{Original: `UPDATE Orders SET Status = 'closed' WHERE OrderId = 1`}}
	tables := InferSchema(stmts)

	require.Len(t, tables, 1)
	var names []string
	for _, c := range tables[0].Columns {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "Status")
	assert.Contains(t, names, "OrderId")
}

func TestInferSchema_DeleteFrom(t *testing.T) {
	t.Parallel()

	stmts := []Statement{{Original: `DELETE FROM Orders WHERE OrderId = 1`}}
	tables := InferSchema(stmts)
	require.Len(t, tables, 1)
	assert.Equal(t, "Orders", tables[0].Name)
}

func TestInferSchema_SelectStarContributesNoProjectionColumns(t *testing.T) {
	t.Parallel()

	stmts := []Statement{{Original: `SELECT * FROM Orders WHERE CustomerId = 5`}}
	tables := InferSchema(stmts)
	require.Len(t, tables, 1)
	require.Len(t, tables[0].Columns, 1)
	assert.Equal(t, "CustomerId", tables[0].Columns[0].Name)
}

func TestInferSchema_SelectProjectionColumnsAdded(t *testing.T) {
	t.Parallel()

	stmts := []Statement{{Original: `SELECT ProductId, Name, Price FROM Products WHERE IsActive = @Active`}}
	tables := InferSchema(stmts)
	require.Len(t, tables, 1)

	var names []string
	for _, c := range tables[0].Columns {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"ProductId", "Name", "Price", "IsActive"}, names)
	assert.Equal(t, "INTEGER", tables[0].Columns[0].Type)
	assert.Equal(t, "TEXT", tables[0].Columns[1].Type)
	assert.Equal(t, "REAL", tables[0].Columns[2].Type)
	assert.Equal(t, "INTEGER", tables[0].Columns[3].Type)
}

func TestInferSchema_SelectProjectionHandlesAliasAndDottedPath(t *testing.T) {
	t.Parallel()

	stmts := []Statement{{Original: `SELECT t.OrderId, t.Total AS GrandTotal FROM Orders t`}}
	tables := InferSchema(stmts)
	require.Len(t, tables, 1)

	var names []string
	for _, c := range tables[0].Columns {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"OrderId", "GrandTotal"}, names)
}

func TestInferSchema_SelectCountStarContributesNoColumns(t *testing.T) {
	t.Parallel()

	stmts := []Statement{{Original: `SELECT COUNT(*) FROM Orders`}}
	tables := InferSchema(stmts)
	require.Len(t, tables, 1)
	assert.Empty(t, tables[0].Columns)
}

func TestInferSchema_MultipleTablesSortedByName(t *testing.T) {
	t.Parallel()

	stmts := []Statement{
		{Original: `SELECT * FROM Zebras`},
		{Original: `SELECT * FROM Apples`},
	}
	tables := InferSchema(stmts)
	require.Len(t, tables, 2)
	assert.Equal(t, "Apples", tables[0].Name)
	assert.Equal(t, "Zebras", tables[1].Name)
}

func TestInferSchema_CreateTableUsesDeclaredTypes(t *testing.T) {
	t.Parallel()

	stmts := []Statement{{Original: `CREATE TABLE Orders (OrderId INT, Notes VARCHAR(100))`}}
	tables := InferSchema(stmts)

	require.Len(t, tables, 1)
	require.Len(t, tables[0].Columns, 2)
	assert.Equal(t, "OrderId", tables[0].Columns[0].Name)
	assert.Equal(t, "INTEGER", tables[0].Columns[0].Type)
	assert.Equal(t, "Notes", tables[0].Columns[1].Name)
	assert.Equal(t, "TEXT", tables[0].Columns[1].Type)
}

func TestInferSchema_DuplicateColumnNotDuplicated(t *testing.T) {
	t.Parallel()

	stmts := []Statement{
		{Original: `INSERT INTO Orders (OrderId) VALUES (1)`},
		{Original: `UPDATE Orders SET OrderId = 2 WHERE OrderId = 1`},
	}
	tables := InferSchema(stmts)
	require.Len(t, tables, 1)
	assert.Len(t, tables[0].Columns, 1)
}

func TestCreateTableSQL(t *testing.T) {
	t.Parallel()

	sql := CreateTableSQL(TableSchema{
		Name: "Orders",
		Columns: []ColumnSchema{
			{Name: "OrderId", Type: "INTEGER"},
			{Name: "Notes", Type: "TEXT"},
		},
	})
	assert.Equal(t, `CREATE TABLE IF NOT EXISTS "Orders" (Id INTEGER PRIMARY KEY AUTOINCREMENT, "OrderId" INTEGER DEFAULT NULL, "Notes" TEXT DEFAULT NULL)`, sql)
}

func TestCreateTableSQL_NoColumnsStillGetsIDPrimaryKey(t *testing.T) {
	t.Parallel()

	sql := CreateTableSQL(TableSchema{Name: "Empty"})
	assert.Equal(t, `CREATE TABLE IF NOT EXISTS "Empty" (Id INTEGER PRIMARY KEY AUTOINCREMENT)`, sql)
}
