package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdapt_BracketIdentifiers(t *testing.T) {
	t.Parallel()
	assert.Equal(t, `SELECT "Order Id" FROM Orders`, Adapt(`SELECT [Order Id] FROM Orders`))
}

func TestAdapt_SchemaPrefixStripped(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "SELECT * FROM Orders", Adapt("SELECT * FROM dbo.Orders"))
}

func TestAdapt_NolockHintStripped(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "SELECT * FROM Orders", Adapt("SELECT * FROM Orders WITH (NOLOCK)"))
}

func TestAdapt_NationalStringLiteral(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "SELECT 'abc'", Adapt("SELECT N'abc'"))
}

func TestAdapt_GetdateCall(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "SELECT datetime('now')", Adapt("SELECT GETDATE()"))
}

func TestAdapt_SysdatetimeCall(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "SELECT datetime('now')", Adapt("SELECT SYSDATETIME()"))
}

func TestAdapt_NewidCall(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "SELECT hex(randomblob(16))", Adapt("SELECT NEWID()"))
}

func TestAdapt_NvarcharTypeSimplified(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "CAST(@X AS TEXT)", Adapt("CAST(@X AS NVARCHAR(50))"))
}

func TestAdapt_VarcharTypeSimplified(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "CAST(@X AS TEXT)", Adapt("CAST(@X AS VARCHAR(50))"))
}

func TestAdapt_DecimalTypeSimplified(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "CAST(@X AS REAL)", Adapt("CAST(@X AS DECIMAL(10,2))"))
}

func TestAdapt_FloatTypeSimplified(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "CAST(@X AS REAL)", Adapt("CAST(@X AS FLOAT)"))
}

func TestAdapt_BitTypeSimplified(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "CAST(@X AS INTEGER)", Adapt("CAST(@X AS BIT)"))
}

func TestAdapt_IdentityTypeSimplified(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Id INTEGER AUTOINCREMENT", Adapt("Id INTEGER IDENTITY(1,1)"))
}

func TestAdapt_GeneralHintStripped(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "SELECT * FROM Orders", Adapt("SELECT * FROM Orders WITH (UPDLOCK, ROWLOCK)"))
}

func TestAdapt_IsnullCall(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "SELECT IFNULL(@X, 0)", Adapt("SELECT ISNULL(@X, 0)"))
}

func TestAdapt_LenCall(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "SELECT LENGTH(Name)", Adapt("SELECT LEN(Name)"))
}

func TestAdapt_SuserNameCall(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "SELECT 'sandbox_user'", Adapt("SELECT SUSER_NAME()"))
}

func TestAdapt_TopClauseBecomesLimit(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "SELECT * FROM Orders LIMIT 10", Adapt("SELECT TOP 10 * FROM Orders"))
}

func TestAdapt_TopClauseWithParens(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "SELECT * FROM Orders LIMIT 5", Adapt("SELECT TOP(5) * FROM Orders"))
}

func TestAdapt_UnrecognisedTextPassesThroughUnchanged(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "SELECT CUSTOM_FUNC(1)", Adapt("SELECT CUSTOM_FUNC(1)"))
}

func TestSqlTypeToSQLite(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"INT":           "INTEGER",
		"BIGINT":        "INTEGER",
		"BIT":           "INTEGER",
		"DECIMAL(10,2)": "REAL",
		"FLOAT":         "REAL",
		"DATETIME":      "TEXT",
		"VARCHAR(50)":   "TEXT",
		"NVARCHAR(MAX)": "TEXT",
	}
	for in, want := range cases {
		assert.Equal(t, want, sqlTypeToSQLite(in), in)
	}
}
