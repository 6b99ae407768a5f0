// Command sqldraw parses a T-SQL stored procedure into a control-flow graph
// and runs it via one of three engines: a static dry-run simulator, a
// disposable SQLite sandbox, or a rollback-only live executor.
package main

import "github.com/Abhitodan/SQLDraw/internal/cli"

func main() {
	cli.Execute()
}
