package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Abhitodan/SQLDraw/internal/cfgbuilder"
	"github.com/Abhitodan/SQLDraw/internal/config"
	"github.com/Abhitodan/SQLDraw/internal/predicate"
	"github.com/Abhitodan/SQLDraw/internal/sandbox"
	"github.com/Abhitodan/SQLDraw/internal/sqlerr"
	"github.com/Abhitodan/SQLDraw/internal/tsql"
)

var (
	sandboxParams []string
	sandboxQuiet  bool
)

var sandboxCmd = &cobra.Command{
	Use:   "sandbox <file.sql>",
	Short: "Run a procedure against a disposable, seeded in-memory SQLite database",
	Args:  cobra.ExactArgs(1),
	RunE:  runSandbox,
}

func init() {
	sandboxCmd.Flags().StringArrayVar(&sandboxParams, "param", nil, "bind a procedure parameter as name=value (repeatable)")
	sandboxCmd.Flags().BoolVarP(&sandboxQuiet, "quiet", "q", false, "suppress the seeding progress bar")
}

func runSandbox(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	source := string(raw)

	prog, err := tsql.Parse(source)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	graph, err := cfgbuilder.Build(prog, source)
	if err != nil {
		return fmt.Errorf("build control-flow graph: %w", err)
	}

	binding, err := parseBindings(sandboxParams)
	if err != nil {
		return err
	}

	ctx := context.Background()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return sqlerr.Internal("open sandbox database: %v", err)
	}
	defer db.Close()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ignore, err := sandbox.CompileIgnoreGlobs(cfg.Sandbox.IgnoreTables)
	if err != nil {
		return fmt.Errorf("compile sandbox.ignore_tables: %w", err)
	}

	stmts := sandbox.Split(sandbox.ExtractBody(source))
	tables := sandbox.FilterIgnoredTables(sandbox.InferSchema(stmts), ignore)

	tableNames, err := sandbox.CreateTables(ctx, db, tables)
	if err != nil {
		return err
	}

	totalRows := 0
	for _, t := range tables {
		n := len(t.Columns) + 5
		if n > 12 {
			n = 12
		}
		totalRows += n
	}

	var bar *progressbar.ProgressBar
	if !sandboxQuiet && totalRows > 0 {
		bar = progressbar.NewOptions(totalRows,
			progressbar.OptionSetDescription("Seeding sandbox"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionShowElapsedTimeOnFinish(),
		)
	}

	rowsGenerated, err := sandbox.Seed(db, tables, func(table string, row, total int) {
		if bar != nil {
			bar.Add(1)
		}
	})
	if err != nil {
		return fmt.Errorf("seed sandbox database: %w", err)
	}
	if bar != nil {
		fmt.Fprintln(cmd.OutOrStdout())
	}

	eval := predicate.New()
	defer eval.Close()

	result, err := sandbox.RunOnDB(ctx, db, graph, binding, eval, tableNames, rowsGenerated)
	if err != nil {
		return fmt.Errorf("sandbox run: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
