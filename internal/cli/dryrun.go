package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Abhitodan/SQLDraw/internal/cfgbuilder"
	"github.com/Abhitodan/SQLDraw/internal/dryrun"
	"github.com/Abhitodan/SQLDraw/internal/predicate"
	"github.com/Abhitodan/SQLDraw/internal/tsql"
)

var dryrunParams []string

var dryrunCmd = &cobra.Command{
	Use:   "dryrun <file.sql>",
	Short: "Statically simulate a procedure's control flow without touching a database",
	Args:  cobra.ExactArgs(1),
	RunE:  runDryrun,
}

func init() {
	dryrunCmd.Flags().StringArrayVar(&dryrunParams, "param", nil, "bind a procedure parameter as name=value (repeatable); value NULL binds a literal null")
}

func runDryrun(cmd *cobra.Command, args []string) error {
	source, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	prog, err := tsql.Parse(string(source))
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	graph, err := cfgbuilder.Build(prog, string(source))
	if err != nil {
		return fmt.Errorf("build control-flow graph: %w", err)
	}

	binding, err := parseBindings(dryrunParams)
	if err != nil {
		return err
	}

	eval := predicate.New()
	defer eval.Close()

	result, err := dryrun.Run(graph, binding, eval)
	if err != nil {
		return fmt.Errorf("dry run: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
