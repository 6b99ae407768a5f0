package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Abhitodan/SQLDraw/internal/cfgbuilder"
	"github.com/Abhitodan/SQLDraw/internal/tsql"
)

var explainFlag bool

var parseCmd = &cobra.Command{
	Use:   "parse <file.sql>",
	Short: "Parse a T-SQL procedure and print its control-flow graph",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func init() {
	parseCmd.Flags().BoolVar(&explainFlag, "explain", false, "print a human-readable node-by-node walkthrough alongside the JSON graph")
}

func runParse(cmd *cobra.Command, args []string) error {
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

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(graph); err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}

	if explainFlag {
		return explainGraph(cmd, graph.Nodes, graph.StartNodeID)
	}
	return nil
}
