package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Abhitodan/SQLDraw/internal/cfg"
)

// explainGraph prints one line per node in source order, each followed by one
// indented line per outgoing edge, the --explain companion to parse's JSON
// graph output.
func explainGraph(cmd *cobra.Command, nodes []*cfg.CfgNode, startID string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "\n--- explain ---")
	for _, n := range nodes {
		label := n.TruncatedLabel()
		if label == "" {
			label = string(n.Kind)
		}
		fmt.Fprintf(out, "%s [%s] %s\n", n.ID, n.Kind, label)
		for _, e := range n.Edges {
			cond := e.Condition
			if cond == "" {
				cond = "->"
			}
			fmt.Fprintf(out, "    %s --> %s\n", cond, e.TargetNodeID)
		}
	}
	return nil
}
