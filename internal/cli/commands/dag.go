package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/BenjaminRains/mdc-analytics/internal/fragment"
	"github.com/BenjaminRains/mdc-analytics/internal/report"
)

// NewDagCommand creates the dag command.
func NewDagCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "dag [report]",
		Short: "Show fragment dependencies in execution order",
		Long: `Prints the dependency levels of a report's SQL fragments. Fragments in
the same level have no dependencies between them. With --dir, reads an
arbitrary directory of .sql fragments instead of a built-in report.`,
		Example: `  mdcx dag payment-splits
  mdcx dag --dir queries/collections`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var frags map[string]*fragment.Fragment
			var err error

			switch {
			case dir != "":
				frags, err = fragment.ScanDir(dir)
			case len(args) == 1:
				rep, ok := report.Lookup(args[0])
				if !ok {
					return fmt.Errorf("unknown report %q (run 'mdcx validate list')", args[0])
				}
				frags, err = report.Fragments(rep)
			default:
				return fmt.Errorf("name a report or pass --dir")
			}
			if err != nil {
				return err
			}

			g, err := fragment.BuildGraph(frags)
			if err != nil {
				return err
			}
			levels, err := g.ExecutionLevels()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d fragments, %d levels\n\n", g.NodeCount(), len(levels))
			for i, level := range levels {
				fmt.Fprintf(out, "Level %d:\n", i+1)
				for _, name := range level {
					frag := frags[name]
					if len(frag.DependsOn) > 0 {
						fmt.Fprintf(out, "  %s  (depends on: %s)\n", name, strings.Join(frag.DependsOn, ", "))
					} else {
						fmt.Fprintf(out, "  %s\n", name)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Directory of .sql fragments to analyze")
	return cmd
}
