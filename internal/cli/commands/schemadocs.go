package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/BenjaminRains/mdc-analytics/internal/schemadocs"
)

// NewSchemaDocsCommand creates the schema-docs command.
func NewSchemaDocsCommand() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "schema-docs",
		Short: "Generate CSV documentation for the source tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir := outDir
			if dir == "" {
				cfg, err := configFrom(cmd)
				if err != nil {
					return err
				}
				dir = filepath.Join(cfg.OutDir, "schema_docs")
			}

			paths, err := schemadocs.Write(dir, loggerFrom(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d files to %s\n", len(paths), dir)
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "", "Output directory (default: <out-dir>/schema_docs)")
	return cmd
}
